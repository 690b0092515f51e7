// internal/util/util.go
package util

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// TruncateRunes truncates a string to a maximum number of runes,
// appending an ellipsis if truncated.
func TruncateRunes(text string, maxRunes int) string {
	if maxRunes < 0 || utf8.RuneCountInString(text) <= maxRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:maxRunes]) + "…"
}

// PreviewLines keeps the first maxLines lines of text and notes how many
// were dropped. Each kept line is truncated to width runes when width > 0.
func PreviewLines(text string, maxLines, width int) string {
	lines := strings.Split(text, "\n")
	dropped := 0
	if maxLines > 0 && len(lines) > maxLines {
		dropped = len(lines) - maxLines
		lines = lines[:maxLines]
	}
	if width > 0 {
		for i, line := range lines {
			lines[i] = TruncateRunes(line, width)
		}
	}
	out := strings.Join(lines, "\n")
	if dropped > 0 {
		out += fmt.Sprintf("\n… (%d more lines)", dropped)
	}
	return out
}

// WrapToWidth wraps the given text to a specified width, breaking long words.
func WrapToWidth(text string, width int) string {
	if width <= 0 {
		return text
	}
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line == "" {
			out = append(out, "")
			continue
		}
		var cur strings.Builder
		runeCount := 0
		words := strings.Fields(line)
		for wi, w := range words {
			space := 0
			if wi > 0 {
				space = 1
			}
			wLen := utf8.RuneCountInString(w)
			if runeCount+space+wLen <= width {
				if runeCount > 0 {
					cur.WriteByte(' ')
					runeCount++
				}
				cur.WriteString(w)
				runeCount += wLen
				continue
			}
			if runeCount > 0 {
				out = append(out, cur.String())
				cur.Reset()
				runeCount = 0
			}
			if wLen <= width {
				cur.WriteString(w)
				runeCount = wLen
				continue
			}
			r := []rune(w)
			for start := 0; start < len(r); start += width {
				end := min(start+width, len(r))
				out = append(out, string(r[start:end]))
			}
		}
		if cur.Len() > 0 {
			out = append(out, cur.String())
		} else if len(words) == 0 {
			out = append(out, "")
		}
	}
	return strings.Join(out, "\n")
}

// ShortID returns the first n runes of id, or id itself when shorter.
func ShortID(id string, n int) string {
	if utf8.RuneCountInString(id) <= n {
		return id
	}
	return string([]rune(id)[:n])
}
