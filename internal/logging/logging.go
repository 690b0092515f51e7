package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"
)

// Direction labels for provider and endpoint traffic.
const (
	DirToLLM        = "JSONRAG->LLM"
	DirFromLLM      = "LLM->JSONRAG"
	DirToEndpoint   = "JSONRAG->ENDPOINT"
	DirFromEndpoint = "ENDPOINT->JSONRAG"
)

// maxPayloadRunes caps how much of a request or response body lands in the log.
const maxPayloadRunes = 2000

var (
	mu      sync.Mutex
	logFile *os.File
)

// Init routes the standard logger to logPath (append-only) and, when console
// is true, to stdout as well. An empty logPath with console false discards
// all output.
func Init(logPath string, console bool) error {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}

	var writers []io.Writer
	if console {
		writers = append(writers, os.Stdout)
	}

	if logPath != "" {
		if dir := filepath.Dir(logPath); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
		}
		file, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		logFile = file
		writers = append(writers, logFile)
	}

	if len(writers) == 0 {
		log.SetOutput(io.Discard)
		return nil
	}
	log.SetOutput(io.MultiWriter(writers...))
	return nil
}

func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if logFile == nil {
		return nil
	}
	log.SetOutput(os.Stderr)
	err := logFile.Close()
	logFile = nil
	return err
}

func LogEvent(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	log.Println(msg)
}

// LogError records a failed operation. The error text already carries its kind.
func LogError(op string, err error) {
	if err == nil {
		return
	}
	log.Println(fmt.Sprintf("[ERROR] op=%s err=%s", strings.TrimSpace(op), err))
}

// LogRequest records one hop of traffic with a remote service.
func LogRequest(direction, host, model string, payload any) {
	msg := buildRequestMessage(direction, host, model, payload)
	log.Println(msg)
}

func buildRequestMessage(direction, host, model string, payload any) string {
	dir := strings.ToUpper(strings.TrimSpace(direction))
	hostValue := strings.TrimSpace(host)
	if hostValue == "" {
		hostValue = "unknown"
	}
	parts := []string{fmt.Sprintf("[%s]", dir)}
	parts = append(parts, fmt.Sprintf("host=%s", hostValue))
	if modelValue := strings.TrimSpace(model); modelValue != "" {
		parts = append(parts, fmt.Sprintf("model=%s", modelValue))
	}
	parts = append(parts, fmt.Sprintf("payload=%s", clip(formatPayload(payload))))
	return strings.Join(parts, " ")
}

func formatPayload(payload any) string {
	switch v := payload.(type) {
	case nil:
		return "null"
	case string:
		if strings.TrimSpace(v) == "" {
			return `""`
		}
		return v
	case []byte:
		if len(v) == 0 {
			return "[]"
		}
		return string(v)
	case fmt.Stringer:
		return v.String()
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}

func clip(s string) string {
	n := utf8.RuneCountInString(s)
	if n <= maxPayloadRunes {
		return s
	}
	runes := []rune(s)
	return fmt.Sprintf("%s...(%d more chars)", string(runes[:maxPayloadRunes]), n-maxPayloadRunes)
}
