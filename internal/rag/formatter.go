package rag

import "strings"

// PromptTemplate is filled by FormatPrompt. Placeholders are replaced in a
// single pass, so braces inside the context or question are left alone.
const PromptTemplate = "Answer the question based only on the following context:\n{context}\nQuestion: {question}\n"

// FormatContext joins retrieved chunks, most relevant first, separated by a
// blank line.
func FormatContext(chunks []string) string {
	return strings.Join(chunks, "\n\n")
}

func FormatPrompt(context, question string) string {
	return strings.NewReplacer("{context}", context, "{question}", question).Replace(PromptTemplate)
}
