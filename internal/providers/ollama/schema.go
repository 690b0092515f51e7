package ollama

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// responseSchema checks the shape of a provider response before it is decoded.
type responseSchema struct {
	name   string
	loader gojsonschema.JSONLoader
}

var (
	embeddingSchema = responseSchema{
		name: "embedding",
		loader: gojsonschema.NewStringLoader(`{
			"type": "object",
			"required": ["embedding"],
			"properties": {
				"embedding": {"type": "array", "minItems": 1, "items": {"type": "number"}}
			}
		}`),
	}
	generateSchema = responseSchema{
		name: "generate",
		loader: gojsonschema.NewStringLoader(`{
			"type": "object",
			"required": ["response"],
			"properties": {
				"model": {"type": "string"},
				"response": {"type": "string"},
				"done": {"type": "boolean"}
			}
		}`),
	}
)

func (s responseSchema) validate(raw []byte) error {
	result, err := gojsonschema.Validate(s.loader, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("%s response is not valid JSON: %w", s.name, err)
	}
	if result.Valid() {
		return nil
	}
	var details []string
	for _, desc := range result.Errors() {
		details = append(details, desc.String())
	}
	return fmt.Errorf("%s response failed validation: %s", s.name, strings.Join(details, "; "))
}
