package llm

import (
	"encoding/json"
	"errors"
	"strings"
)

var (
	errEmptyResponse = errors.New("empty response")
	errNotJSON       = errors.New("response is not JSON")
)

// CleanJSONBlock strips a surrounding ``` or ```json fence from model output.
func CleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimPrefix(text, "json")
	text = strings.TrimPrefix(text, "JSON")
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}

// decodeStrict turns raw model output into out, validating it against schema first.
func decodeStrict(raw string, schema *Schema, out any) error {
	body := CleanJSONBlock(raw)
	if body == "" {
		return errEmptyResponse
	}
	if !json.Valid([]byte(body)) {
		return errNotJSON
	}
	if schema != nil {
		if err := schema.Validate([]byte(body)); err != nil {
			return err
		}
	}
	return json.Unmarshal([]byte(body), out)
}
