package llm

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/*.json
var schemaFiles embed.FS

const (
	SchemaValidationResult = "validation_result"
	SchemaAnalysisResult   = "analysis_result"
	SchemaStructuredJD     = "structured_jd"
)

var (
	compiledMu sync.Mutex
	compiled   = map[string]*gojsonschema.Schema{}
)

// LoadSchema returns the embedded schema with the given name.
func LoadSchema(name string) (*Schema, error) {
	raw, err := schemaFiles.ReadFile("schemas/" + name + ".json")
	if err != nil {
		return nil, fmt.Errorf("load schema %s: %w", name, err)
	}
	return &Schema{Name: name, Raw: raw}, nil
}

func mustSchema(name string) *Schema {
	s, err := LoadSchema(name)
	if err != nil {
		panic(err)
	}
	return s
}

// Validate checks a JSON document against the schema.
func (s *Schema) Validate(doc []byte) error {
	compiledMu.Lock()
	sch, ok := compiled[s.Name]
	if !ok {
		var err error
		sch, err = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(s.Raw))
		if err != nil {
			compiledMu.Unlock()
			return fmt.Errorf("compile schema %s: %w", s.Name, err)
		}
		compiled[s.Name] = sch
	}
	compiledMu.Unlock()

	result, err := sch.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("validate against %s: %w", s.Name, err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%s: %s", s.Name, strings.Join(msgs, "; "))
}
