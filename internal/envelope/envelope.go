// Package envelope defines the JSON document returned for an extraction and the schema it
// is checked against before being stored.
package envelope

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/markdave123-py/fiscalextract/internal/fiscal"
)

//go:embed envelope.schema.json
var SchemaJSON []byte

const schemaURL = "envelope.schema.json"

// Envelope is the response body of a successful extraction.
type Envelope struct {
	Success      bool           `json:"success"`
	Type         fiscal.DocType `json:"type"`
	Data         any            `json:"data"`
	RawText      string         `json:"raw_text"`
	ExtractionID string         `json:"extraction_id,omitempty"`
}

// New wraps an engine result. extractionID may be empty when nothing is persisted.
func New(ex fiscal.Extraction, extractionID string) Envelope {
	return Envelope{
		Success:      true,
		Type:         ex.Type,
		Data:         ex.Payload(),
		RawText:      ex.RawText,
		ExtractionID: extractionID,
	}
}

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func schema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, bytes.NewReader(SchemaJSON)); err != nil {
			compileErr = fmt.Errorf("add schema: %w", err)
			return
		}
		compiled, compileErr = compiler.Compile(schemaURL)
		if compileErr != nil {
			compileErr = fmt.Errorf("compile schema: %w", compileErr)
		}
	})
	return compiled, compileErr
}

// Validate checks an encoded envelope against the schema.
func Validate(data []byte) error {
	s, err := schema()
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal envelope: %w", err)
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("envelope does not match schema: %w", err)
	}
	return nil
}
