package content

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed component.schema.json
var componentSchemaJSON []byte

const componentSchemaURL = "schema://component.json"

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

// componentSchema compiles the embedded schema once.
func componentSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		// The jsonschema library expects a parsed JSON value (any), not raw bytes.
		var def any
		if err := json.Unmarshal(componentSchemaJSON, &def); err != nil {
			schemaErr = fmt.Errorf("parse component schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(componentSchemaURL, def); err != nil {
			schemaErr = fmt.Errorf("add resource: %w", err)
			return
		}
		compiledSchema, schemaErr = c.Compile(componentSchemaURL)
	})
	return compiledSchema, schemaErr
}

// validateDocument checks a decoded component document against the schema.
// The document must already be in JSON value form (maps, slices, float64).
func validateDocument(doc any) error {
	s, err := componentSchema()
	if err != nil {
		return err
	}
	if err := s.Validate(doc); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}
