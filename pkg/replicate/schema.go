package replicate

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/getkin/kin-openapi/openapi3"
)

var ErrNoInputSchema = errors.New("version has no Input schema")

// Schema parses the version's OpenAPI document.
func (v *ModelVersion) Schema() (*openapi3.T, error) {
	if len(v.OpenAPISchema) == 0 {
		return nil, fmt.Errorf("replicate: version %s has no OpenAPI schema", v.ID)
	}
	bs, err := json.Marshal(v.OpenAPISchema)
	if err != nil {
		return nil, err
	}
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(bs)
	if err != nil {
		return nil, fmt.Errorf("replicate: failed to load OpenAPI schema: %w", err)
	}
	return doc, nil
}

func inputSchema(doc *openapi3.T) (*openapi3.Schema, error) {
	if doc.Components == nil {
		return nil, ErrNoInputSchema
	}
	ref, ok := doc.Components.Schemas["Input"]
	if !ok || ref == nil || ref.Value == nil {
		return nil, ErrNoInputSchema
	}
	return ref.Value, nil
}

// InputNames lists the properties of the Input schema, sorted by name.
func (v *ModelVersion) InputNames() ([]string, error) {
	doc, err := v.Schema()
	if err != nil {
		return nil, err
	}
	schema, err := inputSchema(doc)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// ValidateInput checks input against the version's Input schema.
func (v *ModelVersion) ValidateInput(input map[string]any) error {
	doc, err := v.Schema()
	if err != nil {
		return err
	}
	schema, err := inputSchema(doc)
	if err != nil {
		return err
	}
	// Normalize Go values (ints, typed slices) to their JSON shapes
	bs, err := json.Marshal(input)
	if err != nil {
		return err
	}
	var value any
	if err := json.Unmarshal(bs, &value); err != nil {
		return err
	}
	if err := schema.VisitJSON(value, openapi3.MultiErrors()); err != nil {
		return fmt.Errorf("replicate: invalid input: %w", err)
	}
	return nil
}
