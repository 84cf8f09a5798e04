package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// Validator compiles a JSON Schema once and validates many documents against it.
type Validator struct {
	id     string
	schema []byte

	once     sync.Once
	compiled *jsonschema.Schema
	err      error
}

// NewValidator returns a validator for the given schema payload. Compilation is
// deferred until the first validation.
func NewValidator(id string, schema []byte) *Validator {
	return &Validator{id: schemaID(id), schema: schema}
}

func (v *Validator) compile() (*jsonschema.Schema, error) {
	v.once.Do(func() {
		if len(v.schema) == 0 {
			v.err = fmt.Errorf("schema is empty")
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(v.id, bytes.NewReader(v.schema)); err != nil {
			v.err = fmt.Errorf("add schema resource: %w", err)
			return
		}
		v.compiled, v.err = compiler.Compile(v.id)
		if v.err != nil {
			v.err = fmt.Errorf("compile schema: %w", v.err)
		}
	})
	return v.compiled, v.err
}

// Validate checks an already decoded value.
func (v *Validator) Validate(value any) error {
	compiled, err := v.compile()
	if err != nil {
		return err
	}
	payload, err := normalizeValue(value)
	if err != nil {
		return fmt.Errorf("normalize payload: %w", err)
	}
	if err := compiled.Validate(payload); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

// ValidateYAML decodes a YAML (or JSON) document and validates it.
func (v *Validator) ValidateYAML(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse document: %w", err)
	}
	// Round-trip through JSON so YAML scalars take the shapes the validator expects.
	encoded, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	return v.Validate(encoded)
}

// ValidateSchema validates a value against a JSON schema payload.
func ValidateSchema(id string, schema []byte, value any) error {
	return NewValidator(id, schema).Validate(value)
}

func normalizeValue(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return decodeJSON(v)
	case []byte:
		return decodeJSON(v)
	default:
		return value, nil
	}
}

func decodeJSON(data []byte) (any, error) {
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return out, nil
}

func schemaID(id string) string {
	if id == "" {
		id = "schema"
	}
	return "inmemory://" + id
}
