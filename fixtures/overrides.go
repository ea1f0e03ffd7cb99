package fixtures

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

const overridesSchemaURL = "https://hrdashboard.invalid/schema/fixture-overrides.json"

//go:embed schema.json
var overridesSchemaJSON []byte

var (
	overridesSchema     *jsonschema.Schema
	overridesSchemaErr  error
	overridesSchemaOnce sync.Once
)

func compiledOverridesSchema() (*jsonschema.Schema, error) {
	overridesSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.AssertFormat = true
		if err := compiler.AddResource(overridesSchemaURL, bytes.NewReader(overridesSchemaJSON)); err != nil {
			overridesSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		overridesSchema, overridesSchemaErr = compiler.Compile(overridesSchemaURL)
	})
	return overridesSchema, overridesSchemaErr
}

// ParseOverrides decodes a JSON object of method name to response payload, after
// checking it against the documented payload shapes. Methods that the schema does not
// know about are accepted with any payload.
func ParseOverrides(data []byte) (map[string]ldvalue.Value, error) {
	schema, err := compiledOverridesSchema()
	if err != nil {
		return nil, err
	}
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("malformed fixture overrides: %w", err)
	}
	if err := schema.Validate(raw); err != nil {
		return nil, fmt.Errorf("fixture overrides do not match the backend payload shapes: %w", err)
	}
	var ret map[string]ldvalue.Value
	if err := json.Unmarshal(data, &ret); err != nil {
		return nil, fmt.Errorf("malformed fixture overrides: %w", err)
	}
	return ret, nil
}

// LoadOverrides reads and validates a fixture override file.
func LoadOverrides(path string) (map[string]ldvalue.Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture overrides: %w", err)
	}
	return ParseOverrides(data)
}
