package schema

import (
	"encoding/json"
	"reflect"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared validator
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate validates a struct with `validate` tags, non struct values are always valid
func Validate(v any) error {
	if v == nil {
		return nil
	}
	if rv := reflect.Indirect(reflect.ValueOf(v)); rv.Kind() != reflect.Struct {
		return nil
	}
	return Validator().Struct(v)
}

// JSONSchema reflects the json schema of v
func JSONSchema(v any) (*jsonschema.Schema, error) {
	r := jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	return r.Reflect(v), nil
}

// JSONSchemaString returns the indented json schema of v
func JSONSchemaString(v any) (string, error) {
	s, err := JSONSchema(v)
	if err != nil {
		return "", err
	}
	bs, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", err
	}
	return string(bs), nil
}
