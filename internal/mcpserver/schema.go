package mcpserver

import (
	"bytes"
	"encoding/json"
	"fmt"

	invopop "github.com/invopop/jsonschema"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// GenerateSchema derives a tool input schema from T. Fields without
// omitempty are required.
func GenerateSchema[T any]() json.RawMessage {
	reflector := invopop.Reflector{
		Anonymous:                 true,
		AllowAdditionalProperties: true,
		DoNotReference:            true,
		ExpandedStruct:            true,
	}
	var v T
	data, err := json.Marshal(reflector.Reflect(v))
	if err != nil {
		panic(fmt.Sprintf("mcpserver: marshal schema for %T: %v", v, err))
	}
	return data
}

type argumentValidator struct {
	schema *jsonschema.Schema
}

func newArgumentValidator(name string, schema json.RawMessage) (*argumentValidator, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schema))
	if err != nil {
		return nil, fmt.Errorf("parse %s schema: %w", name, err)
	}
	url := "mem://tools/" + name + ".json"
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("add %s schema: %w", name, err)
	}
	compiled, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile %s schema: %w", name, err)
	}
	return &argumentValidator{schema: compiled}, nil
}

// decode validates raw against the schema and then unmarshals it into out.
func (v *argumentValidator) decode(raw json.RawMessage, out any) error {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return err
	}
	if err := v.schema.Validate(inst); err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}
