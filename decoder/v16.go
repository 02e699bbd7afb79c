package decoder

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"reflect"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"cpsys/ocpp"
)

//go:embed schemas
var schemaFiles embed.FS

// V16 validates payloads against the JSON Schema documents published for the
// protocol before decoding them into their typed shapes. Actions whose payloads
// this system only ever produces carry no schema and decode structurally.
type V16 struct {
	schemas map[string]*jsonschema.Schema
}

func NewV16() (*V16, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft4
	entries, err := fs.ReadDir(schemaFiles, "schemas")
	if err != nil {
		return nil, fmt.Errorf("read schema directory: %w", err)
	}
	schemas := make(map[string]*jsonschema.Schema)
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, ".json") {
			continue
		}
		data, err := fs.ReadFile(schemaFiles, "schemas/"+name)
		if err != nil {
			return nil, fmt.Errorf("read schema %s: %w", name, err)
		}
		if err = compiler.AddResource(name, bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("add schema %s: %w", name, err)
		}
		schema, err := compiler.Compile(name)
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", name, err)
		}
		schemas[strings.TrimSuffix(name, ".json")] = schema
	}
	return &V16{schemas: schemas}, nil
}

func (d *V16) Decode(action ocpp.Action, forResult bool, raw json.RawMessage) (ocpp.Payload, *ocpp.Error) {
	t, ok := payloadType(action, forResult)
	if !ok {
		return nil, ocpp.NewError(ocpp.NotSupported, fmt.Sprintf("no payload type registered for %s", action.Name))
	}
	value := reflect.New(t).Interface()
	if absent(raw) {
		return value.(ocpp.Payload), nil
	}
	var document interface{}
	if err := json.Unmarshal(raw, &document); err != nil {
		return nil, ocpp.NewError(ocpp.FormationViolation, err.Error())
	}
	if schema, found := d.schemas[schemaName(action.Name, forResult)]; found {
		if err := schema.Validate(document); err != nil {
			return nil, ocpp.NewSchemaValidationError(describeSchemaFailure(err), raw)
		}
	}
	if err := json.Unmarshal(raw, value); err != nil {
		return nil, ocpp.NewError(ocpp.FormationViolation, err.Error())
	}
	return value.(ocpp.Payload), nil
}

func schemaName(action string, forResult bool) string {
	if forResult {
		return action + ".conf"
	}
	return action + ".req"
}

// describeSchemaFailure walks to the innermost cause so the call error names
// the offending property instead of the document root.
func describeSchemaFailure(err error) string {
	if validationErr, ok := err.(*jsonschema.ValidationError); ok {
		leaf := validationErr
		for len(leaf.Causes) > 0 {
			leaf = leaf.Causes[0]
		}
		return fmt.Sprintf("%s: %s", leaf.InstanceLocation, leaf.Message)
	}
	return err.Error()
}
