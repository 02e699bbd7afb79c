package decoder

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/go-playground/validator/v10"

	"cpsys/ocpp"
)

// V15 decodes payloads structurally and validates them through the constraint
// tags carried by the payload types themselves.
type V15 struct {
	validate *validator.Validate
}

func NewV15() *V15 {
	return &V15{validate: validator.New()}
}

func (d *V15) Decode(action ocpp.Action, forResult bool, raw json.RawMessage) (ocpp.Payload, *ocpp.Error) {
	t, ok := payloadType(action, forResult)
	if !ok {
		return nil, ocpp.NewError(ocpp.NotSupported, fmt.Sprintf("no payload type registered for %s", action.Name))
	}
	value := reflect.New(t).Interface()
	if absent(raw) {
		return value.(ocpp.Payload), nil
	}
	if err := json.Unmarshal(raw, value); err != nil {
		return nil, ocpp.NewError(ocpp.FormationViolation, err.Error())
	}
	if err := d.validate.Struct(value); err != nil {
		return nil, ocpp.NewSchemaValidationError(describeValidation(err), raw)
	}
	return value.(ocpp.Payload), nil
}

// describeValidation reduces a validation failure to its first offending field.
func describeValidation(err error) string {
	if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
		first := errs[0]
		return fmt.Sprintf("field %s failed on the '%s' constraint", first.Namespace(), first.Tag())
	}
	return err.Error()
}
