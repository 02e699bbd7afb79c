package ocpp

import (
	"fmt"

	"cpsys/types"
)

type ErrorCode string

const (
	FormationViolation           ErrorCode = "FormationViolation"
	SchemaValidation             ErrorCode = "SchemaValidation"
	NotImplemented               ErrorCode = "NotImplemented"
	NotSupported                 ErrorCode = "NotSupported"
	InternalError                ErrorCode = "InternalError"
	SecurityError                ErrorCode = "SecurityError"
	ProtocolError                ErrorCode = "ProtocolError"
	GenericError                 ErrorCode = "GenericError"
	OccurenceConstraintViolation ErrorCode = "OccurenceConstraintViolation"
	PropertyConstraintViolation  ErrorCode = "PropertyConstraintViolation"
	TypeConstraintViolation      ErrorCode = "TypeConstraintViolation"
)

// SecurityErrorDescription is the fixed text reported to a charge point on any
// authorization failure. Internal authorization detail must not leak to the client.
const SecurityErrorDescription = "Authorization error handling action."

// Error is a protocol-level failure that is reported back to the charge point as
// a call-error frame. For schema errors Details holds the offending payload.
type Error struct {
	Code        ErrorCode
	Description string
	Details     interface{}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

func NewError(code ErrorCode, description string) *Error {
	return &Error{Code: code, Description: description}
}

func NewSchemaValidationError(description string, payload interface{}) *Error {
	return &Error{Code: SchemaValidation, Description: description, Details: payload}
}

// AuthorizationError is raised by the session manager when an id tag is not
// allowed to start or continue a transaction. TransactionId is non-zero when an
// existing transaction should be echoed to the caller, e.g. on a concurrent
// transaction conflict.
type AuthorizationError struct {
	Status        types.AuthorizationStatus
	TransactionId int
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("authorization failed with status %s", e.Status)
}

func NewAuthorizationError(status types.AuthorizationStatus) *AuthorizationError {
	return &AuthorizationError{Status: status}
}
