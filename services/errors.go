package services

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies a ServiceError for transport mapping
type ErrorKind int

const (
	KindValidation ErrorKind = iota
	KindAuth
	KindForbidden
	KindNotFound
	KindConflict
	KindGateway
	KindInternal
)

// HTTPStatus maps an error kind to its response status
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case KindValidation, KindConflict:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindGateway:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Stable error codes returned to clients
const (
	CodeValidation           = "VALIDATION_ERROR"
	CodeInvalidCredentials   = "INVALID_CREDENTIALS"
	CodeAccountInactive      = "ACCOUNT_INACTIVE"
	CodeNotFound             = "NOT_FOUND"
	CodeDuplicate            = "DUPLICATE"
	CodeNotAvailable         = "NOT_AVAILABLE"
	CodeInsufficientStock    = "INSUFFICIENT_STOCK"
	CodeInvalidTransition    = "INVALID_TRANSITION"
	CodeStatusChanged        = "STATUS_CHANGED"
	CodeCannotCancel         = "CANNOT_CANCEL"
	CodeAlreadyProcessed     = "ALREADY_PROCESSED"
	CodeInvalidSignature     = "INVALID_SIGNATURE"
	CodeMalformedQR          = "MALFORMED_QR"
	CodeOrderNotFound        = "ORDER_NOT_FOUND"
	CodeQRVerificationFailed = "QR_VERIFICATION_FAILED"
	CodeNotPaid              = "NOT_PAID"
	CodeAlreadyServed        = "ALREADY_SERVED"
	CodeNotRefundable        = "NOT_REFUNDABLE"
	CodeGatewayError         = "GATEWAY_ERROR"
	CodeFileUpload           = "FILE_UPLOAD_ERROR"
	CodeInternal             = "INTERNAL_ERROR"
)

// ServiceError is a domain failure safe to show to clients
type ServiceError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, code, format string, args ...interface{}) *ServiceError {
	return &ServiceError{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

// ValidationError builds a 400 error with the generic validation code
func ValidationError(format string, args ...interface{}) *ServiceError {
	return newError(KindValidation, CodeValidation, format, args...)
}

// NotFoundError builds a 404 error
func NotFoundError(what string) *ServiceError {
	return newError(KindNotFound, CodeNotFound, "%s not found", what)
}

// ConflictError builds a state-conflict error with a specific code
func ConflictError(code, format string, args ...interface{}) *ServiceError {
	return newError(KindConflict, code, format, args...)
}

// GatewayError wraps a payment gateway failure
func GatewayError(message string, err error) *ServiceError {
	return &ServiceError{Kind: KindGateway, Code: CodeGatewayError, Message: message, Err: err}
}

// AsServiceError extracts a ServiceError from an error chain
func AsServiceError(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// IsKind reports whether err is a ServiceError of the given kind
func IsKind(err error, kind ErrorKind) bool {
	se, ok := AsServiceError(err)
	return ok && se.Kind == kind
}

// IsCode reports whether err is a ServiceError with the given code
func IsCode(err error, code string) bool {
	se, ok := AsServiceError(err)
	return ok && se.Code == code
}
