package services

import (
	"errors"
	"strings"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
	ErrSemantic      = errors.New("semantic validation failed")
)

// ServiceError carries the stage context of a failure alongside its marker.
type ServiceError struct {
	Marker    error
	Stage     string
	Operation string
	Message   string
	Cause     error
}

func (e *ServiceError) Error() string {
	detail := buildDetail(e.Stage, e.Operation, e.Message)
	if e.Cause != nil {
		return e.Marker.Error() + ": " + detail + ": " + e.Cause.Error()
	}
	return e.Marker.Error() + ": " + detail
}

// Unwrap exposes both the marker and the cause to errors.Is / errors.As.
func (e *ServiceError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Marker}
	}
	return []error{e.Marker, e.Cause}
}

// Wrap builds an error that includes stage context while tagging it with the
// provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	if marker == nil {
		marker = ErrTransient
	}
	return &ServiceError{
		Marker:    marker,
		Stage:     strings.TrimSpace(stage),
		Operation: strings.TrimSpace(operation),
		Message:   strings.TrimSpace(message),
		Cause:     err,
	}
}

// ErrorDetails is the flattened view of a failure used for log attributes and
// persisted job messages.
type ErrorDetails struct {
	Kind      string
	Stage     string
	Operation string
	Message   string
	Cause     string
}

// Details extracts the outermost ServiceError context from err. Errors that
// were never wrapped report kind "unknown" with the raw message.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{}
	}
	var svc *ServiceError
	if !errors.As(err, &svc) {
		return ErrorDetails{Kind: "unknown", Message: err.Error()}
	}
	details := ErrorDetails{
		Kind:      Kind(err),
		Stage:     svc.Stage,
		Operation: svc.Operation,
		Message:   svc.Message,
	}
	if svc.Cause != nil {
		details.Cause = svc.Cause.Error()
	}
	return details
}

// Kind names the marker carried by err.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrSemantic):
		return "semantic"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrExternalTool):
		return "external_tool"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrTransient):
		return "transient"
	default:
		return "unknown"
	}
}

// JobMessage renders err as the human-readable message stored on a failed job.
func JobMessage(err error) string {
	if err == nil {
		return ""
	}
	d := Details(err)
	if d.Kind == "unknown" {
		return d.Message
	}
	msg := buildDetail(d.Stage, d.Operation, d.Message)
	if d.Cause != "" {
		msg += ": " + d.Cause
	}
	return d.Kind + ": " + msg
}

// ErrorHint returns a short operator hint for the failure class.
func ErrorHint(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "check the job payload and source artifact types"
	case errors.Is(err, ErrNotFound):
		return "confirm the referenced artifact ids exist in the project"
	case errors.Is(err, ErrSemantic):
		return "generated content was too thin; resubmit or use a richer source"
	case errors.Is(err, ErrConfiguration):
		return "review the configuration file and credentials"
	case errors.Is(err, ErrExternalTool):
		return "inspect the external tool output in the logs"
	default:
		return ""
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
