package inference

import (
	"errors"
	"fmt"
)

var (
	ErrRejected     = errors.New("prediction rejected")
	ErrUnreachable  = errors.New("classification service unreachable")
	ErrBatchFailure = errors.New("batch prediction failed")
)

type Kind int

const (
	Rejected Kind = iota + 1
	Unreachable
	BatchFailure
)

func (k Kind) sentinel() error {
	switch k {
	case Rejected:
		return ErrRejected
	case Unreachable:
		return ErrUnreachable
	default:
		return ErrBatchFailure
	}
}

// GatewayError is returned by Client. Message is safe to show to the operator.
type GatewayError struct {
	Kind       Kind
	Message    string
	StatusCode int
	Err        error
}

func (e *GatewayError) Error() string {
	return e.Message
}

func (e *GatewayError) Unwrap() error { return e.Err }

func (e *GatewayError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

func rejected(status int, message string) *GatewayError {
	return &GatewayError{Kind: Rejected, Message: message, StatusCode: status}
}

func unreachable(err error) *GatewayError {
	return &GatewayError{
		Kind:    Unreachable,
		Message: "Something went wrong connecting to the AI.",
		Err:     err,
	}
}

// batchFailure wraps cause so errors.Is still sees ErrUnreachable on transport errors.
func batchFailure(status int, cause error) *GatewayError {
	return &GatewayError{
		Kind:       BatchFailure,
		Message:    "Failed to process batch. Ensure backend is running.",
		StatusCode: status,
		Err:        fmt.Errorf("batch prediction failed: %w", cause),
	}
}
