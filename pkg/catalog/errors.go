package catalog

import (
	"errors"
	"fmt"
)

// Kind classifies a failed catalog call.
type Kind string

const (
	KindClient      Kind = "client"
	KindServer      Kind = "server"
	KindUnavailable Kind = "unavailable"
)

// Error is a failed catalog call. Status is the upstream HTTP status, or 500
// when the catalog could not be reached.
type Error struct {
	Kind      Kind
	Status    int
	ProductID int64
	Body      string
	cause     error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindClient:
		return fmt.Sprintf("Product service client error for product ID %d: status %d", e.ProductID, e.Status)
	case KindServer:
		return fmt.Sprintf("Product service server error for product ID %d: status %d", e.ProductID, e.Status)
	default:
		if e.cause != nil {
			return fmt.Sprintf("Product service unavailable for product ID %d: %v", e.ProductID, e.cause)
		}
		return fmt.Sprintf("Product service unavailable for product ID %d", e.ProductID)
	}
}

func (e *Error) Unwrap() error {
	return e.cause
}

// AsError extracts a catalog error from err's chain.
func AsError(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}
