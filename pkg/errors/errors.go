package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation        Code = "VALIDATION_ERROR"
	CodeUnauthorized      Code = "UNAUTHORIZED"
	CodeProductNotFound   Code = "PRODUCT_NOT_FOUND"
	CodeInventoryNotFound Code = "INVENTORY_NOT_FOUND"
	CodeInsufficientStock Code = "INSUFFICIENT_STOCK"
	CodeCatalogClient     Code = "CATALOG_CLIENT_ERROR"
	CodeCatalogServer     Code = "CATALOG_SERVER_ERROR"
	CodeCatalogDown       Code = "CATALOG_UNAVAILABLE"
	CodeIdempotency       Code = "IDEMPOTENCY_KEY_REUSED"
	CodeIdempotencyBusy   Code = "IDEMPOTENCY_KEY_IN_PROGRESS"
	CodeRateLimit         Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal          Code = "INTERNAL_ERROR"
	CodeDependency        Code = "DEPENDENCY_ERROR"
)

// Metadata describes how a code is rendered at the HTTP boundary.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	Title          string
	PublicMessage  string
	DetailsAllowed bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation: {
		HTTPStatus:     http.StatusBadRequest,
		Title:          "Validation Error",
		PublicMessage:  "validation failed",
		DetailsAllowed: true,
	},
	CodeUnauthorized: {
		HTTPStatus:    http.StatusUnauthorized,
		Title:         "Unauthorized",
		PublicMessage: "Invalid or missing API key",
	},
	CodeProductNotFound: {
		HTTPStatus:     http.StatusNotFound,
		Title:          "Product Not Found",
		PublicMessage:  "product not found",
		DetailsAllowed: true,
	},
	CodeInventoryNotFound: {
		HTTPStatus:     http.StatusNotFound,
		Title:          "Inventory Not Found",
		PublicMessage:  "inventory not found",
		DetailsAllowed: true,
	},
	CodeInsufficientStock: {
		HTTPStatus:     http.StatusBadRequest,
		Title:          "Insufficient Inventory",
		PublicMessage:  "insufficient inventory",
		DetailsAllowed: true,
	},
	CodeCatalogClient: {
		HTTPStatus:     http.StatusBadRequest,
		Title:          "Product Service Error",
		PublicMessage:  "product service rejected the request",
		DetailsAllowed: true,
	},
	CodeCatalogServer: {
		HTTPStatus:     http.StatusBadGateway,
		Retryable:      true,
		Title:          "Product Service Error",
		PublicMessage:  "product service failed",
		DetailsAllowed: true,
	},
	CodeCatalogDown: {
		HTTPStatus:     http.StatusInternalServerError,
		Retryable:      true,
		Title:          "Product Service Error",
		PublicMessage:  "product service unavailable",
		DetailsAllowed: true,
	},
	CodeIdempotency: {
		HTTPStatus:     http.StatusConflict,
		Title:          "Idempotency Key Reused",
		PublicMessage:  "idempotency key reused",
		DetailsAllowed: true,
	},
	CodeIdempotencyBusy: {
		HTTPStatus:     http.StatusConflict,
		Retryable:      true,
		Title:          "Request In Progress",
		PublicMessage:  "a request with this idempotency key is in progress",
		DetailsAllowed: true,
	},
	CodeRateLimit: {
		HTTPStatus:    http.StatusTooManyRequests,
		Title:         "Too Many Requests",
		PublicMessage: "rate limit exceeded",
	},
	CodeInternal: {
		HTTPStatus:    http.StatusInternalServerError,
		Retryable:     true,
		Title:         "Internal Server Error",
		PublicMessage: "An unexpected error occurred",
	},
	CodeDependency: {
		HTTPStatus:     http.StatusServiceUnavailable,
		Retryable:      true,
		Title:          "Service Unavailable",
		PublicMessage:  "dependency unavailable",
		DetailsAllowed: true,
	},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

// FieldError is a single invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type Error struct {
	code    Code
	message string
	status  int
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

// WithStatus overrides the HTTP status the code would normally map to.
func (e *Error) WithStatus(status int) *Error {
	if e == nil {
		return nil
	}
	e.status = status
	return e
}

// HTTPStatus returns the override status when set, else the code's default.
func (e *Error) HTTPStatus() int {
	if e == nil {
		return http.StatusInternalServerError
	}
	if e.status > 0 {
		return e.status
	}
	return MetadataFor(e.code).HTTPStatus
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsCode reports whether err carries the given code anywhere in its chain.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.Code() == code
}
