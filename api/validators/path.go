package validators

import (
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/inventory-service/pkg/errors"
)

// ParsePositiveID parses a path segment such as {productId}.
func ParsePositiveID(raw, field string) (int64, error) {
	value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || value <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, field+": must be a positive integer").
			WithDetails([]pkgerrors.FieldError{{Field: field, Message: "must be a positive integer"}})
	}
	return value, nil
}
