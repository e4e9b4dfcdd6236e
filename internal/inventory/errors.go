package inventory

import (
	"fmt"

	pkgerrors "github.com/angelmondragon/inventory-service/pkg/errors"
)

func productNotFound(productID int64, msg string) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeProductNotFound, fmt.Sprintf(msg, productID))
}

func inventoryNotFound(productID int64) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeInventoryNotFound,
		fmt.Sprintf("Inventory not found for product ID: %d", productID))
}

func insufficientStock(productID int64, available, requested int) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeInsufficientStock,
		fmt.Sprintf("Insufficient inventory for product ID: %d. Available: %d, Requested: %d", productID, available, requested))
}

func invalidQuantity(message string) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeValidation, "quantity: "+message).
		WithDetails([]pkgerrors.FieldError{{Field: "quantity", Message: message}})
}

// internal hides store failures behind the generic internal error.
func internal(err error, msg string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, msg)
}
