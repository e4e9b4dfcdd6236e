package inventory

import (
	"context"
	"fmt"
	"math"
	"net/http"

	"github.com/angelmondragon/inventory-service/pkg/db/models"
	pkgerrors "github.com/angelmondragon/inventory-service/pkg/errors"
	"github.com/angelmondragon/inventory-service/pkg/logger"
	"github.com/angelmondragon/inventory-service/pkg/metrics"
	"gorm.io/gorm"
)

// maxQuantity is the range of the quantity column.
const maxQuantity = math.MaxInt32

const (
	msgProductMissingOnWrite    = "Product with ID %d does not exist in the product service"
	msgProductMissingOnPurchase = "Product with ID %d does not exist"
)

// Catalog is the slice of the product catalog the workflow depends on.
type Catalog interface {
	// CheckAvailability fails on anything other than a clear yes/no.
	CheckAvailability(ctx context.Context, productID int64) (bool, error)
	// ResolveName is best effort and never fails.
	ResolveName(ctx context.Context, productID int64) string
}

// store is the persistence the workflow needs. *Repository satisfies it.
type store interface {
	FindByProductID(ctx context.Context, productID int64) (*models.StockRecord, error)
	FindAll(ctx context.Context) ([]models.StockRecord, error)
	Save(ctx context.Context, record *models.StockRecord) (*models.StockRecord, error)
	DecrementIfAvailable(ctx context.Context, productID int64, qty int) (bool, error)
	scoped(tx *gorm.DB) store
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type recorder interface {
	ObservePurchase(outcome string, units int)
	ObserveStockWrite(operation string)
}

// Service exposes the stock workflow.
type Service interface {
	CreateOrUpdate(ctx context.Context, input StockInput) (*models.StockRecord, error)
	GetByProductID(ctx context.Context, productID int64) (*models.StockRecord, error)
	GetAll(ctx context.Context) ([]models.StockRecord, error)
	Purchase(ctx context.Context, input PurchaseInput) (*PurchaseOutcome, error)
}

// StockInput replaces the quantity held for a product.
type StockInput struct {
	ProductID int64
	Quantity  int
}

// PurchaseInput requests quantity units of a product.
type PurchaseInput struct {
	ProductID int64
	Quantity  int
}

// PurchaseOutcome is returned for a successful purchase.
type PurchaseOutcome struct {
	ProductID         int64  `json:"productId"`
	ProductName       string `json:"productName"`
	PurchasedQuantity int    `json:"purchasedQuantity"`
	Message           string `json:"message"`
}

// ServiceParams wires the workflow collaborators.
type ServiceParams struct {
	Repo    store
	Tx      txRunner
	Catalog Catalog
	Metrics recorder
	Logger  *logger.Logger
}

type service struct {
	repo    store
	tx      txRunner
	catalog Catalog
	metrics recorder
	logg    *logger.Logger
}

// NewService builds the inventory workflow.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog client required")
	}
	rec := params.Metrics
	if rec == nil {
		rec = metrics.NewInventoryMetrics(nil)
	}
	return &service{
		repo:    params.Repo,
		tx:      params.Tx,
		catalog: params.Catalog,
		metrics: rec,
		logg:    params.Logger,
	}, nil
}

func (s *service) CreateOrUpdate(ctx context.Context, input StockInput) (*models.StockRecord, error) {
	if input.Quantity < 0 {
		return nil, invalidQuantity("must be greater than or equal to 0")
	}
	if input.Quantity > maxQuantity {
		return nil, invalidQuantity(fmt.Sprintf("must be at most %d", maxQuantity))
	}

	exists, err := s.catalog.CheckAvailability(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, productNotFound(input.ProductID, msgProductMissingOnWrite)
	}

	record, err := s.repo.FindByProductID(ctx, input.ProductID)
	if err != nil {
		return nil, internal(err, "load inventory")
	}

	operation := "update"
	if record == nil {
		operation = "create"
		record = &models.StockRecord{ProductID: input.ProductID}
	}
	record.Quantity = input.Quantity

	saved, err := s.repo.Save(ctx, record)
	if err != nil {
		return nil, internal(err, "save inventory")
	}
	s.metrics.ObserveStockWrite(operation)

	if s.logg != nil {
		logCtx := s.logg.WithOperation(s.logg.WithStock(ctx, saved.ProductID, saved.Quantity), operation)
		s.logg.Info(logCtx, "inventory.saved")
	}
	return saved, nil
}

func (s *service) GetByProductID(ctx context.Context, productID int64) (*models.StockRecord, error) {
	record, err := s.repo.FindByProductID(ctx, productID)
	if err != nil {
		return nil, internal(err, "load inventory")
	}
	if record == nil {
		return nil, inventoryNotFound(productID)
	}
	return record, nil
}

func (s *service) GetAll(ctx context.Context) ([]models.StockRecord, error) {
	records, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, internal(err, "list inventory")
	}
	if records == nil {
		records = []models.StockRecord{}
	}
	return records, nil
}

// Purchase checks the catalog, then verifies and decrements stock inside one
// transaction. The conditional decrement is what keeps concurrent purchases
// from overselling; the earlier read only picks the error to report.
func (s *service) Purchase(ctx context.Context, input PurchaseInput) (*PurchaseOutcome, error) {
	if input.Quantity <= 0 {
		return nil, invalidQuantity("must be greater than 0")
	}
	if input.Quantity > maxQuantity {
		return nil, invalidQuantity(fmt.Sprintf("must be at most %d", maxQuantity))
	}

	exists, err := s.catalog.CheckAvailability(ctx, input.ProductID)
	if err != nil {
		s.metrics.ObservePurchase(metrics.OutcomeError, 0)
		return nil, err
	}
	if !exists {
		s.metrics.ObservePurchase(metrics.OutcomeNotFound, 0)
		return nil, productNotFound(input.ProductID, msgProductMissingOnPurchase).WithStatus(http.StatusBadRequest)
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.scoped(tx)

		record, err := repo.FindByProductID(ctx, input.ProductID)
		if err != nil {
			return internal(err, "load inventory")
		}
		if record == nil {
			return inventoryNotFound(input.ProductID)
		}
		if input.Quantity > record.Quantity {
			return insufficientStock(input.ProductID, record.Quantity, input.Quantity)
		}

		ok, err := repo.DecrementIfAvailable(ctx, input.ProductID, input.Quantity)
		if err != nil {
			return internal(err, "decrement inventory")
		}
		if !ok {
			// a concurrent purchase took the stock between the read and the update
			current, err := repo.FindByProductID(ctx, input.ProductID)
			if err != nil {
				return internal(err, "reload inventory")
			}
			available := 0
			if current != nil {
				available = current.Quantity
			}
			return insufficientStock(input.ProductID, available, input.Quantity)
		}
		return nil
	})
	if err != nil {
		s.metrics.ObservePurchase(purchaseOutcome(err), 0)
		return nil, err
	}
	s.metrics.ObservePurchase(metrics.OutcomeSuccess, input.Quantity)

	name := s.catalog.ResolveName(ctx, input.ProductID)

	if s.logg != nil {
		logCtx := s.logg.WithOperation(s.logg.WithStock(ctx, input.ProductID, input.Quantity), "purchase")
		s.logg.Info(s.logg.WithField(logCtx, "product_name", name), "inventory.purchase")
	}

	return &PurchaseOutcome{
		ProductID:         input.ProductID,
		ProductName:       name,
		PurchasedQuantity: input.Quantity,
		Message:           fmt.Sprintf("Purchase successful. %d units of '%s' purchased.", input.Quantity, name),
	}, nil
}

func purchaseOutcome(err error) string {
	switch pkgerrors.As(err).Code() {
	case pkgerrors.CodeInsufficientStock:
		return metrics.OutcomeInsufficient
	case pkgerrors.CodeInventoryNotFound:
		return metrics.OutcomeNotFound
	default:
		return metrics.OutcomeError
	}
}
