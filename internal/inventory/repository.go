package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/inventory-service/pkg/db"
	"github.com/angelmondragon/inventory-service/pkg/db/models"
	"gorm.io/gorm"
)

// Repository persists stock records, one per product.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a repository to the provided DB handle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) scoped(tx *gorm.DB) store {
	return r.WithTx(tx)
}

// FindByProductID returns nil, nil when no record exists.
func (r *Repository) FindByProductID(ctx context.Context, productID int64) (*models.StockRecord, error) {
	var record models.StockRecord
	err := r.db.WithContext(ctx).Where("product_id = ?", productID).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// FindAll returns every stock record ordered by id.
func (r *Repository) FindAll(ctx context.Context) ([]models.StockRecord, error) {
	var records []models.StockRecord
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// Save inserts the record when it has no id and updates it in place otherwise.
// An insert that loses a race on product_id falls back to updating the winner,
// so a product never ends up with two records.
func (r *Repository) Save(ctx context.Context, record *models.StockRecord) (*models.StockRecord, error) {
	if record == nil {
		return nil, errors.New("stock record is required")
	}

	if record.ID == 0 {
		err := r.db.WithContext(ctx).Create(record).Error
		switch {
		case err == nil:
		case db.IsUniqueViolation(err, ""):
			if err := r.updateQuantity(ctx, "product_id = ?", record.ProductID, record.Quantity); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("insert stock record: %w", err)
		}
	} else if err := r.updateQuantity(ctx, "id = ?", record.ID, record.Quantity); err != nil {
		return nil, err
	}

	saved, err := r.FindByProductID(ctx, record.ProductID)
	if err != nil {
		return nil, err
	}
	if saved == nil {
		return nil, fmt.Errorf("stock record for product %d vanished after save", record.ProductID)
	}
	return saved, nil
}

func (r *Repository) updateQuantity(ctx context.Context, where string, key any, quantity int) error {
	res := r.db.WithContext(ctx).
		Model(&models.StockRecord{}).
		Where(where, key).
		Updates(map[string]any{
			"quantity":   quantity,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("update stock record: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DecrementIfAvailable subtracts qty in a single conditional update and
// reports whether the row had enough stock. It never drives quantity below zero.
func (r *Repository) DecrementIfAvailable(ctx context.Context, productID int64, qty int) (bool, error) {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE inventory SET quantity = quantity - ?, updated_at = ? WHERE product_id = ? AND quantity >= ?`,
		qty, time.Now().UTC(), productID, qty,
	)
	if res.Error != nil {
		return false, fmt.Errorf("decrement stock: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}
