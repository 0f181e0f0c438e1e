package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sangkips/storefront-api/internal/domain/entity"
	domainRepo "github.com/sangkips/storefront-api/internal/domain/repository"
	"gorm.io/gorm"
)

type receiptRepository struct {
	db *gorm.DB
}

// NewReceiptRepository creates a new receipt repository
func NewReceiptRepository(db *gorm.DB) domainRepo.ReceiptRepository {
	return &receiptRepository{db: db}
}

func (r *receiptRepository) Create(ctx context.Context, receipt *entity.Receipt) error {
	return translateError(r.db.WithContext(ctx).Create(receipt).Error)
}

func (r *receiptRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Receipt, error) {
	var receipt entity.Receipt
	err := r.db.WithContext(ctx).Preload("Items").First(&receipt, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &receipt, err
}

func (r *receiptRepository) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*entity.Receipt, error) {
	var receipt entity.Receipt
	err := r.db.WithContext(ctx).Preload("Items").First(&receipt, "order_id = ?", orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &receipt, err
}

func (r *receiptRepository) List(ctx context.Context, params *domainRepo.ReceiptFilterParams) ([]entity.Receipt, int64, error) {
	var receipts []entity.Receipt
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Receipt{})
	if params.UserID != nil {
		query = query.Where("user_id = ?", *params.UserID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Scopes(Paginate(&params.PaginationParams)).
		Preload("Items").
		Order("generated_at DESC").
		Find(&receipts).Error
	return receipts, total, err
}

func (r *receiptRepository) MaxReceiptNumber(ctx context.Context) (int64, error) {
	var max int64
	err := r.db.WithContext(ctx).Model(&entity.Receipt{}).
		Select("COALESCE(MAX(CAST(SUBSTRING(receipt_number FROM 5) AS BIGINT)), 0)").
		Where("receipt_number ~ ?", `^RCP-[0-9]+$`).
		Scan(&max).Error
	return max, err
}

type sequenceRepository struct {
	db *gorm.DB
}

// NewSequenceRepository creates a counter repository backed by the sequences table
func NewSequenceRepository(db *gorm.DB) domainRepo.SequenceRepository {
	return &sequenceRepository{db: db}
}

// Next is a single upsert so concurrent callers serialize on the counter row
func (r *sequenceRepository) Next(ctx context.Context, name string) (int64, error) {
	var value int64
	err := r.db.WithContext(ctx).Raw(`
		INSERT INTO sequences (name, value, updated_at) VALUES (?, 1, NOW())
		ON CONFLICT (name) DO UPDATE SET value = sequences.value + 1, updated_at = NOW()
		RETURNING value`, name).Scan(&value).Error
	return value, err
}

func (r *sequenceRepository) EnsureAtLeast(ctx context.Context, name string, floor int64) error {
	return r.db.WithContext(ctx).Exec(`
		INSERT INTO sequences (name, value, updated_at) VALUES (?, ?, NOW())
		ON CONFLICT (name) DO UPDATE SET value = GREATEST(sequences.value, EXCLUDED.value), updated_at = NOW()`,
		name, floor).Error
}
