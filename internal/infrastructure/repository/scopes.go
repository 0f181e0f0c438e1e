package repository

import (
	"errors"
	"time"

	domainRepo "github.com/sangkips/storefront-api/internal/domain/repository"
	"github.com/sangkips/storefront-api/pkg/pagination"
	"gorm.io/gorm"
)

// CreatedBetween returns a GORM scope restricting created_at to [from, to].
// Nil bounds are left open.
func CreatedBetween(from, to *time.Time) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if from != nil {
			db = db.Where("created_at >= ?", *from)
		}
		if to != nil {
			db = db.Where("created_at <= ?", *to)
		}
		return db
	}
}

// Paginate applies offset/limit from validated pagination params
func Paginate(params *pagination.PaginationParams) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		params.Validate()
		return db.Offset(params.Offset()).Limit(params.PerPage)
	}
}

// translateError maps driver errors onto domain repository errors.
// Requires gorm.Config.TranslateError.
func translateError(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domainRepo.ErrDuplicateKey
	}
	return err
}
