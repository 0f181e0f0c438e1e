package repository

import (
	"context"
	"time"

	"github.com/sangkips/storefront-api/internal/domain/entity"
	domainRepo "github.com/sangkips/storefront-api/internal/domain/repository"
	"gorm.io/gorm"
)

type analyticsRepository struct {
	db *gorm.DB
}

// NewAnalyticsRepository creates a new analytics repository
func NewAnalyticsRepository(db *gorm.DB) domainRepo.AnalyticsRepository {
	return &analyticsRepository{db: db}
}

func (r *analyticsRepository) SalesBySource(ctx context.Context, from, to *time.Time) ([]domainRepo.SourceTotals, error) {
	var rows []struct {
		Source          string
		OrderCount      int64
		Revenue         int64
		DeliveryCharges int64
	}

	err := r.db.WithContext(ctx).Model(&entity.Order{}).
		Scopes(CreatedBetween(from, to)).
		Select(`COALESCE(source, '') AS source,
			COUNT(*) AS order_count,
			COALESCE(SUM(total), 0) AS revenue,
			COALESCE(SUM(delivery_charge), 0) AS delivery_charges`).
		Group("COALESCE(source, '')").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	totals := make([]domainRepo.SourceTotals, 0, len(rows))
	for _, row := range rows {
		totals = append(totals, domainRepo.SourceTotals{
			Source:          row.Source,
			OrderCount:      row.OrderCount,
			Revenue:         row.Revenue,
			DeliveryCharges: row.DeliveryCharges,
		})
	}
	return totals, nil
}
