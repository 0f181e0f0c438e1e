package service

import (
	"context"
	"fmt"

	"github.com/sangkips/storefront-api/internal/domain/entity"
	"github.com/sangkips/storefront-api/internal/domain/repository"
)

// ReceiptNumberPrefix starts every receipt number
const ReceiptNumberPrefix = "RCP-"

// FormatReceiptNumber renders n as RCP-NNNNNN
func FormatReceiptNumber(n int64) string {
	return fmt.Sprintf("%s%06d", ReceiptNumberPrefix, n)
}

// ReceiptNumberer issues receipt numbers from an atomic counter
type ReceiptNumberer struct {
	sequences repository.SequenceRepository
	receipts  repository.ReceiptRepository
}

// NewReceiptNumberer creates a new numberer
func NewReceiptNumberer(sequences repository.SequenceRepository, receipts repository.ReceiptRepository) *ReceiptNumberer {
	return &ReceiptNumberer{sequences: sequences, receipts: receipts}
}

// Sync lifts the counter above the highest number already stored. Run once
// at startup so imported receipts are never renumbered.
func (n *ReceiptNumberer) Sync(ctx context.Context) error {
	highest, err := n.receipts.MaxReceiptNumber(ctx)
	if err != nil {
		return fmt.Errorf("read highest receipt number: %w", err)
	}
	if err := n.sequences.EnsureAtLeast(ctx, entity.ReceiptSequence, highest); err != nil {
		return fmt.Errorf("seed receipt sequence: %w", err)
	}
	return nil
}

// Next returns the next receipt number
func (n *ReceiptNumberer) Next(ctx context.Context) (string, error) {
	value, err := n.sequences.Next(ctx, entity.ReceiptSequence)
	if err != nil {
		return "", fmt.Errorf("next receipt number: %w", err)
	}
	return FormatReceiptNumber(value), nil
}
