package inventory

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// ReorderProcessor periodically scans for products that have fallen to their
// reorder point and restocks them by their configured reorder quantity. It
// only acts on records where both reorder settings are positive.
type ReorderProcessor struct {
	service      *Service
	processDelay time.Duration
}

func NewReorderProcessor(service *Service) *ReorderProcessor {
	return &ReorderProcessor{
		service:      service,
		processDelay: time.Minute,
	}
}

// Start begins the reorder processing loop
func (p *ReorderProcessor) Start(ctx context.Context) {
	logger := log.With().Str("component", "reorder_processor").Logger()
	logger.Info().Msg("starting reorder processor")

	ticker := time.NewTicker(p.processDelay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("shutting down reorder processor")
			return
		case <-ticker.C:
			if err := p.processReorders(); err != nil {
				logger.Error().Err(err).Msg("failed to process reorders")
			}
		}
	}
}

func (p *ReorderProcessor) processReorders() error {
	logger := log.With().Str("component", "reorder_processor").Logger()

	records, err := p.service.GetDB().GetRecordsBelowReorderPoint()
	if err != nil {
		return err
	}

	if len(records) == 0 {
		return nil
	}
	logger.Info().Int("pending_count", len(records)).Msg("processing automatic reorders")

	for _, record := range records {
		// Restock re-checks under the product lock; the scan result may be
		// stale by the time we get here.
		if err := p.service.Restock(record.ProductID, record.ReorderQuantity, "automatic reorder", "reorder-processor"); err != nil {
			logger.Error().
				Err(err).
				Str("product_id", record.ProductID).
				Msg("failed to apply automatic reorder")
			continue
		}

		logger.Info().
			Str("product_id", record.ProductID).
			Int("reorder_quantity", record.ReorderQuantity).
			Int("reorder_point", record.ReorderPoint).
			Msg("automatic reorder applied")
	}

	return nil
}
