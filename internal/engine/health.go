package engine

import (
	"context"
	"time"

	"github.com/steelworks/lotline/internal/model"
)

// CheckHealth classifies source freshness. A source whose last update is
// older than the threshold reports Stale regardless of the status stored
// on it; otherwise the stored status passes through. Pure computation over
// metadata snapshots, no side effects.
func CheckHealth(metas []model.SourceMetadata, now time.Time, staleAfter time.Duration) []model.SourceHealth {
	health := make([]model.SourceHealth, 0, len(metas))

	for _, meta := range metas {
		status := meta.RefreshStatus
		if now.Sub(meta.LastUpdatedAt) > staleAfter {
			status = model.HealthStale
		}
		health = append(health, model.SourceHealth{
			SourceName:  meta.SourceName,
			LastUpdated: meta.LastUpdatedAt,
			Status:      status,
		})
	}

	return health
}

// Health reads the stored source metadata and classifies each source
// against the engine's stale threshold.
func (e *Engine) Health(ctx context.Context) ([]model.SourceHealth, error) {
	metas, err := e.store.ListSourceMetadata(ctx)
	if err != nil {
		return nil, NewStorageError("list source metadata", err)
	}
	return CheckHealth(metas, e.clock.Now(), e.staleAfter), nil
}
