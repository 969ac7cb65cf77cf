package service

import (
	"context"
	"log"
	"time"

	"github.com/prachikotadia/jobpulse-worker/internal/models"
)

// GhostDetector flips stale applied rows to ghosted. A row is stale when
// it has been sitting in applied longer than the threshold and the user
// has no other row for the same company that already moved the process
// forward or closed it.
type GhostDetector struct {
	apps  ApplicationStore
	after time.Duration
	now   func() time.Time
}

func NewGhostDetector(apps ApplicationStore, after time.Duration) *GhostDetector {
	return &GhostDetector{apps: apps, after: after, now: time.Now}
}

// RunOnce performs a single sweep and returns how many rows were flipped.
// Only applied rows are candidates, so re-running over the same data is a
// no-op.
func (g *GhostDetector) RunOnce(ctx context.Context) (int, error) {
	cutoff := g.now().Add(-g.after)
	stale, err := g.apps.ListStale(ctx, models.StatusApplied, cutoff)
	if err != nil {
		return 0, err
	}

	siblingStatuses := []models.ApplicationStatus{
		models.StatusInterview,
		models.StatusOffer,
		models.StatusRejected,
	}

	flipped := 0
	for i := range stale {
		app := &stale[i]
		hasSibling, err := g.apps.HasSibling(ctx, app.UserID, app.Company, app.ID, siblingStatuses)
		if err != nil {
			log.Printf("ghost sweep: sibling check for %s failed: %v", app.ID, err)
			continue
		}
		if hasSibling {
			continue
		}
		if err := g.apps.UpdateStatus(ctx, app.ID, models.StatusGhosted); err != nil {
			log.Printf("ghost sweep: failed to mark %s ghosted: %v", app.ID, err)
			continue
		}
		flipped++
	}
	if flipped > 0 {
		log.Printf("ghost sweep: marked %d applications ghosted", flipped)
	}
	return flipped, nil
}

// Run sweeps on a fixed interval until the context is cancelled.
func (g *GhostDetector) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := g.RunOnce(ctx); err != nil {
				log.Printf("ghost sweep failed: %v", err)
			}
		}
	}
}
