package fleet

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-twin/internal/models"
)

// Report tallies the running twins by local status, logs and publishes the
// result and keeps it as the latest snapshot.
func (r *Reconciler) Report(ctx context.Context) models.FleetSnapshot {
	snapshot := models.FleetSnapshot{
		Timestamp: time.Now().UTC(),
		ByStatus:  make(map[models.Status]int, len(models.Statuses)),
	}
	for _, status := range models.Statuses {
		snapshot.ByStatus[status] = 0
	}
	for _, state := range r.Units() {
		snapshot.ByStatus[state.Status]++
		snapshot.Total++
	}

	r.snapMu.Lock()
	r.latest = snapshot
	r.snapMu.Unlock()

	fields := log.Fields{"total": snapshot.Total}
	for status, n := range snapshot.ByStatus {
		fields[string(status)] = n
	}
	log.WithFields(fields).Info("Fleet status")

	if err := r.opts.Publisher.PublishSnapshot(ctx, snapshot); err != nil {
		log.WithError(err).Warn("Failed to publish fleet snapshot")
	}
	return snapshot
}

// RunReporter reports every ReportInterval until ctx is cancelled.
func (r *Reconciler) RunReporter(ctx context.Context) {
	ticker := time.NewTicker(r.opts.ReportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Report(ctx)
		}
	}
}

// LatestSnapshot returns the result of the last Report.
func (r *Reconciler) LatestSnapshot() models.FleetSnapshot {
	r.snapMu.RLock()
	defer r.snapMu.RUnlock()

	out := r.latest
	out.ByStatus = make(map[models.Status]int, len(r.latest.ByStatus))
	for k, v := range r.latest.ByStatus {
		out.ByStatus[k] = v
	}
	return out
}
