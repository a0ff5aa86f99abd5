// Package fleet keeps one running twin per unit record. New records are
// picked up by polling; twins remove themselves when their record goes away.
package fleet

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-twin/internal/events"
	"github.com/ukydev/fleet-twin/internal/models"
	"github.com/ukydev/fleet-twin/internal/unit"
)

// Twin is a running unit as seen by the reconciler. *unit.Unit implements it.
type Twin interface {
	ID() string
	Run(ctx context.Context, onRemoved func(id string))
	Snapshot() unit.State
}

// IDLister lists the ids of every stored unit.
type IDLister interface {
	ListUnitIDs(ctx context.Context) ([]string, error)
}

// Factory loads the twin for a stored id.
type Factory func(ctx context.Context, id string) (Twin, error)

// Creator inserts a brand new unit record and returns its id.
type Creator func(ctx context.Context) (string, error)

// Options configure a Reconciler.
type Options struct {
	Store          IDLister
	Load           Factory
	Create         Creator
	Publisher      events.Publisher
	PollInterval   time.Duration
	ReportInterval time.Duration
	StoreTimeout   time.Duration // bounds each id listing
}

type entry struct {
	twin   Twin
	cancel context.CancelFunc
}

// Reconciler owns the roster of running twins.
type Reconciler struct {
	opts Options

	mu     sync.Mutex
	roster map[string]*entry
	wg     sync.WaitGroup

	snapMu sync.RWMutex
	latest models.FleetSnapshot
}

// NewReconciler creates a reconciler with an empty roster.
func NewReconciler(opts Options) *Reconciler {
	if opts.Publisher == nil {
		opts.Publisher = events.Nop{}
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 20 * time.Second
	}
	if opts.ReportInterval <= 0 {
		opts.ReportInterval = 10 * time.Second
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = 5 * time.Second
	}
	return &Reconciler{
		opts:   opts,
		roster: make(map[string]*entry),
		latest: models.FleetSnapshot{ByStatus: map[models.Status]int{}},
	}
}

// Reconcile starts a twin for every stored id that is not running yet and
// returns the ids it started. It never stops twins.
func (r *Reconciler) Reconcile(ctx context.Context) ([]string, error) {
	listCtx, cancel := context.WithTimeout(ctx, r.opts.StoreTimeout)
	ids, err := r.opts.Store.ListUnitIDs(listCtx)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("failed to list units: %w", err)
	}

	started := []string{}
	for _, id := range ids {
		if r.running(id) {
			continue
		}
		twin, err := r.opts.Load(ctx, id)
		if err != nil {
			if errors.Is(err, unit.ErrUnitNotFound) {
				log.WithField("unit_id", id).Debug("Unit vanished before it could be loaded")
				continue
			}
			log.WithError(err).WithField("unit_id", id).Warn("Failed to load unit")
			continue
		}
		r.start(ctx, twin)
		started = append(started, id)
	}

	if len(started) > 0 {
		log.WithFields(log.Fields{
			"started": len(started),
			"running": r.size(),
		}).Info("New units joined the fleet")
	}
	return started, nil
}

func (r *Reconciler) running(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.roster[id]
	return ok
}

func (r *Reconciler) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.roster)
}

func (r *Reconciler) start(ctx context.Context, twin Twin) {
	unitCtx, cancel := context.WithCancel(ctx)

	r.mu.Lock()
	r.roster[twin.ID()] = &entry{twin: twin, cancel: cancel}
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer cancel()
		twin.Run(unitCtx, r.remove)
	}()
}

func (r *Reconciler) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.roster[id]; ok {
		e.cancel()
		delete(r.roster, id)
		log.WithFields(log.Fields{
			"unit_id": id,
			"running": len(r.roster),
		}).Info("Unit left the fleet")
	}
}

// Run reconciles immediately and then every PollInterval until ctx is
// cancelled. On return every twin has stopped.
func (r *Reconciler) Run(ctx context.Context) {
	if _, err := r.Reconcile(ctx); err != nil {
		log.WithError(err).Error("Failed to list units")
	}

	ticker := time.NewTicker(r.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.Wait()
			return
		case <-ticker.C:
			if _, err := r.Reconcile(ctx); err != nil && ctx.Err() == nil {
				log.WithError(err).Error("Failed to list units")
			}
		}
	}
}

// Wait blocks until every started twin has returned.
func (r *Reconciler) Wait() {
	r.wg.Wait()
}

// Roster returns the ids of running twins in ascending order.
func (r *Reconciler) Roster() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.roster))
	for id := range r.roster {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Units returns the latest state of every running twin ordered by id.
func (r *Reconciler) Units() []unit.State {
	r.mu.Lock()
	twins := make([]Twin, 0, len(r.roster))
	for _, e := range r.roster {
		twins = append(twins, e.twin)
	}
	r.mu.Unlock()

	states := make([]unit.State, 0, len(twins))
	for _, t := range twins {
		states = append(states, t.Snapshot())
	}
	sort.Slice(states, func(i, j int) bool { return states[i].ID < states[j].ID })
	return states
}

// Seed inserts n fresh units. They join the fleet on the next reconcile.
func (r *Reconciler) Seed(ctx context.Context, n int) ([]string, error) {
	if n <= 0 || r.opts.Create == nil {
		return []string{}, nil
	}
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		id, err := r.opts.Create(ctx)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	log.WithField("count", n).Info("Seeded new units")
	return ids, nil
}

// LoadUnits returns a Factory backed by unit.Load.
func LoadUnits(deps unit.Deps) Factory {
	return func(ctx context.Context, id string) (Twin, error) {
		u, err := unit.Load(ctx, deps, id)
		if err != nil {
			return nil, err
		}
		return u, nil
	}
}

// CreateUnits returns a Creator backed by unit.Create.
func CreateUnits(deps unit.Deps) Creator {
	return func(ctx context.Context) (string, error) {
		u, err := unit.Create(ctx, deps)
		if err != nil {
			return "", err
		}
		return u.ID(), nil
	}
}
