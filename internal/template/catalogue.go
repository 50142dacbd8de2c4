package template

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-pipeline/internal/model"
)

// Store persists templates. The catalogue works against this interface so
// binaries can choose BigQuery or an in-memory store.
type Store interface {
	LoadAll(ctx context.Context) ([]model.Template, error)
	Save(ctx context.Context, t *model.Template) error
	Update(ctx context.Context, t *model.Template) error
}

// Catalogue owns the in-memory set of templates. It is safe for concurrent
// use. All reads hand out copies; callers never hold a pointer into the
// catalogue's own state.
type Catalogue struct {
	mu        sync.RWMutex
	templates map[string]*model.Template
	order     []string // registration order, drives tie-breaking
	store     Store
	log       zerolog.Logger
}

// NewCatalogue builds a catalogue backed by store and loads the persisted
// templates. A load failure is logged and yields an empty catalogue; the
// service still starts and can learn templates from scratch.
func NewCatalogue(ctx context.Context, store Store, log zerolog.Logger) *Catalogue {
	c := &Catalogue{
		templates: make(map[string]*model.Template),
		store:     store,
		log:       log,
	}

	loaded, err := store.LoadAll(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("loading templates failed, starting with an empty catalogue")
		return c
	}
	for i := range loaded {
		c.register(&loaded[i])
	}
	log.Info().Int("templates", len(c.order)).Msg("template catalogue loaded")
	return c
}

// register adds a template to the in-memory state. Caller-visible entry
// points take the lock; register assumes it is held or the catalogue is not
// yet shared.
func (c *Catalogue) register(t *model.Template) {
	cp := *t
	if _, exists := c.templates[cp.ID]; !exists {
		c.order = append(c.order, cp.ID)
	}
	c.templates[cp.ID] = &cp
}

// Add registers a new template and persists it. A persistence failure is
// logged but the template stays usable in memory for this process.
func (c *Catalogue) Add(ctx context.Context, t *model.Template) {
	c.mu.Lock()
	c.register(t)
	c.mu.Unlock()

	if err := c.store.Save(ctx, t); err != nil {
		c.log.Warn().Err(err).Str("template_id", t.ID).Msg("saving template failed, kept in memory only")
	}
}

// Get returns a copy of the template with the given id.
func (c *Catalogue) Get(id string) (*model.Template, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	t, ok := c.templates[id]
	if !ok {
		return nil, false
	}
	cp := *t
	return &cp, true
}

// All returns copies of every template in registration order.
func (c *Catalogue) All() []model.Template {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]model.Template, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, *c.templates[id])
	}
	return out
}

// Len reports the number of registered templates.
func (c *Catalogue) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

// UpdateMetrics records one usage observation for a template. The average
// accuracy is a running weighted mean over all uses, and verification flips
// on once the template has at least 10 uses averaging 0.9 or better. A
// verified template never loses the flag, even if later observations drag
// the average down.
func (c *Catalogue) UpdateMetrics(ctx context.Context, id string, observedAccuracy float64) {
	c.mu.Lock()
	t, ok := c.templates[id]
	if !ok {
		c.mu.Unlock()
		c.log.Warn().Str("template_id", id).Msg("metrics update for unknown template")
		return
	}

	t.UsageCount++
	n := float64(t.UsageCount)
	t.Metadata.AvgAccuracy = (t.Metadata.AvgAccuracy*(n-1) + observedAccuracy) / n
	if !t.IsVerified && t.UsageCount >= 10 && t.Metadata.AvgAccuracy >= 0.9 {
		t.IsVerified = true
		c.log.Info().Str("template_id", id).Str("bank", t.BankName).Msg("template verified")
	}
	t.UpdatedAt = time.Now().UTC()
	snapshot := *t
	c.mu.Unlock()

	if err := c.store.Update(ctx, &snapshot); err != nil {
		c.log.Warn().Err(err).Str("template_id", id).Msg("persisting template metrics failed")
	}
}
