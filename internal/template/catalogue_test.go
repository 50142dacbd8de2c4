package template

import (
	"context"
	"fmt"
	"io"
	"math"
	"testing"

	"github.com/dvloznov/statement-pipeline/internal/logger"
	"github.com/dvloznov/statement-pipeline/internal/model"
)

// stubStore is an in-memory store with injectable failures.
type stubStore struct {
	templates []model.Template
	loadErr   error
	saveErr   error
	updateErr error
	updates   int
}

func (s *stubStore) LoadAll(ctx context.Context) ([]model.Template, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return s.templates, nil
}

func (s *stubStore) Save(ctx context.Context, t *model.Template) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.templates = append(s.templates, *t)
	return nil
}

func (s *stubStore) Update(ctx context.Context, t *model.Template) error {
	s.updates++
	return s.updateErr
}

func newTestCatalogue(t *testing.T, store Store) *Catalogue {
	t.Helper()
	return NewCatalogue(context.Background(), store, logger.NewWithWriter(io.Discard))
}

func seedTemplate(id, bank string) model.Template {
	return model.Template{
		ID:       id,
		BankName: bank,
		Parsing: model.TemplateParsing{
			DateFormats:    []string{`\d{1,2}/\d{1,2}/\d{4}`},
			CreditKeywords: []string{"deposit"},
			DebitKeywords:  []string{"withdrawal"},
		},
		Metadata:   model.TemplateMetadata{AvgAccuracy: 0.85},
		UsageCount: 1,
	}
}

func TestNewCatalogue_LoadFailureIsNonFatal(t *testing.T) {
	store := &stubStore{loadErr: fmt.Errorf("dataset unreachable")}

	c := newTestCatalogue(t, store)

	if c.Len() != 0 {
		t.Errorf("catalogue should start empty after a load failure, got %d", c.Len())
	}

	// The catalogue remains usable for learning new templates.
	tpl := seedTemplate("t1", "Acme Bank")
	c.Add(context.Background(), &tpl)
	if c.Len() != 1 {
		t.Errorf("Add after load failure: len = %d, want 1", c.Len())
	}
}

func TestCatalogue_GetReturnsCopy(t *testing.T) {
	store := &stubStore{templates: []model.Template{seedTemplate("t1", "Acme Bank")}}
	c := newTestCatalogue(t, store)

	got, ok := c.Get("t1")
	if !ok {
		t.Fatal("Get(t1) not found")
	}
	got.BankName = "Mutated"

	again, _ := c.Get("t1")
	if again.BankName != "Acme Bank" {
		t.Errorf("catalogue state mutated through a returned copy: %q", again.BankName)
	}
}

func TestCatalogue_AllPreservesRegistrationOrder(t *testing.T) {
	store := &stubStore{templates: []model.Template{
		seedTemplate("first", "Bank A"),
		seedTemplate("second", "Bank B"),
		seedTemplate("third", "Bank C"),
	}}
	c := newTestCatalogue(t, store)

	all := c.All()
	if len(all) != 3 {
		t.Fatalf("got %d templates, want 3", len(all))
	}
	for i, want := range []string{"first", "second", "third"} {
		if all[i].ID != want {
			t.Errorf("All()[%d].ID = %q, want %q", i, all[i].ID, want)
		}
	}
}

func TestUpdateMetrics_RunningMean(t *testing.T) {
	tpl := seedTemplate("t1", "Acme Bank")
	store := &stubStore{templates: []model.Template{tpl}}
	c := newTestCatalogue(t, store)

	// Seeded with avg 0.85 over 1 use; each observation extends the mean.
	observations := []float64{0.95, 0.75, 1.0}
	for _, a := range observations {
		c.UpdateMetrics(context.Background(), "t1", a)
	}

	got, _ := c.Get("t1")
	if got.UsageCount != 4 {
		t.Errorf("usage count = %d, want 4", got.UsageCount)
	}
	want := (0.85 + 0.95 + 0.75 + 1.0) / 4
	if math.Abs(got.Metadata.AvgAccuracy-want) > 1e-9 {
		t.Errorf("avg accuracy = %v, want %v", got.Metadata.AvgAccuracy, want)
	}
	if store.updates != 3 {
		t.Errorf("store updates = %d, want 3", store.updates)
	}
}

func TestUpdateMetrics_VerificationIsOneWay(t *testing.T) {
	tpl := seedTemplate("t1", "Acme Bank")
	store := &stubStore{templates: []model.Template{tpl}}
	c := newTestCatalogue(t, store)

	// Nine perfect observations take usage to 10 with avg well above 0.9.
	for i := 0; i < 9; i++ {
		c.UpdateMetrics(context.Background(), "t1", 1.0)
	}
	got, _ := c.Get("t1")
	if !got.IsVerified {
		t.Fatalf("template should be verified at usage %d avg %v", got.UsageCount, got.Metadata.AvgAccuracy)
	}

	// A run of terrible observations drags the average below 0.9 but must
	// not strip the flag.
	for i := 0; i < 20; i++ {
		c.UpdateMetrics(context.Background(), "t1", 0.0)
	}
	got, _ = c.Get("t1")
	if got.Metadata.AvgAccuracy >= 0.9 {
		t.Fatalf("test setup: avg %v should have dropped below 0.9", got.Metadata.AvgAccuracy)
	}
	if !got.IsVerified {
		t.Error("verification must never revert")
	}
}

func TestUpdateMetrics_BelowThresholdStaysUnverified(t *testing.T) {
	tpl := seedTemplate("t1", "Acme Bank")
	store := &stubStore{templates: []model.Template{tpl}}
	c := newTestCatalogue(t, store)

	// Plenty of uses but mediocre accuracy.
	for i := 0; i < 20; i++ {
		c.UpdateMetrics(context.Background(), "t1", 0.8)
	}
	got, _ := c.Get("t1")
	if got.IsVerified {
		t.Errorf("avg %v should not verify", got.Metadata.AvgAccuracy)
	}
}

func TestUpdateMetrics_PersistFailureKeepsMemoryState(t *testing.T) {
	tpl := seedTemplate("t1", "Acme Bank")
	store := &stubStore{templates: []model.Template{tpl}, updateErr: fmt.Errorf("quota")}
	c := newTestCatalogue(t, store)

	c.UpdateMetrics(context.Background(), "t1", 0.95)

	got, _ := c.Get("t1")
	if got.UsageCount != 2 {
		t.Errorf("in-memory usage count = %d, want 2 despite persist failure", got.UsageCount)
	}
}

func TestUpdateMetrics_UnknownTemplate(t *testing.T) {
	store := &stubStore{}
	c := newTestCatalogue(t, store)

	c.UpdateMetrics(context.Background(), "missing", 0.9)

	if store.updates != 0 {
		t.Errorf("unknown template must not hit the store, got %d updates", store.updates)
	}
}
