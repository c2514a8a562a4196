package layout

import (
	"context"
	"errors"
	"testing"

	"github.com/clinicnotes/clinicnotes/internal/platform/apperr"
)

type mockRepo struct {
	cfg   Config
	loads int
	err   error
}

func (m *mockRepo) Save(_ context.Context, cfg Config) error {
	if m.err != nil {
		return m.err
	}
	m.cfg = cfg
	return nil
}

func (m *mockRepo) Load(_ context.Context) (Config, error) {
	m.loads++
	if m.err != nil {
		return nil, m.err
	}
	if m.cfg == nil {
		return nil, ErrNotFound
	}
	return m.cfg, nil
}

func TestService_SaveAndLoad(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo)
	ctx := context.Background()

	if _, err := svc.Load(ctx); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found before first save, got %v", err)
	}

	first := Config{"patientName": map[string]interface{}{"top": 10.0, "left": 20.0}}
	if err := svc.Save(ctx, first); err != nil {
		t.Fatalf("Save: %v", err)
	}
	second := Config{"fontSize": 14.0}
	if err := svc.Save(ctx, second); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := svc.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := got["patientName"]; ok {
		t.Error("save must fully replace the previous layout")
	}
	if got["fontSize"] != 14.0 {
		t.Errorf("unexpected layout: %v", got)
	}
}

func TestService_Save_RejectsEmpty(t *testing.T) {
	svc := NewService(&mockRepo{})
	for _, cfg := range []Config{nil, {}} {
		if err := svc.Save(context.Background(), cfg); !apperr.Is(err, apperr.KindValidation) {
			t.Errorf("expected validation error for %v, got %v", cfg, err)
		}
	}
}

func TestService_StoreFailure(t *testing.T) {
	cause := errors.New("disk full")
	svc := NewService(&mockRepo{err: cause})
	if err := svc.Save(context.Background(), Config{"a": 1.0}); !errors.Is(err, cause) {
		t.Errorf("expected wrapped cause, got %v", err)
	}
}
