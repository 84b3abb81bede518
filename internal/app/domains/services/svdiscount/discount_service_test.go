package svdiscount

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"redaxion/backend/internal/app/domains/entity/etorder"
	"redaxion/backend/internal/app/pkg/errorx"
	"redaxion/backend/internal/app/pkg/logger"
)

type memDiscountRepo struct {
	mu    sync.Mutex
	codes map[string]*etorder.DiscountCode
}

func newMemDiscountRepo(codes ...*etorder.DiscountCode) *memDiscountRepo {
	m := &memDiscountRepo{codes: make(map[string]*etorder.DiscountCode)}
	for _, dc := range codes {
		clone := *dc
		m.codes[dc.Code] = &clone
	}
	return m
}

func (m *memDiscountRepo) Create(ctx context.Context, code *etorder.DiscountCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.codes[code.Code]; ok {
		return errors.New("duplicate code")
	}
	clone := *code
	m.codes[code.Code] = &clone
	return nil
}

func (m *memDiscountRepo) GetByCode(ctx context.Context, code string) (*etorder.DiscountCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	dc, ok := m.codes[code]
	if !ok {
		return nil, errorx.ErrDiscountNotFound
	}
	clone := *dc
	return &clone, nil
}

func (m *memDiscountRepo) List(ctx context.Context) ([]*etorder.DiscountCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*etorder.DiscountCode
	for _, dc := range m.codes {
		clone := *dc
		out = append(out, &clone)
	}
	return out, nil
}

func (m *memDiscountRepo) IncrementUsage(ctx context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if dc, ok := m.codes[code]; ok {
		dc.UsesCount++
	}
	return nil
}

func (m *memDiscountRepo) Deactivate(ctx context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	dc, ok := m.codes[code]
	if !ok {
		return errorx.ErrDiscountNotFound
	}
	dc.Active = false
	return nil
}

func activeCode(code string) *etorder.DiscountCode {
	return &etorder.DiscountCode{Code: code, DiscountPercent: 20, Active: true, CreatedAt: time.Now()}
}

func TestService_Validate(t *testing.T) {
	t.Run("active code validates and normalizes casing", func(t *testing.T) {
		svc := NewService(newMemDiscountRepo(activeCode("PROMO20")), logger.NopLogger{})

		dc, err := svc.Validate(context.Background(), "  promo20 ")
		if err != nil {
			t.Fatalf("Validate failed: %v", err)
		}
		if dc.DiscountPercent != 20 {
			t.Errorf("wrong percent: %d", dc.DiscountPercent)
		}
	})

	t.Run("unknown code", func(t *testing.T) {
		svc := NewService(newMemDiscountRepo(), logger.NopLogger{})
		if _, err := svc.Validate(context.Background(), "NADA"); !errors.Is(err, errorx.ErrDiscountNotFound) {
			t.Fatalf("expected ErrDiscountNotFound, got %v", err)
		}
	})

	t.Run("inactive code", func(t *testing.T) {
		dc := activeCode("OLD")
		dc.Active = false
		svc := NewService(newMemDiscountRepo(dc), logger.NopLogger{})
		if _, err := svc.Validate(context.Background(), "OLD"); !errors.Is(err, errorx.ErrDiscountInactive) {
			t.Fatalf("expected ErrDiscountInactive, got %v", err)
		}
	})

	t.Run("exhausted code", func(t *testing.T) {
		dc := activeCode("FULL")
		maxUses := 5
		dc.MaxUses = &maxUses
		dc.UsesCount = 5
		svc := NewService(newMemDiscountRepo(dc), logger.NopLogger{})
		if _, err := svc.Validate(context.Background(), "FULL"); !errors.Is(err, errorx.ErrDiscountExhausted) {
			t.Fatalf("expected ErrDiscountExhausted, got %v", err)
		}
	})

	t.Run("expired code", func(t *testing.T) {
		dc := activeCode("LATE")
		expired := time.Now().Add(-time.Hour)
		dc.ExpiresAt = &expired
		svc := NewService(newMemDiscountRepo(dc), logger.NopLogger{})
		if _, err := svc.Validate(context.Background(), "LATE"); !errors.Is(err, errorx.ErrDiscountExpired) {
			t.Fatalf("expected ErrDiscountExpired, got %v", err)
		}
	})
}

func TestService_Create(t *testing.T) {
	repo := newMemDiscountRepo()
	svc := NewService(repo, logger.NopLogger{})

	t.Run("normalizes code to upper case", func(t *testing.T) {
		dc, err := svc.Create(context.Background(), &CreateParams{Code: "verano26", DiscountPercent: 15})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if dc.Code != "VERANO26" {
			t.Errorf("expected VERANO26, got %s", dc.Code)
		}
		if !dc.Active {
			t.Error("new code must start active")
		}
	})

	t.Run("rejects empty code", func(t *testing.T) {
		if _, err := svc.Create(context.Background(), &CreateParams{Code: "  ", DiscountPercent: 10}); err == nil {
			t.Fatal("expected error for empty code")
		}
	})

	t.Run("rejects out of range percent", func(t *testing.T) {
		if _, err := svc.Create(context.Background(), &CreateParams{Code: "X", DiscountPercent: 0}); err == nil {
			t.Fatal("expected error for 0 percent")
		}
		if _, err := svc.Create(context.Background(), &CreateParams{Code: "Y", DiscountPercent: 101}); err == nil {
			t.Fatal("expected error for 101 percent")
		}
	})
}

func TestService_MarkUsed(t *testing.T) {
	repo := newMemDiscountRepo(activeCode("PROMO20"))
	svc := NewService(repo, logger.NopLogger{})

	svc.MarkUsed(context.Background(), "promo20")

	dc, _ := repo.GetByCode(context.Background(), "PROMO20")
	if dc.UsesCount != 1 {
		t.Fatalf("expected uses_count 1, got %d", dc.UsesCount)
	}
}

func TestService_Deactivate(t *testing.T) {
	repo := newMemDiscountRepo(activeCode("PROMO20"))
	svc := NewService(repo, logger.NopLogger{})

	if err := svc.Deactivate(context.Background(), "promo20"); err != nil {
		t.Fatalf("Deactivate failed: %v", err)
	}
	dc, _ := repo.GetByCode(context.Background(), "PROMO20")
	if dc.Active {
		t.Error("code must be inactive")
	}

	if err := svc.Deactivate(context.Background(), "missing"); !errors.Is(err, errorx.ErrDiscountNotFound) {
		t.Fatalf("expected ErrDiscountNotFound, got %v", err)
	}

	if !strings.EqualFold(dc.Code, "PROMO20") {
		t.Errorf("unexpected code %s", dc.Code)
	}
}
