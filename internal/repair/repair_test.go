package repair_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	dbfs "github.com/garnizeh/marketplace/db"
	dbpkg "github.com/garnizeh/marketplace/internal/db"
	"github.com/garnizeh/marketplace/internal/repair"
	"github.com/garnizeh/marketplace/internal/repository/sqlstore"
	"github.com/garnizeh/marketplace/pkg/models"
	"github.com/garnizeh/marketplace/pkg/repository/mock"
)

func setupStore(t *testing.T) *sqlstore.SQLRepo {
	t.Helper()
	ctx := context.Background()
	d, err := dbpkg.New(ctx, dbpkg.DriverSQLite, filepath.Join(t.TempDir(), "repair.db"), nil)
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	if err := dbpkg.Migrate(ctx, d, dbfs.Migrations, dbfs.SeedFiles); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return sqlstore.New(d, nil)
}

// A client whose profile row was never written posts a job: the first insert
// fails on the foreign key, the row is repaired and the retry succeeds.
func TestDo_RepairsMissingProfile(t *testing.T) {
	store := setupStore(t)
	r := repair.New(store, nil)
	ctx := context.Background()
	id := models.Identity{UserID: "ghost", Name: "Marco", Email: "marco@example.com"}

	calls := 0
	err := r.Do(ctx, id, func(ctx context.Context) error {
		calls++
		return store.CreateJob(ctx, &models.Job{ID: "job-1", ClientID: id.UserID, Category: "Sito Web", Description: "shop"})
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected exactly one retry, got %d calls", calls)
	}

	p, err := store.GetProfile(ctx, "ghost")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if p.Role != models.RoleClient || p.Credits != 0 || p.Plan != models.PlanFree || p.DisplayName != "Marco" {
		t.Fatalf("unexpected repaired profile %+v", p)
	}
	if _, err := store.GetJob(ctx, "job-1"); err != nil {
		t.Fatalf("job not created: %v", err)
	}
}

func TestDo_SecondMissIsInactive(t *testing.T) {
	r := repair.New(setupStore(t), nil)
	calls := 0
	err := r.Do(context.Background(), models.Identity{UserID: "u"}, func(ctx context.Context) error {
		calls++
		return models.ErrProfileMissing
	})
	if !errors.Is(err, models.ErrProfileInactive) {
		t.Fatalf("expected ErrProfileInactive, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected two attempts, got %d", calls)
	}
}

func TestDo_OtherErrorsPassThrough(t *testing.T) {
	r := repair.New(setupStore(t), nil)
	calls := 0
	err := r.Do(context.Background(), models.Identity{UserID: "u"}, func(ctx context.Context) error {
		calls++
		return models.ErrJobNotOpen
	})
	if !errors.Is(err, models.ErrJobNotOpen) || calls != 1 {
		t.Fatalf("expected ErrJobNotOpen after one call, got %v after %d", err, calls)
	}
}

func TestEnsure_CreatesAndFillsPartialRows(t *testing.T) {
	store := setupStore(t)
	r := repair.New(store, nil)
	ctx := context.Background()

	p, err := r.Ensure(ctx, models.Identity{UserID: "new", Email: "giulia@example.com"})
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if p.DisplayName != "giulia" || p.Role != models.RoleClient {
		t.Fatalf("unexpected profile %+v", p)
	}

	partial := &models.Profile{ID: "pro", Role: models.RoleProfessional, Credits: 7, Plan: models.PlanPro}
	if err := store.CreateProfile(ctx, partial); err != nil {
		t.Fatalf("CreateProfile: %v", err)
	}
	p, err = r.Ensure(ctx, models.Identity{UserID: "pro", Name: "Luca", Email: "luca@example.com"})
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if p.DisplayName != "Luca" || p.Email != "luca@example.com" {
		t.Fatalf("partial row not filled: %+v", p)
	}
	if p.Role != models.RoleProfessional || p.Credits != 7 || p.Plan != models.PlanPro {
		t.Fatalf("repair must not touch role, credits or plan: %+v", p)
	}

	again, err := r.Ensure(ctx, models.Identity{UserID: "pro", Name: "Other", Email: "other@example.com"})
	if err != nil || again.DisplayName != "Luca" {
		t.Fatalf("filled rows must stay as they are: %+v, %v", again, err)
	}
}

func TestEnsure_RequiresUserID(t *testing.T) {
	r := repair.New(setupStore(t), nil)
	if _, err := r.Ensure(context.Background(), models.Identity{}); !errors.Is(err, models.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestEnsure_CompleteProfileIsNotRewritten(t *testing.T) {
	m := mock.NewProfileRepo()
	m.Stored["c1"] = models.Profile{ID: "c1", Role: models.RoleClient, DisplayName: "Mario", Email: "mario@example.com"}
	r := repair.New(m, nil)

	p, err := r.Ensure(context.Background(), models.Identity{UserID: "c1", Name: "Someone Else", Email: "x@example.com"})
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if p.DisplayName != "Mario" || m.Ensured != 0 {
		t.Fatalf("complete profile must be returned as is, got %+v after %d ensures", p, m.Ensured)
	}
}

func TestEnsure_StoreErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("db down")

	m := mock.NewProfileRepo()
	m.GetErr = boom
	if _, err := repair.New(m, nil).Ensure(ctx, models.Identity{UserID: "u"}); !errors.Is(err, boom) || m.Ensured != 0 {
		t.Fatalf("lookup errors must pass through without a write, got %v", err)
	}

	m = mock.NewProfileRepo()
	m.EnsureErr = boom
	if _, err := repair.New(m, nil).Ensure(ctx, models.Identity{UserID: "u"}); !errors.Is(err, boom) {
		t.Fatalf("expected the ensure error, got %v", err)
	}
}

func TestDo_RepairsThroughProfileRepo(t *testing.T) {
	m := mock.NewProfileRepo()
	r := repair.New(m, nil)
	calls := 0
	err := r.Do(context.Background(), models.Identity{UserID: "u", Name: "Anna"}, func(ctx context.Context) error {
		calls++
		if _, err := m.GetProfile(ctx, "u"); err != nil {
			return models.ErrProfileMissing
		}
		return nil
	})
	if err != nil || calls != 2 || m.Ensured != 1 {
		t.Fatalf("expected one repair and a successful retry, got %v after %d calls, %d ensures", err, calls, m.Ensured)
	}
	if p := m.Stored["u"]; p.Role != models.RoleClient || p.DisplayName != "Anna" {
		t.Fatalf("unexpected repaired row %+v", p)
	}
}
