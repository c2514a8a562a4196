//go:build integration

package integration

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicnotes/clinicnotes/internal/domain/finance"
	"github.com/clinicnotes/clinicnotes/internal/domain/layout"
	"github.com/clinicnotes/clinicnotes/internal/domain/patient"
	"github.com/clinicnotes/clinicnotes/internal/domain/visit"
	"github.com/clinicnotes/clinicnotes/internal/platform/db"
	"github.com/clinicnotes/clinicnotes/migrations"
)

// globalPool is the migrated test database, created once in TestMain.
var globalPool *pgxpool.Pool

func TestMain(m *testing.M) {
	ctx := context.Background()

	connStr, cleanup, err := startPostgresContainer(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to setup postgres container: %v\n", err)
		os.Exit(1)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		cleanup()
		fmt.Fprintf(os.Stderr, "create pool: %v\n", err)
		os.Exit(1)
	}
	if _, err := db.NewMigratorFS(pool, migrations.FS).Up(ctx); err != nil {
		pool.Close()
		cleanup()
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}

	globalPool = pool
	code := m.Run()
	pool.Close()
	cleanup()
	os.Exit(code)
}

// resetTables empties every domain table so tests start from a known state.
func resetTables(t *testing.T) {
	t.Helper()
	_, err := globalPool.Exec(context.Background(),
		`TRUNCATE patient, patient_counter, visit, layout_setting RESTART IDENTITY`)
	if err != nil {
		t.Fatalf("truncate: %v", err)
	}
}

type services struct {
	patients *patient.Service
	visits   *visit.Service
	layouts  *layout.Service
	charges  *finance.Service
}

func newServices() *services {
	patients := patient.NewService(patient.NewRepoPG(globalPool), patient.NewAllocator(patient.NewCounterPG(globalPool)))
	return &services{
		patients: patients,
		visits:   visit.NewService(visit.NewRepoPG(globalPool), patients),
		layouts:  layout.NewService(layout.NewRepoPG(globalPool)),
		charges:  finance.NewService(finance.NewRepoPG(globalPool)),
	}
}

func ptrStr(s string) *string { return &s }
