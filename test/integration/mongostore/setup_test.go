//go:build integration

package mongostore

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/clinicnotes/clinicnotes/internal/domain/finance"
	"github.com/clinicnotes/clinicnotes/internal/domain/layout"
	"github.com/clinicnotes/clinicnotes/internal/domain/patient"
	"github.com/clinicnotes/clinicnotes/internal/domain/visit"
	"github.com/clinicnotes/clinicnotes/internal/platform/docstore"
)

// globalDB is the indexed test database, created once in TestMain.
var globalDB *mongo.Database

func TestMain(m *testing.M) {
	ctx := context.Background()

	uri, cleanup, err := startMongoContainer(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to setup mongo container: %v\n", err)
		os.Exit(1)
	}

	database, err := docstore.Connect(ctx, uri, "clinicnotes")
	if err != nil {
		cleanup()
		fmt.Fprintf(os.Stderr, "connect: %v\n", err)
		os.Exit(1)
	}
	if _, err := docstore.EnsureIndexes(ctx, database); err != nil {
		cleanup()
		fmt.Fprintf(os.Stderr, "ensure indexes: %v\n", err)
		os.Exit(1)
	}

	globalDB = database
	code := m.Run()
	_ = database.Client().Disconnect(ctx)
	cleanup()
	os.Exit(code)
}

// startMongoContainer runs mongo:7 through the Docker CLI and returns the
// connection URI and a cleanup function.
func startMongoContainer(ctx context.Context) (string, func(), error) {
	l, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		return "", nil, fmt.Errorf("find free port: %w", err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()

	containerName := fmt.Sprintf("clinicnotes-mongo-%d", port)
	exec.CommandContext(ctx, "docker", "rm", "-f", containerName).Run()

	output, err := exec.CommandContext(ctx, "docker", "run",
		"--name", containerName,
		"-d",
		"-p", fmt.Sprintf("%d:27017", port),
		"mongo:7",
	).CombinedOutput()
	if err != nil {
		return "", nil, fmt.Errorf("docker run: %w\noutput: %s", err, string(output))
	}
	containerID := strings.TrimSpace(string(output))
	cleanup := func() {
		exec.Command("docker", "rm", "-f", containerID).Run()
	}

	uri := fmt.Sprintf("mongodb://localhost:%d", port)
	deadline := time.Now().Add(30 * time.Second)
	for {
		database, err := docstore.Connect(ctx, uri, "clinicnotes")
		if err == nil {
			_ = database.Client().Disconnect(ctx)
			return uri, cleanup, nil
		}
		if time.Now().After(deadline) {
			cleanup()
			return "", nil, fmt.Errorf("mongo not ready: %w", err)
		}
		time.Sleep(500 * time.Millisecond)
	}
}

// resetCollections empties every collection but keeps the indexes.
func resetCollections(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	for _, name := range []string{
		docstore.PatientsCollection, docstore.VisitsCollection,
		docstore.SettingsCollection, docstore.CountersCollection,
	} {
		if _, err := globalDB.Collection(name).DeleteMany(ctx, bson.M{}); err != nil {
			t.Fatalf("reset %s: %v", name, err)
		}
	}
}

type services struct {
	patients *patient.Service
	visits   *visit.Service
	layouts  *layout.Service
	charges  *finance.Service
}

func newServices() *services {
	patients := patient.NewService(patient.NewRepoMongo(globalDB), patient.NewAllocator(patient.NewCounterMongo(globalDB)))
	return &services{
		patients: patients,
		visits:   visit.NewService(visit.NewRepoMongo(globalDB), patients),
		layouts:  layout.NewService(layout.NewRepoMongo(globalDB)),
		charges:  finance.NewService(finance.NewRepoMongo(globalDB)),
	}
}

func ptrStr(s string) *string { return &s }

func charged(t *testing.T, d *visit.Data, amount string) *visit.Data {
	t.Helper()
	if err := d.AmountCharged.UnmarshalJSON([]byte(amount)); err != nil {
		t.Fatalf("amount %s: %v", amount, err)
	}
	return d
}
