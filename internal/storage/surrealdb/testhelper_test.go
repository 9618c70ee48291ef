package surrealdb

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bobmcallan/tally/internal/common"
	surreal "github.com/surrealdb/surrealdb.go"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	surrealOnce    sync.Once
	surrealAddress string
	surrealError   error
)

// startSurrealDB starts one shared SurrealDB container for the package's tests.
// TALLY_TEST_SURREALDB_ADDRESS points the tests at an existing server instead.
func startSurrealDB(t *testing.T) string {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping SurrealDB integration test in short mode")
	}

	surrealOnce.Do(func() {
		if addr := os.Getenv("TALLY_TEST_SURREALDB_ADDRESS"); addr != "" {
			surrealAddress = addr
			return
		}

		ctx := context.Background()
		req := testcontainers.ContainerRequest{
			Image:        "surrealdb/surrealdb:v3.0.0",
			ExposedPorts: []string{"8000/tcp"},
			Cmd:          []string{"start", "--user", "root", "--pass", "root"},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("8000/tcp"),
				wait.ForLog("Started web server"),
			).WithDeadline(60 * time.Second),
		}

		container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: req,
			Started:          true,
		})
		if err != nil {
			surrealError = fmt.Errorf("start SurrealDB container: %w", err)
			return
		}

		host, err := container.Host(ctx)
		if err != nil {
			container.Terminate(ctx)
			surrealError = fmt.Errorf("get SurrealDB host: %w", err)
			return
		}

		mappedPort, err := container.MappedPort(ctx, "8000/tcp")
		if err != nil {
			container.Terminate(ctx)
			surrealError = fmt.Errorf("get SurrealDB port: %w", err)
			return
		}

		surrealAddress = fmt.Sprintf("ws://%s:%s/rpc", host, mappedPort.Port())
	})

	if surrealError != nil {
		t.Skipf("SurrealDB unavailable: %v", surrealError)
	}
	return surrealAddress
}

// testDBName returns a database name unique to the running test.
// SurrealDB rejects "/" in database names, which subtests produce.
func testDBName(t *testing.T) string {
	sanitized := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	return fmt.Sprintf("t_%s_%d", sanitized, time.Now().UnixNano()%100000)
}

// testDB returns a connection to a fresh database on the shared container.
func testDB(t *testing.T) *surreal.DB {
	t.Helper()

	addr := startSurrealDB(t)
	ctx := context.Background()

	db, err := surreal.New(addr)
	if err != nil {
		t.Fatalf("connect to SurrealDB: %v", err)
	}

	if _, err := db.SignIn(ctx, map[string]interface{}{
		"user": "root",
		"pass": "root",
	}); err != nil {
		t.Fatalf("sign in to SurrealDB: %v", err)
	}

	if err := db.Use(ctx, "tally_test", testDBName(t)); err != nil {
		t.Fatalf("select namespace/database: %v", err)
	}

	t.Cleanup(func() {
		db.Close(context.Background())
	})

	return db
}

func testConfig(t *testing.T) *common.Config {
	t.Helper()
	cfg := common.NewDefaultConfig()
	cfg.Environment = "test"
	cfg.Storage.Address = startSurrealDB(t)
	cfg.Storage.Namespace = "tally_test"
	cfg.Storage.Database = "mgr_" + testDBName(t)
	return cfg
}
