package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/distribuidora-pyg/workers-go/internal/db"
)

const (
	dbUser     = "distribuidora"
	dbPassword = "distribuidora"
	dbName     = "distribuidora"
)

// StartPostgres launches a temporary Postgres container, applies the worker
// migrations, and returns the DSN plus a cleanup function.
func StartPostgres(ctx context.Context, t *testing.T) (string, func()) {
	t.Helper()

	containerName := "workers-int-" + uuid.NewString()
	runArgs := []string{
		"run", "--rm", "-d",
		"-e", fmt.Sprintf("POSTGRES_USER=%s", dbUser),
		"-e", fmt.Sprintf("POSTGRES_PASSWORD=%s", dbPassword),
		"-e", fmt.Sprintf("POSTGRES_DB=%s", dbName),
		"-P",
		"--name", containerName,
		"postgres:16-alpine",
	}

	if err := exec.CommandContext(ctx, "docker", runArgs...).Run(); err != nil {
		t.Fatalf("start postgres container: %v", err)
	}

	cleanup := func() {
		_ = exec.Command("docker", "stop", containerName).Run()
	}

	hostPort := waitForPort(ctx, t, containerName)
	dsn := fmt.Sprintf("postgres://%s:%s@localhost:%s/%s?sslmode=disable", dbUser, dbPassword, hostPort, dbName)

	waitForReady(ctx, t, dsn)

	if err := db.RunMigrations(dsn, zerolog.Nop()); err != nil {
		cleanup()
		t.Fatalf("run migrations: %v", err)
	}

	return dsn, cleanup
}

func waitForPort(ctx context.Context, t *testing.T, containerName string) string {
	t.Helper()

	deadline := time.Now().Add(30 * time.Second)
	for {
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for postgres port")
		}

		out, err := exec.CommandContext(ctx, "docker", "port", containerName, "5432/tcp").Output()
		if err == nil {
			parts := strings.Split(strings.TrimSpace(string(out)), ":")
			if len(parts) == 2 {
				return parts[1]
			}
		}

		select {
		case <-ctx.Done():
			t.Fatalf("context cancelled waiting for postgres port: %v", ctx.Err())
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func waitForReady(ctx context.Context, t *testing.T, dsn string) {
	t.Helper()

	deadline := time.Now().Add(30 * time.Second)
	var lastErr error
	for {
		conn, err := sql.Open("postgres", dsn)
		if err == nil {
			pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			err = conn.PingContext(pingCtx)
			cancel()
			_ = conn.Close()
			if err == nil {
				return
			}
		}
		lastErr = err

		if time.Now().After(deadline) {
			t.Fatalf("timeout connecting to postgres: %v", lastErr)
		}

		select {
		case <-ctx.Done():
			t.Fatalf("context cancelled connecting to postgres: %v", ctx.Err())
		case <-time.After(500 * time.Millisecond):
		}
	}
}
