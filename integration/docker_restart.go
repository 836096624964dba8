//go:build integration
// +build integration

package integration

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// composeFile is the stack the e2e tests expect to be running; see the
// header of deploy/docker-compose.yml.
var composeFile = getenv("E2E_COMPOSE_FILE", filepath.Join("..", "deploy", "docker-compose.yml"))

// restartCatalogContainer bounces the catalog service so the test can check
// that state lives in Postgres rather than in the process.
func restartCatalogContainer(t *testing.T, ctx context.Context) {
	t.Helper()

	if _, err := exec.LookPath("docker"); err != nil {
		t.Skipf("E2E_RESTART_CATALOG needs docker on PATH: %v", err)
	}
	if _, err := os.Stat(composeFile); err != nil {
		t.Skipf("E2E_RESTART_CATALOG needs the compose stack from deploy/docker-compose.yml (set E2E_COMPOSE_FILE): %v", err)
	}

	cmd := exec.CommandContext(ctx, "docker", "compose", "-f", composeFile, "restart", "catalog")
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("docker compose -f %s restart catalog failed: %v\n%s", composeFile, err, out)
	}
}
