// Package postgrescontainer starts a throwaway PostgreSQL instance in Docker
// for integration tests of the durable cache store.
package postgrescontainer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	_ "github.com/lib/pq"
)

// ErrDockerUnavailable is returned by Setup when the docker CLI is missing.
var ErrDockerUnavailable = errors.New("postgrescontainer: docker not available")

const (
	image         = "postgres:16-alpine"
	containerName = "go-shopcache-postgres-test"
	hostPort      = "55433"
	user          = "shop"
	password      = "secret"
	dbName        = "shopcache_test"
)

var (
	mu       sync.Mutex
	started  bool
	setupErr error
)

// Addr returns host:port for connecting to the test Postgres instance.
func Addr() string { return "127.0.0.1:" + hostPort }

// DSN returns a lib/pq formatted connection string. SHOP_TEST_POSTGRES_DSN
// overrides it so tests can target an existing server.
func DSN() string {
	if dsn := os.Getenv("SHOP_TEST_POSTGRES_DSN"); dsn != "" {
		return dsn
	}
	return fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=disable", user, password, Addr(), dbName)
}

// Setup launches the container unless SHOP_TEST_POSTGRES_DSN points at a
// running server. It is safe to call from several tests.
func Setup() error {
	mu.Lock()
	defer mu.Unlock()
	if started || setupErr != nil {
		return setupErr
	}

	if os.Getenv("SHOP_TEST_POSTGRES_DSN") == "" {
		if _, err := exec.LookPath("docker"); err != nil {
			setupErr = fmt.Errorf("%w: %v", ErrDockerUnavailable, err)
			return setupErr
		}
		_ = stopContainer()
		if err := runDocker(
			"run", "-d", "--rm",
			"--name", containerName,
			"-e", "POSTGRES_USER="+user,
			"-e", "POSTGRES_PASSWORD="+password,
			"-e", "POSTGRES_DB="+dbName,
			"-p", hostPort+":5432",
			image,
		); err != nil {
			setupErr = err
			return setupErr
		}
	}

	if err := waitForPostgres(DSN(), 30*time.Second); err != nil {
		setupErr = err
		return setupErr
	}
	started = true
	return nil
}

// Teardown stops the container launched by Setup.
func Teardown() error {
	mu.Lock()
	defer mu.Unlock()
	if !started || os.Getenv("SHOP_TEST_POSTGRES_DSN") != "" {
		return nil
	}
	started = false
	return stopContainer()
}

func stopContainer() error {
	output, err := exec.Command("docker", "stop", containerName).CombinedOutput()
	if err != nil {
		if strings.Contains(string(output), "No such container") {
			return nil
		}
		return fmt.Errorf("docker stop failed: %w: %s", err, output)
	}
	return nil
}

func runDocker(args ...string) error {
	output, err := exec.Command("docker", args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("docker %s failed: %w: %s", args[0], err, output)
	}
	return nil
}

func waitForPostgres(dsn string, timeout time.Duration) error {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		err := db.PingContext(ctx)
		cancel()
		if err == nil {
			return nil
		}
		time.Sleep(250 * time.Millisecond)
	}
	return errors.New("postgres container did not become ready in time")
}
