//go:build integration

package testutils

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	clickhouseImage   = "clickhouse/clickhouse-server:24.8"
	clickhouseUser    = "ledger"
	clickhousePass    = "ledger"
	clickhouseHostEnv = "CLICKHOUSE_HOSTS"
	startupTimeout    = 60 * time.Second
)

// ClickHouse describes a server reachable by integration tests.
type ClickHouse struct {
	Host     string
	Username string
	Password string
}

// StartClickHouse returns a server for integration tests. When CLICKHOUSE_HOSTS
// is set (directly or through .env.test next to this file) that server is used;
// otherwise a container is started and terminated on cleanup.
func StartClickHouse(t *testing.T) ClickHouse {
	t.Helper()
	loadTestEnv()

	if host := os.Getenv(clickhouseHostEnv); host != "" {
		return ClickHouse{
			Host:     host,
			Username: os.Getenv("CLICKHOUSE_USERNAME"),
			Password: os.Getenv("CLICKHOUSE_PASSWORD"),
		}
	}

	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        clickhouseImage,
		ExposedPorts: []string{"9000/tcp"},
		HostConfigModifier: func(hc *container.HostConfig) {
			hc.PortBindings = map[nat.Port][]nat.PortBinding{
				"9000/tcp": {{HostIP: "127.0.0.1", HostPort: "19000"}},
			}
		},
		Env: map[string]string{
			"CLICKHOUSE_USER":                      clickhouseUser,
			"CLICKHOUSE_PASSWORD":                  clickhousePass,
			"CLICKHOUSE_DEFAULT_ACCESS_MANAGEMENT": "1",
		},
		WaitingFor: wait.ForListeningPort("9000/tcp").WithStartupTimeout(startupTimeout),
	}
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := c.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate ClickHouse container: %v", err)
		}
	})

	return ClickHouse{
		Host:     "127.0.0.1:19000",
		Username: clickhouseUser,
		Password: clickhousePass,
	}
}

func loadTestEnv() {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return
	}
	_ = godotenv.Load(filepath.Join(filepath.Dir(file), ".env.test"))
}
