package redis

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const testTimeout = 5 * time.Second

// TestMain поднимает Redis в контейнере, если включены интеграционные тесты.
func TestMain(m *testing.M) {
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		os.Exit(m.Run())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	redisC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start redis testcontainer: %v\n", err)
		os.Exit(1)
	}

	endpoint, err := redisC.Endpoint(ctx, "")
	if err != nil {
		_ = redisC.Terminate(ctx)
		fmt.Fprintf(os.Stderr, "failed to get redis endpoint: %v\n", err)
		os.Exit(1)
	}

	_ = os.Setenv("REDIS_URL", "redis://"+endpoint+"/0")

	code := m.Run()

	_ = redisC.Terminate(context.Background())
	os.Exit(code)
}

func mustNewDedup(t *testing.T) *Dedup {
	t.Helper()

	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("set GO_TEST_INTEGRATION=1 to run redis integration tests")
	}

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	// Уникальный префикс изолирует тесты друг от друга.
	d, err := New(ctx, os.Getenv("REDIS_URL"), "test:"+uuid.NewString()+":")
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	return d
}

func TestNew_BadURL(t *testing.T) {
	_, err := New(context.Background(), "://nope", "")
	require.Error(t, err)
}

func TestNewDedup_DefaultPrefix(t *testing.T) {
	d := newDedup(nil, "")
	require.Equal(t, "notify:seen:c-1", d.key("c-1"))

	d = newDedup(nil, "x:")
	require.Equal(t, "x:c-1", d.key("c-1"))
}

func TestFirstSeen(t *testing.T) {
	d := mustNewDedup(t)

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	first, err := d.FirstSeen(ctx, "change-1", time.Minute)
	require.NoError(t, err)
	require.True(t, first)

	again, err := d.FirstSeen(ctx, "change-1", time.Minute)
	require.NoError(t, err)
	require.False(t, again)

	other, err := d.FirstSeen(ctx, "change-2", time.Minute)
	require.NoError(t, err)
	require.True(t, other)

	ttl, err := d.rdb.TTL(ctx, d.key("change-1")).Result()
	require.NoError(t, err)
	require.Greater(t, ttl, time.Duration(0))
	require.LessOrEqual(t, ttl, time.Minute)
}

func TestForget(t *testing.T) {
	d := mustNewDedup(t)

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	first, err := d.FirstSeen(ctx, "change-forget", time.Minute)
	require.NoError(t, err)
	require.True(t, first)

	require.NoError(t, d.Forget(ctx, "change-forget"))

	again, err := d.FirstSeen(ctx, "change-forget", time.Minute)
	require.NoError(t, err)
	require.True(t, again)

	// Снятие отсутствующей отметки: не ошибка.
	require.NoError(t, d.Forget(ctx, "never-seen"))
}
