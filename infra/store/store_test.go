package store

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kilianp07/smartcharge/core/factory"
	"github.com/kilianp07/smartcharge/core/state"
)

func exerciseStore(t *testing.T, s state.VariableStore) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := s.Get(ctx, state.VarStatus)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, state.VarStatus, "charging"))
	require.NoError(t, s.Set(ctx, state.VarStatus, "off_capacity"))
	v, ok, err := s.Get(ctx, state.VarStatus)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "off_capacity", v)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.Set(ctx, fmt.Sprintf("k%d", i), "v"))
		}(i)
	}
	wg.Wait()
	_, ok, err = s.Get(ctx, "k7")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vars.db")
	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	exerciseStore(t, s)
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()
	v, ok, err := reopened.Get(context.Background(), state.VarStatus)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "off_capacity", v)
}

func TestNew(t *testing.T) {
	b, err := New(factory.ModuleConfig{})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, b)

	b, err = New(factory.ModuleConfig{Type: "sqlite", Conf: map[string]any{"path": filepath.Join(t.TempDir(), "v.db")}})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, b)
	require.NoError(t, b.Close())

	_, err = New(factory.ModuleConfig{Type: "sqlite"})
	assert.Error(t, err)
	_, err = New(factory.ModuleConfig{Type: "etcd"})
	assert.Error(t, err)
}

func TestRedisStoreWithContainer(t *testing.T) {
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker not installed")
	}
	ctx := context.Background()
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp"),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("redis container: %v", err)
	}
	defer func() { _ = cont.Terminate(ctx) }()
	host, err := cont.Host(ctx)
	require.NoError(t, err)
	port, err := cont.MappedPort(ctx, "6379")
	require.NoError(t, err)

	s, err := NewRedisStore(RedisConfig{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	exerciseStore(t, s)
}

func TestNewRedisStore_Unreachable(t *testing.T) {
	_, err := NewRedisStore(RedisConfig{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}
