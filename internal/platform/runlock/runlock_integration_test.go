//go:build integration

package runlock_test

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"intakeguard/internal/platform/runlock"
)

type RunLockSuite struct {
	suite.Suite
	container testcontainers.Container
	client    *redis.Client
}

func TestRunLockSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RunLockSuite))
}

func (s *RunLockSuite) SetupSuite() {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	s.Require().NoError(err)
	s.container = container

	endpoint, err := container.Endpoint(ctx, "")
	s.Require().NoError(err)
	s.client = redis.NewClient(&redis.Options{Addr: endpoint})
	s.Require().NoError(s.client.Ping(ctx).Err())
}

func (s *RunLockSuite) TearDownSuite() {
	if s.client != nil {
		_ = s.client.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(context.Background())
	}
}

func (s *RunLockSuite) SetupTest() {
	s.Require().NoError(s.client.FlushAll(context.Background()).Err())
}

func (s *RunLockSuite) TestSecondHolderIsRejectedUntilRelease() {
	ctx := context.Background()
	a := runlock.New(s.client, "enforcement:lease", time.Minute)
	b := runlock.New(s.client, "enforcement:lease", time.Minute)

	ok, err := a.Acquire(ctx)
	s.Require().NoError(err)
	s.True(ok)

	ok, err = b.Acquire(ctx)
	s.Require().NoError(err)
	s.False(ok)

	s.Require().NoError(a.Release(ctx))

	ok, err = b.Acquire(ctx)
	s.Require().NoError(err)
	s.True(ok)
}

func (s *RunLockSuite) TestStaleReleaseDoesNotFreeNewHolder() {
	ctx := context.Background()
	a := runlock.New(s.client, "enforcement:lease", time.Minute)
	b := runlock.New(s.client, "enforcement:lease", time.Minute)

	ok, err := a.Acquire(ctx)
	s.Require().NoError(err)
	s.Require().True(ok)

	// Simulate a's TTL lapsing mid-run and b taking over.
	s.Require().NoError(s.client.Del(ctx, "enforcement:lease").Err())
	ok, err = b.Acquire(ctx)
	s.Require().NoError(err)
	s.Require().True(ok)

	// a's deferred release must not delete the lease b now holds.
	s.Require().NoError(a.Release(ctx))

	ok, err = a.Acquire(ctx)
	s.Require().NoError(err)
	s.False(ok, "lease should still belong to b")
}

func (s *RunLockSuite) TestReleaseWithoutAcquireIsNoOp() {
	ctx := context.Background()
	a := runlock.New(s.client, "enforcement:lease", time.Minute)
	b := runlock.New(s.client, "enforcement:lease", time.Minute)

	ok, err := a.Acquire(ctx)
	s.Require().NoError(err)
	s.Require().True(ok)

	s.Require().NoError(b.Release(ctx))

	ok, err = b.Acquire(ctx)
	s.Require().NoError(err)
	s.False(ok)
}
