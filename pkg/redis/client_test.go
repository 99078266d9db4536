package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ConnectsAndRoundTrips(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	client, err := New(ctx, Config{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.Set(ctx, "k", "v", time.Minute))
	value, err := client.Get(ctx, "k")
	assert.NoError(t, err)
	assert.Equal(t, "v", value)
	assert.Equal(t, time.Minute, mr.TTL("k"))

	require.NoError(t, client.Delete(ctx, "k"))
	_, err = client.Get(ctx, "k")
	assert.True(t, IsNil(err))

	assert.NoError(t, client.HealthCheck(ctx))
}

func TestNew_FailsWhenUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := New(context.Background(), Config{Addr: addr, MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	assert.Error(t, err)
}

func TestMetricsClient_CountsRequests(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	client, err := New(ctx, Config{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	m := NewMetricsClient(client)
	gets := testutil.ToFloat64(redisRequestsTotal.WithLabelValues("get"))
	getErrors := testutil.ToFloat64(redisErrorsTotal.WithLabelValues("get"))

	_, err = m.Get(ctx, "missing")
	assert.True(t, IsNil(err))
	require.NoError(t, m.Set(ctx, "present", "1", 0))
	_, err = m.Get(ctx, "present")
	assert.NoError(t, err)

	assert.Equal(t, gets+2, testutil.ToFloat64(redisRequestsTotal.WithLabelValues("get")))
	assert.Equal(t, getErrors, testutil.ToFloat64(redisErrorsTotal.WithLabelValues("get")))
}
