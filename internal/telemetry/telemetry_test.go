package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWithoutEndpoint(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{ServiceName: "agroai"})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitWithEndpoint(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{
		Endpoint:    "127.0.0.1:4318",
		ServiceName: "agroai-test",
		SampleRatio: 0.5,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// nothing was recorded, so shutdown has nothing to flush
	_ = shutdown(ctx)
}

func TestRatio(t *testing.T) {
	assert.Equal(t, 0.25, ratio(0.25))
	assert.Equal(t, 1.0, ratio(-1))
	assert.Equal(t, 1.0, ratio(3))
	assert.Equal(t, 0.0, ratio(0))
}
