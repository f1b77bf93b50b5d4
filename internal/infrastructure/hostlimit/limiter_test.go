package hostlimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHostKey(t *testing.T) {
	assert.Equal(t, "amazon.de", HostKey("https://www.Amazon.de/dp/B08N5WRWNW"))
	assert.Equal(t, "cdn.example", HostKey("http://cdn.example:8080/a.jpg"))
	assert.Equal(t, "default", HostKey("/relative"))
}

func TestLimiter_PerHost(t *testing.T) {
	l := New(1, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.NoError(t, l.Wait(ctx, "https://a.example/1"))
	// a different host has its own bucket
	require.NoError(t, l.Wait(ctx, "https://b.example/1"))
	// the same host must wait about a second, longer than the context allows
	assert.Error(t, l.Wait(ctx, "https://www.a.example/2"))
}

func TestLimiter_Disabled(t *testing.T) {
	l := New(0, 0)
	for i := 0; i < 100; i++ {
		require.NoError(t, l.Wait(context.Background(), "https://a.example/"))
	}
}
