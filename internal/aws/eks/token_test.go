package eks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenProvider_CachesToken(t *testing.T) {
	calls := 0
	tp := &TokenProvider{
		generate: func(ctx context.Context) (string, time.Time, error) {
			calls++
			return "k8s-aws-v1.test-token", time.Now().Add(tokenLifetime), nil
		},
	}

	tok1, err := tp.Token(context.Background())
	require.NoError(t, err)
	tok2, err := tp.Token(context.Background())
	require.NoError(t, err)

	assert.Equal(t, tok1, tok2)
	assert.Equal(t, 1, calls)
}

func TestTokenProvider_RefreshesNearExpiry(t *testing.T) {
	calls := 0
	tp := &TokenProvider{
		generate: func(ctx context.Context) (string, time.Time, error) {
			calls++
			return fmt.Sprintf("k8s-aws-v1.token-%d", calls), time.Now().Add(tokenLifetime), nil
		},
	}

	tok1, err := tp.Token(context.Background())
	require.NoError(t, err)

	tp.mu.Lock()
	tp.expiry = time.Now().Add(30 * time.Second)
	tp.mu.Unlock()

	tok2, err := tp.Token(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, tok1, tok2)
	assert.Equal(t, 2, calls)
}

func TestTokenProvider_Concurrent(t *testing.T) {
	var calls atomic.Int32
	tp := &TokenProvider{
		generate: func(ctx context.Context) (string, time.Time, error) {
			calls.Add(1)
			return "k8s-aws-v1.shared", time.Now().Add(tokenLifetime), nil
		},
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok, err := tp.Token(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, "k8s-aws-v1.shared", tok)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestTokenProvider_GenerateError(t *testing.T) {
	tp := &TokenProvider{
		generate: func(ctx context.Context) (string, time.Time, error) {
			return "", time.Time{}, errors.New("sts failure")
		},
	}

	_, err := tp.Token(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sts failure")
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func TestWrapTransport_SetsBearer(t *testing.T) {
	tp := &TokenProvider{
		generate: func(ctx context.Context) (string, time.Time, error) {
			return "k8s-aws-v1.bearer-test", time.Now().Add(tokenLifetime), nil
		},
	}

	var captured *http.Request
	base := roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		captured = req
		return &http.Response{StatusCode: 200, Body: io.NopCloser(strings.NewReader(""))}, nil
	})

	req, err := http.NewRequest(http.MethodGet, "https://k8s.example.com/api/v1/nodes", nil)
	require.NoError(t, err)
	resp, err := tp.WrapTransport(base).RoundTrip(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.NotNil(t, captured)
	assert.Equal(t, "Bearer k8s-aws-v1.bearer-test", captured.Header.Get("Authorization"))
	assert.Empty(t, req.Header.Get("Authorization"), "original request must not be mutated")
}
