package bootstrap

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestRun_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var stopped, closed atomic.Bool

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, "127.0.0.1:0", http.NotFoundHandler(), zap.NewNop(), func() { closed.Store(true) }, Task{
			Name: "loop",
			Run: func(ctx context.Context) error {
				<-ctx.Done()
				stopped.Store(true)
				return ctx.Err()
			},
		})
	}()

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
	assert.True(t, closed.Load())
	assert.Eventually(t, stopped.Load, time.Second, 5*time.Millisecond)
}

func TestRun_ReturnsTaskFailure(t *testing.T) {
	boom := errors.New("broker gone")

	err := Run(context.Background(), "127.0.0.1:0", http.NotFoundHandler(), zap.NewNop(), nil, Task{
		Name: "consumer",
		Run:  func(context.Context) error { return boom },
	})

	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "consumer")
}
