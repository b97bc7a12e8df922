package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestSweeper_Run(t *testing.T) {
	t.Run("sweeps until the context is cancelled", func(t *testing.T) {
		mDocs := new(mockLifecycle)
		var sweeps atomic.Int32

		done := make(chan struct{})
		mDocs.On("SweepExpired", mock.Anything).Run(func(mock.Arguments) {
			if sweeps.Add(1) == 2 {
				close(done)
			}
		}).Return(1, nil)

		ctx, cancel := context.WithCancel(context.Background())
		sw := NewSweeper(mDocs, 5*time.Millisecond)

		stopped := make(chan struct{})
		go func() {
			sw.Run(ctx)
			close(stopped)
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("sweeper never ticked twice")
		}
		cancel()

		select {
		case <-stopped:
		case <-time.After(time.Second):
			t.Fatal("sweeper did not stop on cancel")
		}
		assert.GreaterOrEqual(t, sweeps.Load(), int32(2))
	})

	t.Run("keeps running after a failed sweep", func(t *testing.T) {
		mDocs := new(mockLifecycle)
		var sweeps atomic.Int32

		done := make(chan struct{})
		mDocs.On("SweepExpired", mock.Anything).Run(func(mock.Arguments) {
			if sweeps.Add(1) == 2 {
				close(done)
			}
		}).Return(0, errors.New("db down"))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		sw := NewSweeper(mDocs, 5*time.Millisecond)
		go sw.Run(ctx)

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("sweeper stopped after a failed sweep")
		}
	})
}
