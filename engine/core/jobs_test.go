package core

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJobSystemValidation(t *testing.T) {
	_, err := NewJobSystem(0, 1)
	assert.ErrorIs(t, err, ErrNoWorkers)
	_, err = NewJobSystem(1, -1)
	assert.ErrorIs(t, err, ErrNegativeChannelSize)
}

func TestJobSystemRunsEveryJob(t *testing.T) {
	js, err := NewJobSystem(4, 8)
	require.NoError(t, err)
	assert.Equal(t, 4, js.Workers())

	var completed, failed, finished atomic.Int32
	var wg sync.WaitGroup
	boom := errors.New("boom")
	for i := 0; i < 32; i++ {
		i := i
		wg.Add(1)
		js.Submit(JobTask{
			OnStart: func() error {
				if i%4 == 0 {
					return boom
				}
				return nil
			},
			OnComplete: func() { completed.Add(1) },
			OnFailure: func(err error) {
				assert.ErrorIs(t, err, boom)
				failed.Add(1)
			},
			OnCompletionCallback: func() {
				finished.Add(1)
				wg.Done()
			},
		})
	}
	wg.Wait()
	assert.Equal(t, int32(24), completed.Load())
	assert.Equal(t, int32(8), failed.Load())
	assert.Equal(t, int32(32), finished.Load())

	require.NoError(t, js.Shutdown())
	require.NoError(t, js.Shutdown())
}

func TestJobSystemShutdownDrainsQueue(t *testing.T) {
	js, err := NewJobSystem(1, 16)
	require.NoError(t, err)

	var ran atomic.Int32
	for i := 0; i < 16; i++ {
		js.Submit(JobTask{OnStart: func() error {
			ran.Add(1)
			return nil
		}})
	}
	require.NoError(t, js.Shutdown())
	assert.Equal(t, int32(16), ran.Load())
}
