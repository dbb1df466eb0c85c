package core

import (
	"errors"
	"sync"
)

var ErrNoWorkers = errors.New("attempting to create worker pool with less than 1 worker")
var ErrNegativeChannelSize = errors.New("attempting to create worker pool with a negative channel size")

/**
 * @brief A unit of work for the job system. OnStart runs on a worker; the
 * other callbacks run on the same worker right after it.
 */
type JobTask struct {
	OnStart    func() error
	OnComplete func()
	OnFailure  func(err error)
	// called after OnComplete or OnFailure
	OnCompletionCallback func()
}

// JobSystem is a fixed pool of workers draining a shared queue.
type JobSystem struct {
	numWorkers int
	jobQueue   chan JobTask
	wg         sync.WaitGroup
	closeOnce  sync.Once
}

func NewJobSystem(numWorkers int, channelSize int) (*JobSystem, error) {
	if numWorkers <= 0 {
		return nil, ErrNoWorkers
	}
	if channelSize < 0 {
		return nil, ErrNegativeChannelSize
	}

	js := &JobSystem{
		numWorkers: numWorkers,
		jobQueue:   make(chan JobTask, channelSize),
	}
	js.start()
	return js, nil
}

func (js *JobSystem) start() {
	for i := 0; i < js.numWorkers; i++ {
		js.wg.Add(1)
		go func() {
			defer js.wg.Done()
			for job := range js.jobQueue {
				js.run(job)
			}
		}()
	}
}

func (js *JobSystem) run(job JobTask) {
	if job.OnCompletionCallback != nil {
		defer job.OnCompletionCallback()
	}
	if err := job.OnStart(); err != nil {
		LogError("%s", err)
		if job.OnFailure != nil {
			job.OnFailure(err)
		}
		return
	}
	if job.OnComplete != nil {
		job.OnComplete()
	}
}

func (js *JobSystem) Workers() int {
	return js.numWorkers
}

/**
 * @brief Submits the provided job to be queued for execution. Blocks while
 * the queue is full.
 */
func (js *JobSystem) Submit(jt JobTask) {
	js.jobQueue <- jt
}

/**
 * @brief Shuts the job system down after the queued jobs ran. No job may be
 * submitted afterwards.
 */
func (js *JobSystem) Shutdown() error {
	js.closeOnce.Do(func() {
		close(js.jobQueue)
	})
	js.wg.Wait()
	return nil
}
