package worker

import (
	"log"
	"runtime/debug"
)

// Job is one unit of work. Jobs sharing a Key are run in submission order
// and take turns with jobs of other keys.
type Job struct {
	Key string
	Run func()

	stop bool
}

type Worker struct {
	pool       *workerPool
	jobChannel chan Job
}

func NewWorker(pool *workerPool) *Worker {
	return &Worker{
		pool:       pool,
		jobChannel: make(chan Job),
	}
}

func (w *Worker) Start() {
	go func() {
		w.pool.Release(w.jobChannel)
		for job := range w.jobChannel {
			if job.stop {
				w.pool.retire(w.jobChannel)
				return
			}
			w.run(job)
			w.pool.Release(w.jobChannel)
		}
	}()
}

func (w *Worker) run(job Job) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("worker job for %s panicked: %v\n%s", job.Key, r, debug.Stack())
		}
	}()
	if job.Run != nil {
		job.Run()
	}
}
