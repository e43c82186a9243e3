package worker

import (
	"container/list"
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

var (
	// ErrDispatcherBusy is returned when the submission queue is full.
	ErrDispatcherBusy    = errors.New("dispatcher queue full")
	ErrDispatcherStopped = errors.New("dispatcher stopped")
)

type DispatcherConfig struct {
	MinWorkers        int
	MaxWorkers        int
	QueueSize         int
	WorkerIdleTimeout time.Duration

	// Debug logs every assignment with the pool size.
	Debug bool
}

type keyQueue struct {
	jobs     []Job
	enqueued bool
}

// Dispatcher runs jobs on a bounded worker pool, taking one job per key in
// turn so that a single client cannot starve the others.
type Dispatcher struct {
	pool     *workerPool
	jobQueue chan Job
	quit     chan struct{}
	done     chan struct{}
	debug    bool

	stopMu  sync.RWMutex
	stopped bool

	mu        sync.Mutex
	queues    map[string]*keyQueue
	ready     *list.List // keys with pending jobs, least recently served first
	positions map[string]*list.Element
}

func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1
	}
	quit := make(chan struct{})
	d := &Dispatcher{
		pool:      newWorkerPool(cfg.MinWorkers, cfg.MaxWorkers, cfg.WorkerIdleTimeout, quit),
		jobQueue:  make(chan Job, cfg.QueueSize),
		quit:      quit,
		done:      make(chan struct{}),
		debug:     cfg.Debug,
		queues:    make(map[string]*keyQueue),
		ready:     list.New(),
		positions: make(map[string]*list.Element),
	}
	for i := 0; i < cfg.MinWorkers; i++ {
		d.pool.grow()
	}
	go d.run()
	return d
}

// Submit queues a job without blocking.
func (d *Dispatcher) Submit(job Job) error {
	d.stopMu.RLock()
	defer d.stopMu.RUnlock()
	if d.stopped {
		return ErrDispatcherStopped
	}
	select {
	case d.jobQueue <- job:
		return nil
	default:
		return ErrDispatcherBusy
	}
}

// Do runs fn on the pool and waits for it to finish. fn is skipped when ctx
// ends while the job is still queued.
func (d *Dispatcher) Do(ctx context.Context, key string, fn func(ctx context.Context)) error {
	done := make(chan struct{})
	skipped := false
	err := d.Submit(Job{Key: key, Run: func() {
		defer close(done)
		if ctx.Err() != nil {
			skipped = true
			return
		}
		fn(ctx)
	}})
	if err != nil {
		return err
	}
	<-done
	if skipped {
		return ctx.Err()
	}
	return nil
}

// Stats reports pool occupancy and jobs waiting for a worker.
type Stats struct {
	Running int `json:"running"`
	Idle    int `json:"idle"`
	Queued  int `json:"queued"`
}

func (d *Dispatcher) Stats() Stats {
	running, idle := d.pool.size()
	d.mu.Lock()
	queued := len(d.jobQueue)
	for _, q := range d.queues {
		queued += len(q.jobs)
	}
	d.mu.Unlock()
	return Stats{Running: running, Idle: idle, Queued: queued}
}

// Stop refuses new jobs. Jobs already submitted still run, after which the
// dispatch loop exits.
func (d *Dispatcher) Stop() {
	d.stopMu.Lock()
	defer d.stopMu.Unlock()
	if d.stopped {
		return
	}
	d.stopped = true
	close(d.quit)
}

// Done is closed once Stop was called and every accepted job was handed out.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for {
		if d.dispatchOne() {
			d.drainQueue()
			continue
		}
		select {
		case job := <-d.jobQueue:
			d.enqueueJob(job)
		case <-d.quit:
			// Submit holds stopMu, so nothing enters jobQueue after quit closes
			d.drainQueue()
			for d.dispatchOne() {
			}
			return
		}
	}
}

// drainQueue moves every submitted job into its key queue without blocking.
func (d *Dispatcher) drainQueue() {
	for {
		select {
		case job := <-d.jobQueue:
			d.enqueueJob(job)
		default:
			return
		}
	}
}

func (d *Dispatcher) enqueueJob(job Job) {
	d.mu.Lock()
	defer d.mu.Unlock()

	q := d.queues[job.Key]
	if q == nil {
		q = &keyQueue{}
		d.queues[job.Key] = q
	}
	q.jobs = append(q.jobs, job)
	if q.enqueued {
		return
	}
	q.enqueued = true
	d.positions[job.Key] = d.ready.PushBack(job.Key)
}

// dispatchOne waits for a free worker and hands it the next job. The job is
// picked only once a worker is free so keys arriving meanwhile get their turn.
func (d *Dispatcher) dispatchOne() bool {
	d.mu.Lock()
	pending := d.ready.Len() > 0
	d.mu.Unlock()
	if !pending {
		return false
	}
	workerChan := d.pool.acquire()
	d.drainQueue()
	job, _ := d.nextJob()
	if d.debug {
		running, idle := d.pool.size()
		log.Printf("[dispatcher] job for %s assigned (running=%d idle=%d)", job.Key, running, idle)
	}
	workerChan <- job
	return true
}

// nextJob pops the oldest job of the least recently served key
func (d *Dispatcher) nextJob() (Job, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	elem := d.ready.Front()
	if elem == nil {
		return Job{}, false
	}
	key := elem.Value.(string)
	q := d.queues[key]
	job := q.jobs[0]
	q.jobs = q.jobs[1:]
	if len(q.jobs) == 0 {
		d.ready.Remove(elem)
		delete(d.positions, key)
		delete(d.queues, key)
	} else {
		d.ready.MoveToBack(elem)
	}
	return job, true
}
