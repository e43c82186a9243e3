package worker

import (
	"sync"
	"time"
)

const defaultWorkerIdle = 30 * time.Second

// slot tracks one worker goroutine owned by the pool.
type slot struct {
	ch       chan Job
	lastUsed time.Time
	idle     bool
	retiring bool
}

// workerPool hands out worker channels. Idle workers form a stack so the most
// recently used one is reused first and the rest can age out.
type workerPool struct {
	mu      sync.Mutex
	cond    *sync.Cond
	idle    []*slot
	slots   map[chan Job]*slot
	min     int
	max     int
	running int
	expiry  time.Duration
	quit    <-chan struct{}
}

func newWorkerPool(minWorkers, maxWorkers int, expiry time.Duration, quit <-chan struct{}) *workerPool {
	if expiry <= 0 {
		expiry = defaultWorkerIdle
	}
	if minWorkers < 0 {
		minWorkers = 0
	}
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	if maxWorkers < minWorkers {
		maxWorkers = minWorkers
	}
	p := &workerPool{
		slots:  make(map[chan Job]*slot),
		min:    minWorkers,
		max:    maxWorkers,
		expiry: expiry,
		quit:   quit,
	}
	p.cond = sync.NewCond(&p.mu)
	go p.reapLoop()
	return p
}

// grow starts a worker unless the pool is already at max.
func (p *workerPool) grow() {
	p.mu.Lock()
	if p.running >= p.max {
		p.mu.Unlock()
		return
	}
	w := p.addLocked()
	p.mu.Unlock()
	w.Start()
}

func (p *workerPool) addLocked() *Worker {
	w := NewWorker(p)
	p.slots[w.jobChannel] = &slot{ch: w.jobChannel}
	p.running++
	return w
}

// acquire blocks until a worker is free, starting new ones below max.
func (p *workerPool) acquire() chan Job {
	p.mu.Lock()
	defer p.mu.Unlock()
	for {
		if s := p.popLocked(); s != nil {
			return s.ch
		}
		if p.running < p.max {
			// the new worker signals once it parks itself through Release
			p.addLocked().Start()
		}
		p.cond.Wait()
	}
}

// Release marks the worker behind ch as idle again.
func (p *workerPool) Release(ch chan Job) {
	p.mu.Lock()
	s, ok := p.slots[ch]
	if !ok || s.retiring || s.idle {
		p.mu.Unlock()
		return
	}
	s.idle = true
	s.lastUsed = time.Now()
	p.idle = append(p.idle, s)
	p.mu.Unlock()
	p.cond.Signal()
}

func (p *workerPool) retire(ch chan Job) {
	p.mu.Lock()
	if _, ok := p.slots[ch]; ok {
		delete(p.slots, ch)
		p.running--
	}
	p.mu.Unlock()
	p.cond.Broadcast()
}

func (p *workerPool) popLocked() *slot {
	for n := len(p.idle); n > 0; n = len(p.idle) {
		s := p.idle[n-1]
		p.idle = p.idle[:n-1]
		if s.retiring {
			continue
		}
		s.idle = false
		return s
	}
	return nil
}

func (p *workerPool) size() (running, idle int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running, len(p.idle)
}

func (p *workerPool) reapLoop() {
	ticker := time.NewTicker(p.expiry)
	defer ticker.Stop()
	for {
		select {
		case <-p.quit:
			return
		case now := <-ticker.C:
			p.reap(now)
		}
	}
}

// reap stops workers idle for longer than expiry without going below min.
// The stack keeps the longest idle workers at the bottom.
func (p *workerPool) reap(now time.Time) {
	p.mu.Lock()
	excess := p.running - p.min
	var stale []*slot
	for len(p.idle) > 0 && len(stale) < excess {
		s := p.idle[0]
		if now.Sub(s.lastUsed) < p.expiry {
			break
		}
		p.idle = p.idle[1:]
		s.idle = false
		s.retiring = true
		stale = append(stale, s)
	}
	p.mu.Unlock()

	for _, s := range stale {
		s.ch <- Job{stop: true}
	}
}
