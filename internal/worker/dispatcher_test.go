package worker

import (
	"container/list"
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestNextJobRotatesKeys(t *testing.T) {
	d := &Dispatcher{
		queues:    make(map[string]*keyQueue),
		ready:     list.New(),
		positions: make(map[string]*list.Element),
	}
	for _, j := range []Job{{Key: "a"}, {Key: "a"}, {Key: "a"}, {Key: "b"}, {Key: "c"}} {
		d.enqueueJob(j)
	}
	var order []string
	for {
		job, ok := d.nextJob()
		if !ok {
			break
		}
		order = append(order, job.Key)
	}
	want := []string{"a", "b", "c", "a", "a"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
	if len(d.queues) != 0 || len(d.positions) != 0 {
		t.Fatalf("drained dispatcher should hold no keys")
	}
}

func TestDispatcherRunsSameKeyInOrder(t *testing.T) {
	d := NewDispatcher(DispatcherConfig{MinWorkers: 1, MaxWorkers: 1, QueueSize: 10})
	defer d.Stop()

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		i := i
		wg.Add(1)
		if err := d.Submit(Job{Key: "client", Run: func() {
			defer wg.Done()
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		}}); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}
	waitGroup(t, &wg)
	for i, v := range order {
		if v != i {
			t.Fatalf("expected submission order, got %v", order)
		}
	}
}

func TestDispatcherReportsBusy(t *testing.T) {
	d := NewDispatcher(DispatcherConfig{MinWorkers: 1, MaxWorkers: 1, QueueSize: 1})
	defer d.Stop()

	block := make(chan struct{})
	started := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(3)
	if err := d.Submit(Job{Key: "a", Run: func() { defer wg.Done(); close(started); <-block }}); err != nil {
		t.Fatalf("submit first: %v", err)
	}
	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatalf("first job did not start")
	}
	// the dispatcher takes the second job and waits for a free worker
	if err := d.Submit(Job{Key: "b", Run: wg.Done}); err != nil {
		t.Fatalf("submit second: %v", err)
	}
	deadline := time.Now().Add(time.Second)
	for len(d.jobQueue) > 0 {
		if time.Now().After(deadline) {
			t.Fatalf("second job not picked up")
		}
		time.Sleep(time.Millisecond)
	}
	if err := d.Submit(Job{Key: "c", Run: wg.Done}); err != nil {
		t.Fatalf("submit third: %v", err)
	}
	if err := d.Submit(Job{Key: "d", Run: func() {}}); !errors.Is(err, ErrDispatcherBusy) {
		t.Fatalf("expected ErrDispatcherBusy, got %v", err)
	}
	close(block)
	waitGroup(t, &wg)
}

func TestDoSkipsCanceledContext(t *testing.T) {
	d := NewDispatcher(DispatcherConfig{MinWorkers: 1, MaxWorkers: 2, QueueSize: 4})
	defer d.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	if err := d.Do(ctx, "a", func(context.Context) { called = true }); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
	if called {
		t.Fatalf("canceled job must not run")
	}
}

func TestDoSurvivesPanickingJob(t *testing.T) {
	d := NewDispatcher(DispatcherConfig{MinWorkers: 1, MaxWorkers: 1, QueueSize: 4})
	defer d.Stop()

	if err := d.Do(context.Background(), "a", func(context.Context) { panic("boom") }); err != nil {
		t.Fatalf("do: %v", err)
	}
	ran := false
	if err := d.Do(context.Background(), "a", func(context.Context) { ran = true }); err != nil || !ran {
		t.Fatalf("worker should keep serving after a panic: ran=%v err=%v", ran, err)
	}
}

func TestStopRunsAcceptedJobsThenExits(t *testing.T) {
	d := NewDispatcher(DispatcherConfig{MinWorkers: 1, MaxWorkers: 1, QueueSize: 4})

	block := make(chan struct{})
	started := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(2)
	if err := d.Submit(Job{Key: "a", Run: func() { defer wg.Done(); close(started); <-block }}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	<-started
	if err := d.Submit(Job{Key: "b", Run: wg.Done}); err != nil {
		t.Fatalf("submit queued: %v", err)
	}
	d.Stop()
	d.Stop()
	if err := d.Submit(Job{Key: "c", Run: func() {}}); !errors.Is(err, ErrDispatcherStopped) {
		t.Fatalf("expected ErrDispatcherStopped, got %v", err)
	}

	close(block)
	waitGroup(t, &wg)
	select {
	case <-d.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("dispatch loop did not exit after stop")
	}
}

func TestStatsCountsQueuedJobs(t *testing.T) {
	d := NewDispatcher(DispatcherConfig{MinWorkers: 1, MaxWorkers: 1, QueueSize: 4})
	defer d.Stop()

	block := make(chan struct{})
	started := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(3)
	if err := d.Submit(Job{Key: "a", Run: func() { defer wg.Done(); close(started); <-block }}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	<-started
	for _, key := range []string{"a", "b"} {
		if err := d.Submit(Job{Key: key, Run: func() { wg.Done() }}); err != nil {
			t.Fatalf("submit %s: %v", key, err)
		}
	}
	waitFor(t, func() bool { return d.Stats().Queued == 2 })
	if st := d.Stats(); st.Running != 1 || st.Idle != 0 {
		t.Fatalf("unexpected stats %+v", st)
	}
	close(block)
	waitGroup(t, &wg)
	waitFor(t, func() bool { return d.Stats() == Stats{Running: 1, Idle: 1} })
}

func TestReapKeepsMinimum(t *testing.T) {
	quit := make(chan struct{})
	defer close(quit)
	p := newWorkerPool(1, 3, time.Hour, quit)
	for i := 0; i < 3; i++ {
		p.grow()
	}
	waitFor(t, func() bool { _, idle := p.size(); return idle == 3 })

	p.reap(time.Now().Add(2 * time.Hour))
	waitFor(t, func() bool { running, _ := p.size(); return running == 1 })
}

func waitGroup(t *testing.T, wg *sync.WaitGroup) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("jobs did not finish")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met in time")
		}
		time.Sleep(time.Millisecond)
	}
}
