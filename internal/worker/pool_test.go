package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type stubResult struct {
	err error
}

func (r *stubResult) GetError() error {
	return r.err
}

type stubJob struct {
	duration time.Duration
	fail     bool
	executed *int32
}

func (j *stubJob) Execute(ctx context.Context) Result {
	if j.executed != nil {
		atomic.AddInt32(j.executed, 1)
	}
	if j.duration > 0 {
		select {
		case <-time.After(j.duration):
		case <-ctx.Done():
			return &stubResult{err: ctx.Err()}
		}
	}
	if j.fail {
		return &stubResult{err: errors.New("job error")}
	}
	return &stubResult{}
}

// drain collects results concurrently, as pool users must
func drain(p *Pool) func() []Result {
	var out []Result
	done := make(chan struct{})
	go func() {
		defer close(done)
		for r := range p.Results() {
			out = append(out, r)
		}
	}()
	return func() []Result {
		<-done
		return out
	}
}

func TestNewPool(t *testing.T) {
	for in, want := range map[int]int{5: 5, 0: 1, -1: 1} {
		p := NewPool(context.Background(), in)
		if p.workers != want {
			t.Errorf("NewPool(%d): expected %d workers, got %d", in, want, p.workers)
		}
	}
}

func TestPool_ExecutesEveryJob(t *testing.T) {
	pool := NewPool(context.Background(), 2)
	pool.Start()
	results := drain(pool)

	var executed int32
	count := 50
	for i := 0; i < count; i++ {
		if !pool.Submit(&stubJob{executed: &executed}) {
			t.Fatal("submit rejected on a live pool")
		}
	}
	pool.Wait()

	if got := len(results()); got != count {
		t.Errorf("expected %d results, got %d", count, got)
	}
	if atomic.LoadInt32(&executed) != int32(count) {
		t.Errorf("expected %d executed jobs, got %d", count, executed)
	}
}

type trackingJob struct {
	start    func()
	end      func()
	duration time.Duration
}

func (j *trackingJob) Execute(ctx context.Context) Result {
	j.start()
	time.Sleep(j.duration)
	j.end()
	return &stubResult{}
}

func TestPool_BoundsConcurrency(t *testing.T) {
	workers := 4
	pool := NewPool(context.Background(), workers)
	pool.Start()
	results := drain(pool)

	var current, completed int32
	var maxConcurrent int32
	var mu sync.Mutex

	for i := 0; i < 20; i++ {
		pool.Submit(&trackingJob{
			start: func() {
				curr := atomic.AddInt32(&current, 1)
				mu.Lock()
				if curr > maxConcurrent {
					maxConcurrent = curr
				}
				mu.Unlock()
			},
			end: func() {
				atomic.AddInt32(&current, -1)
				atomic.AddInt32(&completed, 1)
			},
			duration: 5 * time.Millisecond,
		})
	}
	pool.Wait()
	results()

	if atomic.LoadInt32(&completed) != 20 {
		t.Errorf("expected 20 completed jobs, got %d", completed)
	}
	mu.Lock()
	defer mu.Unlock()
	if maxConcurrent > int32(workers) {
		t.Errorf("max concurrency %d exceeded workers %d", maxConcurrent, workers)
	}
}

func TestPool_ErrorResults(t *testing.T) {
	pool := NewPool(context.Background(), 2)
	pool.Start()
	results := drain(pool)

	pool.Submit(&stubJob{fail: true})
	pool.Submit(&stubJob{})
	pool.Wait()

	failed := 0
	for _, r := range results() {
		if r.GetError() != nil {
			failed++
		}
	}
	if failed != 1 {
		t.Errorf("expected 1 error, got %d", failed)
	}
}

func TestPool_SubmitAfterShutdown(t *testing.T) {
	pool := NewPool(context.Background(), 2)
	pool.Start()
	pool.Shutdown()

	done := make(chan bool)
	go func() {
		done <- pool.Submit(&stubJob{})
	}()

	select {
	case accepted := <-done:
		if accepted {
			t.Error("submit after shutdown should be rejected")
		}
	case <-time.After(time.Second):
		t.Fatal("Submit after shutdown blocked")
	}
}

func TestPool_ParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := NewPool(ctx, 1)
	pool.Start()
	results := drain(pool)

	started := make(chan struct{})
	pool.Submit(&trackingJob{
		start:    func() { close(started) },
		end:      func() {},
		duration: 20 * time.Millisecond,
	})
	<-started
	cancel()

	if pool.Submit(&stubJob{}) {
		t.Error("submit after parent cancellation should be rejected")
	}

	finished := make(chan struct{})
	go func() {
		pool.Shutdown()
		results()
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("Shutdown timed out")
	}
}
