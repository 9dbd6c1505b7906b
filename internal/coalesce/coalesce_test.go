package coalesce

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDoRunsOnceForConcurrentCallers(t *testing.T) {
	var g Group[string, int]
	var calls int32

	start := make(chan struct{})
	results := make(chan int, 10)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			v, err, _ := g.Do("key", func() (int, error) {
				atomic.AddInt32(&calls, 1)
				time.Sleep(20 * time.Millisecond)
				return 42, nil
			})
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			results <- v
		}()
	}
	close(start)
	wg.Wait()
	close(results)

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("producer ran %d times, want 1", got)
	}
	for v := range results {
		if v != 42 {
			t.Errorf("result = %d, want 42", v)
		}
	}
}

func TestDoCleansUpKeyAfterCompletion(t *testing.T) {
	var g Group[string, int]

	_, _, _ = g.Do("key", func() (int, error) { return 1, nil })

	if g.InFlight("key") {
		t.Errorf("InFlight(key) = true after completion, want false")
	}

	var calls int
	_, _, _ = g.Do("key", func() (int, error) {
		calls++
		return 2, nil
	})
	if calls != 1 {
		t.Errorf("second Do call count = %d, want 1 (key should be reusable)", calls)
	}
}

func TestDoPropagatesErrorToAllWaiters(t *testing.T) {
	var g Group[string, int]
	wantErr := errors.New("producer failed")

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	start := make(chan struct{})
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err, _ := g.Do("key", func() (int, error) {
				time.Sleep(10 * time.Millisecond)
				return 0, wantErr
			})
			errs <- err
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != wantErr {
			t.Errorf("err = %v, want %v", err, wantErr)
		}
	}
}

func TestDoRecoversPanicInProducer(t *testing.T) {
	var g Group[string, int]

	_, err, _ := g.Do("key", func() (int, error) {
		panic("boom")
	})
	if err == nil {
		t.Fatal("expected non-nil error from panicking producer")
	}

	if g.InFlight("key") {
		t.Errorf("InFlight(key) = true after panicking producer, want false")
	}
}

func TestInFlightReportsDuringExecution(t *testing.T) {
	var g Group[string, int]
	started := make(chan struct{})
	release := make(chan struct{})

	go func() {
		_, _, _ = g.Do("key", func() (int, error) {
			close(started)
			<-release
			return 1, nil
		})
	}()

	<-started
	if !g.InFlight("key") {
		t.Errorf("InFlight(key) = false while producer is running, want true")
	}
	close(release)
}

func TestDoTimeoutReturnsErrTimeoutForSlowProducer(t *testing.T) {
	var g Group[string, int]
	started := make(chan struct{})
	release := make(chan struct{})

	go func() {
		_, _, _ = g.Do("key", func() (int, error) {
			close(started)
			<-release
			return 1, nil
		})
	}()
	<-started

	_, err, shared := g.DoTimeout("key", 10*time.Millisecond, func() (int, error) {
		t.Fatal("waiter must not become the producer")
		return 0, nil
	})
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("err = %v, want ErrTimeout", err)
	}
	if !shared {
		t.Errorf("shared = false for a timed-out waiter, want true")
	}
	close(release)
}

func TestDoTimeoutReturnsProducerResultWithinDeadline(t *testing.T) {
	var g Group[string, int]
	started := make(chan struct{})
	release := make(chan struct{})

	go func() {
		_, _, _ = g.Do("key", func() (int, error) {
			close(started)
			<-release
			return 99, nil
		})
	}()
	<-started

	done := make(chan struct{})
	var got int
	var gotErr error
	go func() {
		defer close(done)
		got, gotErr, _ = g.DoTimeout("key", time.Second, func() (int, error) {
			t.Error("waiter must not become the producer")
			return 0, nil
		})
	}()

	time.Sleep(10 * time.Millisecond)
	close(release)
	<-done

	if gotErr != nil {
		t.Errorf("err = %v, want nil", gotErr)
	}
	if got != 99 {
		t.Errorf("val = %d, want 99", got)
	}
}

func TestDoTimeoutProducerIgnoresTimeout(t *testing.T) {
	var g Group[string, int]
	var calls int32

	v, err, shared := g.DoTimeout("key", time.Millisecond, func() (int, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(20 * time.Millisecond)
		return 7, nil
	})
	if err != nil {
		t.Errorf("producer err = %v, want nil (timeout never applies to the producer)", err)
	}
	if v != 7 {
		t.Errorf("producer val = %d, want 7", v)
	}
	if shared {
		t.Errorf("shared = true for the producer, want false")
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("producer ran %d times, want 1", calls)
	}
}

func TestDistinctKeysRunIndependently(t *testing.T) {
	var g Group[string, int]
	v1, _, _ := g.Do("a", func() (int, error) { return 1, nil })
	v2, _, _ := g.Do("b", func() (int, error) { return 2, nil })
	if v1 != 1 || v2 != 2 {
		t.Errorf("v1=%d v2=%d, want 1 and 2", v1, v2)
	}
}
