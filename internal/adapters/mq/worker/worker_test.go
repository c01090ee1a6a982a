package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	queue "github.com/okian/renalrisk/internal/adapters/mq/queue"
	worker "github.com/okian/renalrisk/internal/adapters/mq/worker"
	model "github.com/okian/renalrisk/internal/domain/model"
	logging "github.com/okian/renalrisk/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

// Mock implementations for testing.
type mockQueue struct {
	jobs chan queue.Job
	once sync.Once
}

func newMockQueue() *mockQueue {
	return &mockQueue{jobs: make(chan queue.Job, 10)}
}

func (mq *mockQueue) Dequeue(ctx context.Context) <-chan queue.Job {
	return mq.jobs
}

func (mq *mockQueue) Close() error {
	mq.once.Do(func() { close(mq.jobs) })
	return nil
}

type mockPredictor struct {
	mu     sync.Mutex
	errs   map[model.Target]error
	calls  int
	delay  time.Duration
	values map[model.Target]float64
}

func newMockPredictor() *mockPredictor {
	return &mockPredictor{
		errs:   make(map[model.Target]error),
		values: map[model.Target]float64{model.TargetAKI: 0.2, model.TargetAKD: 0.6},
	}
}

func (mp *mockPredictor) Predict(ctx context.Context, target model.Target, _ model.Observation) (model.Result, error) {
	mp.mu.Lock()
	mp.calls++
	err := mp.errs[target]
	v := mp.values[target]
	delay := mp.delay
	mp.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return model.Result{}, err
	}
	return model.NewResult(target, v), nil
}

func (mp *mockPredictor) setError(target model.Target, err error) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.errs[target] = err
}

func (mp *mockPredictor) setDelay(d time.Duration) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.delay = d
}

func (mp *mockPredictor) callCount() int {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.calls
}

func newJob(id string, index int, target model.Target, reply chan model.Outcome) model.Job {
	return model.Job{ID: id, Index: index, Target: target, Observation: model.Observation{}, Reply: reply}
}

func waitOutcome(reply <-chan model.Outcome) (model.Outcome, bool) {
	select {
	case o := <-reply:
		return o, true
	case <-time.After(time.Second):
		return model.Outcome{}, false
	}
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a new InMemoryWorker", t, func() {
		_ = logging.Init()

		q := newMockQueue()
		predictor := newMockPredictor()

		convey.Convey("When creating a worker with custom options", func() {
			w := worker.NewInMemoryWorker(q, predictor,
				worker.WithName("test-worker"),
				worker.WithLogger(logging.Get()),
			)

			convey.Convey("Then it should be created successfully", func() {
				convey.So(w, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When running a worker", func() {
			w := worker.NewInMemoryWorker(q, predictor)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go w.Run(ctx)

			convey.Convey("And a job succeeds", func() {
				reply := make(chan model.Outcome, 1)
				q.jobs <- newJob("job-1", 3, model.TargetAKD, reply)
				o, ok := waitOutcome(reply)

				convey.Convey("Then the outcome carries the result and index", func() {
					convey.So(ok, convey.ShouldBeTrue)
					convey.So(o.Err, convey.ShouldBeNil)
					convey.So(o.JobID, convey.ShouldEqual, "job-1")
					convey.So(o.Index, convey.ShouldEqual, 3)
					convey.So(o.Result.Display, convey.ShouldEqual, "0.60")
				})
			})

			convey.Convey("And a job fails", func() {
				boom := errors.New("boom")
				predictor.setError(model.TargetAKI, boom)
				reply := make(chan model.Outcome, 1)
				q.jobs <- newJob("job-2", 0, model.TargetAKI, reply)
				o, ok := waitOutcome(reply)

				convey.Convey("Then the error is delivered unchanged", func() {
					convey.So(ok, convey.ShouldBeTrue)
					convey.So(errors.Is(o.Err, boom), convey.ShouldBeTrue)
					convey.So(o.Result, convey.ShouldResemble, model.Result{})
				})
			})

			convey.Convey("And the reply channel is already full", func() {
				reply := make(chan model.Outcome, 1)
				reply <- model.Outcome{JobID: "earlier"}
				q.jobs <- newJob("job-3", 0, model.TargetAKI, reply)
				next := make(chan model.Outcome, 1)
				q.jobs <- newJob("job-4", 0, model.TargetAKI, next)
				_, ok := waitOutcome(next)

				convey.Convey("Then the worker does not block", func() {
					convey.So(ok, convey.ShouldBeTrue)
				})
			})

			convey.Convey("And when shutting down", func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
				defer shutdownCancel()

				err := w.Shutdown(shutdownCtx)

				convey.Convey("Then it should shutdown gracefully", func() {
					convey.So(err, convey.ShouldBeNil)
					convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
				})
			})
		})

		convey.Convey("When context is cancelled", func() {
			w := worker.NewInMemoryWorker(q, predictor)
			ctx, cancel := context.WithCancel(context.Background())
			go w.Run(ctx)
			cancel()

			convey.Convey("Then the worker stops", func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
				defer shutdownCancel()
				convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
			})
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool over a real queue", t, func() {
		_ = logging.Init()

		q := queue.NewInMemoryQueue(queue.WithCapacity(64))
		predictor := newMockPredictor()
		pool := worker.NewPool(4, q, predictor)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		pool.Start(ctx)

		convey.So(pool.Size(), convey.ShouldEqual, 4)

		convey.Convey("When a batch is submitted", func() {
			const n = 50
			reply := make(chan model.Outcome, n)
			for i := 0; i < n; i++ {
				target := model.TargetAKI
				if i%2 == 1 {
					target = model.TargetAKD
				}
				convey.So(q.Enqueue(ctx, newJob(fmt.Sprintf("job-%d", i), i, target, reply)), convey.ShouldBeTrue)
			}

			results := make([]model.Outcome, n)
			for i := 0; i < n; i++ {
				o, ok := waitOutcome(reply)
				convey.So(ok, convey.ShouldBeTrue)
				results[o.Index] = o
			}

			convey.Convey("Then every outcome can be reassembled by index", func() {
				for i, o := range results {
					convey.So(o.JobID, convey.ShouldEqual, fmt.Sprintf("job-%d", i))
					if i%2 == 1 {
						convey.So(o.Result.Target, convey.ShouldEqual, model.TargetAKD)
					} else {
						convey.So(o.Result.Target, convey.ShouldEqual, model.TargetAKI)
					}
				}
				convey.So(pool.Processed(), convey.ShouldEqual, int64(n))
				convey.So(predictor.callCount(), convey.ShouldEqual, n)
			})
		})

		convey.Convey("When shutting down with queued work", func() {
			predictor.setDelay(5 * time.Millisecond)
			reply := make(chan model.Outcome, 8)
			for i := 0; i < 8; i++ {
				q.Enqueue(ctx, newJob(fmt.Sprintf("job-%d", i), i, model.TargetAKI, reply))
			}
			err := pool.Shutdown(context.Background())

			convey.Convey("Then the queue is drained first", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(len(reply), convey.ShouldEqual, 8)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
				convey.So(pool.Active(), convey.ShouldEqual, 0)
			})
		})
	})

	convey.Convey("Given a non-positive worker count", t, func() {
		pool := worker.NewPool(0, newMockQueue(), newMockPredictor())

		convey.Convey("Then a CPU based default is used", func() {
			convey.So(pool.Size(), convey.ShouldBeGreaterThan, 0)
		})
	})
}
