package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	queue "github.com/okian/kegel/internal/adapters/mq/queue"
	worker "github.com/okian/kegel/internal/adapters/mq/worker"
	model "github.com/okian/kegel/internal/domain/model"
	logging "github.com/okian/kegel/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

type mockQueue struct {
	eventChan chan queue.Event
	once      sync.Once
}

func newMockQueue() *mockQueue {
	return &mockQueue{eventChan: make(chan queue.Event, 16)}
}

func (mq *mockQueue) Dequeue(context.Context) <-chan queue.Event { return mq.eventChan }

func (mq *mockQueue) Close() error {
	mq.once.Do(func() { close(mq.eventChan) })
	return nil
}

func (mq *mockQueue) addEvent(e queue.Event) { mq.eventChan <- e } //nolint:gocritic // hugeParam: test helper

type mockJournal struct {
	mu      sync.Mutex
	seqs    []uint64
	failSeq map[uint64]error
}

func newMockJournal() *mockJournal {
	return &mockJournal{failSeq: map[uint64]error{}}
}

func (j *mockJournal) Append(_ context.Context, e model.Event) error { //nolint:gocritic // hugeParam: matches Journal
	j.mu.Lock()
	defer j.mu.Unlock()
	if err, ok := j.failSeq[e.Seq]; ok {
		return err
	}
	j.seqs = append(j.seqs, e.Seq)
	return nil
}

func (j *mockJournal) appended() []uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]uint64(nil), j.seqs...)
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a worker over a queue and a journal", t, func() {
		_ = logging.Init()

		q := newMockQueue()
		j := newMockJournal()
		w := worker.NewInMemoryWorker(q, j, worker.WithName("journal-0"))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When events arrive", func() {
			for i := uint64(1); i <= 3; i++ {
				q.addEvent(model.Event{Seq: i, Kind: model.KindCheckIn})
			}

			convey.Convey("Then they are appended in order", func() {
				convey.So(waitFor(func() bool { return len(j.appended()) == 3 }), convey.ShouldBeTrue)
				convey.So(j.appended(), convey.ShouldResemble, []uint64{1, 2, 3})
				convey.So(w.Processed(), convey.ShouldEqual, uint64(3))
			})
		})

		convey.Convey("When the journal rejects an event", func() {
			j.failSeq[2] = errors.New("disk full")
			q.addEvent(model.Event{Seq: 1})
			q.addEvent(model.Event{Seq: 2})
			q.addEvent(model.Event{Seq: 3})

			convey.Convey("Then the worker keeps going", func() {
				convey.So(waitFor(func() bool { return w.Processed() == 2 }), convey.ShouldBeTrue)
				convey.So(w.Failed(), convey.ShouldEqual, uint64(1))
				convey.So(j.appended(), convey.ShouldResemble, []uint64{1, 3})
			})
		})

		convey.Convey("When the queue closes", func() {
			_ = q.Close()

			convey.Convey("Then Run returns", func() {
				select {
				case <-w.Done():
				case <-time.After(time.Second):
					convey.So("worker did not stop", convey.ShouldBeEmpty)
				}
			})
		})

		convey.Convey("When shut down", func() {
			err := w.Shutdown(context.Background())

			convey.Convey("Then it stops and a second call is harmless", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(w.Shutdown(context.Background()), convey.ShouldBeNil)
			})
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool draining a real queue", t, func() {
		_ = logging.Init()

		q := queue.NewInMemoryQueue(queue.WithCapacity(64))
		j := newMockJournal()
		p := worker.NewPool(0, q, j)
		convey.So(p.Size(), convey.ShouldEqual, 1)

		ctx := context.Background()
		p.Start(ctx)
		for i := uint64(1); i <= 20; i++ {
			convey.So(q.Enqueue(ctx, model.Event{Seq: i}), convey.ShouldBeTrue)
		}

		convey.Convey("When the pool shuts down", func() {
			err := p.Shutdown(ctx)

			convey.Convey("Then every queued event was journaled in order", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(p.Processed(), convey.ShouldEqual, uint64(20))
				convey.So(p.Failed(), convey.ShouldEqual, uint64(0))
				got := j.appended()
				convey.So(got, convey.ShouldHaveLength, 20)
				for i, seq := range got {
					convey.So(seq, convey.ShouldEqual, uint64(i+1))
				}
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
			})
		})
	})
}
