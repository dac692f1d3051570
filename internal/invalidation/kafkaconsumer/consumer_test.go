package kafkaconsumer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/IBM/sarama"

	"github.com/mohammed-shakir/repp-atlas/internal/invalidation"
)

type fakePurger struct {
	failFirst atomic.Bool
	mu        sync.Mutex
	purged    []string
}

func (f *fakePurger) InvalidateDataset(_ context.Context, dataset string) (int, error) {
	if f.failFirst.Load() {
		f.failFirst.Store(false)
		return 0, errors.New("boom")
	}
	f.mu.Lock()
	f.purged = append(f.purged, dataset)
	f.mu.Unlock()
	return 3, nil
}

type fakeDropper struct {
	mu      sync.Mutex
	dropped []string
}

func (f *fakeDropper) Drop(name string) bool {
	f.mu.Lock()
	f.dropped = append(f.dropped, name)
	f.mu.Unlock()
	return true
}

type sess struct {
	ctx    context.Context
	claims map[string][]int32
	mu     sync.Mutex
	marked []int64
}

func (s *sess) Claims() map[string][]int32 { return s.claims }
func (s *sess) MemberID() string           { return "" }
func (s *sess) GenerationID() int32        { return 0 }
func (s *sess) MarkMessage(m *sarama.ConsumerMessage, _ string) {
	s.mu.Lock()
	s.marked = append(s.marked, m.Offset)
	s.mu.Unlock()
}
func (s *sess) ResetOffset(_ string, _ int32, _ int64, _ string) {}
func (s *sess) MarkOffset(_ string, _ int32, _ int64, _ string)  {}
func (s *sess) Context() context.Context                         { return s.ctx }
func (s *sess) Errors() <-chan error                             { return nil }
func (s *sess) Commit()                                          {}

type claim struct {
	part int32
	msgs chan *sarama.ConsumerMessage
}

func (c *claim) Topic() string                            { return "dataset-updates" }
func (c *claim) Partition() int32                         { return c.part }
func (c *claim) InitialOffset() int64                     { return 0 }
func (c *claim) HighWaterMarkOffset() int64               { return 0 }
func (c *claim) Messages() <-chan *sarama.ConsumerMessage { return c.msgs }

var base = time.Date(2025, 10, 26, 12, 0, 0, 0, time.UTC)

func eventBytes(dataset string, minute int) []byte {
	ev := invalidation.Event{Version: 1, Op: "update", Dataset: dataset, TS: base.Add(time.Duration(minute) * time.Minute)}
	b, _ := json.Marshal(ev)
	return b
}

func newConsumerForTest(p *fakePurger, d *fakeDropper) *Consumer {
	cfg := Config{Brokers: []string{"x"}, Topic: "dataset-updates", GroupID: "g"}
	return New(cfg, nil, p, d)
}

func TestSinglePartition_OrderAndCommitAfterWork(t *testing.T) {
	p, d := &fakePurger{}, &fakeDropper{}
	c := newConsumerForTest(p, d)

	s := &sess{ctx: t.Context()}
	ch := make(chan *sarama.ConsumerMessage, 2)
	ch <- &sarama.ConsumerMessage{Topic: "dataset-updates", Offset: 10, Value: eventBytes("ecmwf", 1)}
	ch <- &sarama.ConsumerMessage{Topic: "dataset-updates", Offset: 11, Value: eventBytes("gfs", 1)}
	close(ch)

	if err := c.handler.ConsumeClaim(s, &claim{msgs: ch}); err != nil {
		t.Fatalf("ConsumeClaim: %v", err)
	}
	if len(s.marked) != 2 || s.marked[0] != 10 || s.marked[1] != 11 {
		t.Fatalf("marked offsets=%v want [10 11]", s.marked)
	}
	if len(p.purged) != 2 || p.purged[0] != "ecmwf" || len(d.dropped) != 2 {
		t.Fatalf("purged=%v dropped=%v", p.purged, d.dropped)
	}
}

func TestRetry_CommitOnceAfterSuccess(t *testing.T) {
	p, d := &fakePurger{}, &fakeDropper{}
	p.failFirst.Store(true)
	c := newConsumerForTest(p, d)
	ctx := context.Background()

	msg := &sarama.ConsumerMessage{Topic: "dataset-updates", Offset: 5, Value: eventBytes("ecmwf", 1)}
	if err := c.ProcessOne(ctx, msg); err == nil {
		t.Fatalf("expected error on first attempt")
	}

	s := &sess{ctx: ctx}
	ch := make(chan *sarama.ConsumerMessage, 1)
	ch <- msg
	close(ch)
	if err := c.handler.ConsumeClaim(s, &claim{msgs: ch}); err != nil {
		t.Fatalf("ConsumeClaim second attempt: %v", err)
	}
	if len(s.marked) != 1 || s.marked[0] != 5 || len(p.purged) != 1 {
		t.Fatalf("retry not applied; marked=%v purged=%v", s.marked, p.purged)
	}
}

func TestProcessOne_SkipsBadAndStale(t *testing.T) {
	p, d := &fakePurger{}, &fakeDropper{}
	c := newConsumerForTest(p, d)
	ctx := context.Background()

	for i, v := range [][]byte{
		[]byte("{not json"),
		[]byte(`{"version":1,"op":"insert","dataset":"x","ts":"2025-10-26T12:00:00Z"}`),
		eventBytes("ecmwf", 5),
		eventBytes("ecmwf", 5),
		eventBytes("ecmwf", 2),
	} {
		if err := c.ProcessOne(ctx, &sarama.ConsumerMessage{Offset: int64(i), Value: v}); err != nil {
			t.Fatalf("message %d: %v", i, err)
		}
	}
	if len(p.purged) != 1 {
		t.Fatalf("purged=%v want exactly one application", p.purged)
	}
}

func TestProcessOne_FileNameIsCanonicalised(t *testing.T) {
	p, d := &fakePurger{}, &fakeDropper{}
	c := newConsumerForTest(p, d)
	ctx := context.Background()

	if err := c.ProcessOne(ctx, &sarama.ConsumerMessage{Offset: 0, Value: eventBytes("ecmwf.nc", 5)}); err != nil {
		t.Fatalf("ProcessOne: %v", err)
	}
	// same dataset under its bare name at the same ts is a duplicate
	if err := c.ProcessOne(ctx, &sarama.ConsumerMessage{Offset: 1, Value: eventBytes("ecmwf", 5)}); err != nil {
		t.Fatalf("ProcessOne: %v", err)
	}
	if len(p.purged) != 1 || p.purged[0] != "ecmwf" {
		t.Fatalf("purged=%v want [ecmwf]", p.purged)
	}
	if len(d.dropped) != 1 || d.dropped[0] != "ecmwf" {
		t.Fatalf("dropped=%v want [ecmwf]", d.dropped)
	}
}

func TestMultiPartition_ParallelAndReadiness(t *testing.T) {
	c := newConsumerForTest(&fakePurger{}, &fakeDropper{})
	if ready, _ := c.Readiness(); ready {
		t.Fatalf("ready before joining a group")
	}

	s := &sess{ctx: t.Context(), claims: map[string][]int32{"dataset-updates": {1, 0}}}
	if err := c.handler.Setup(s); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	ready, parts := c.Readiness()
	if !ready || len(parts) != 2 || parts[0] != 0 {
		t.Fatalf("Readiness=%v %v", ready, parts)
	}

	p0 := make(chan *sarama.ConsumerMessage, 2)
	p1 := make(chan *sarama.ConsumerMessage, 2)
	p0 <- &sarama.ConsumerMessage{Partition: 0, Offset: 1, Value: eventBytes("a", 1)}
	p0 <- &sarama.ConsumerMessage{Partition: 0, Offset: 2, Value: eventBytes("a", 2)}
	p1 <- &sarama.ConsumerMessage{Partition: 1, Offset: 1, Value: eventBytes("b", 1)}
	p1 <- &sarama.ConsumerMessage{Partition: 1, Offset: 2, Value: eventBytes("b", 2)}
	close(p0)
	close(p1)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); _ = c.handler.ConsumeClaim(s, &claim{part: 0, msgs: p0}) }()
	go func() { defer wg.Done(); _ = c.handler.ConsumeClaim(s, &claim{part: 1, msgs: p1}) }()
	wg.Wait()

	if len(s.marked) != 4 {
		t.Fatalf("expected 4 marks total; got %v", s.marked)
	}
	_ = c.handler.Cleanup(s)
	if ready, _ := c.Readiness(); ready {
		t.Fatalf("still ready after cleanup")
	}
}
