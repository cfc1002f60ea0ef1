package kafkaconsumer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/IBM/sarama"

	"github.com/chompapp/search-api/internal/invalidation"
)

type fakeStore struct {
	failFirst atomic.Bool
	mu        sync.Mutex
	seenDel   []string
}

func (f *fakeStore) Get(context.Context, string) ([]string, bool, error)      { return nil, false, nil }
func (f *fakeStore) Set(context.Context, string, []string, time.Duration) error { return nil }
func (f *fakeStore) CleanupExpired(context.Context) (int, error)              { return 0, nil }
func (f *fakeStore) Clear(context.Context) (int, error)                       { return 0, nil }
func (f *fakeStore) Close() error                                             { return nil }

func (f *fakeStore) Delete(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	f.seenDel = append(f.seenDel, key)
	f.mu.Unlock()
	if f.failFirst.Load() {
		f.failFirst.Store(false)
		return false, errors.New("boom")
	}
	return true, nil
}

type sess struct {
	ctx    context.Context
	mu     sync.Mutex
	marked []int64
}

func (s *sess) Claims() map[string][]int32 { return nil }
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

func (c *claim) Topic() string                            { return "search-cache-purge" }
func (c *claim) Partition() int32                         { return c.part }
func (c *claim) InitialOffset() int64                     { return 0 }
func (c *claim) HighWaterMarkOffset() int64               { return 0 }
func (c *claim) Messages() <-chan *sarama.ConsumerMessage { return c.msgs }

func purgeEventBytes(keys ...string) []byte {
	ev := invalidation.Event{
		Version: 1, Op: "purge", TS: time.Now().UTC(),
		Keys: keys, Source: "places-admin",
	}
	b, _ := json.Marshal(ev)
	return b
}

func newConsumerForTest(fs *fakeStore) *Consumer {
	cfg := Config{Brokers: []string{"x"}, Topic: "search-cache-purge", GroupID: "g"}
	return New(cfg, slog.Default(), fs)
}

func TestSinglePartition_OrderAndCommitAfterWork(t *testing.T) {
	fs := &fakeStore{}
	c := newConsumerForTest(fs)

	g := &groupHandler{process: c.ProcessOne}
	ctx := context.Background()
	s := &sess{ctx: ctx}
	ch := make(chan *sarama.ConsumerMessage, 2)
	cl := &claim{part: 0, msgs: ch}

	ch <- &sarama.ConsumerMessage{Topic: "search-cache-purge", Partition: 0, Offset: 10,
		Value: purgeEventBytes("nearby:40.713:-74.006:1500:")}
	ch <- &sarama.ConsumerMessage{Topic: "search-cache-purge", Partition: 0, Offset: 11,
		Value: purgeEventBytes("nearby:40.714:-74.006:1500:", "nearby:40.715:-74.006:1500:")}
	close(ch)

	if err := g.ConsumeClaim(s, cl); err != nil {
		t.Fatalf("ConsumeClaim: %v", err)
	}

	if len(s.marked) != 2 || s.marked[0] != 10 || s.marked[1] != 11 {
		t.Fatalf("marked offsets=%v want [10 11]", s.marked)
	}
	if len(fs.seenDel) != 3 {
		t.Fatalf("deletes=%v want 3 keys", fs.seenDel)
	}
}

func TestRetry_CommitOnceAfterSuccess(t *testing.T) {
	fs := &fakeStore{}
	fs.failFirst.Store(true)
	c := newConsumerForTest(fs)
	ctx := context.Background()

	msg := &sarama.ConsumerMessage{Topic: "search-cache-purge", Partition: 0, Offset: 5,
		Value: purgeEventBytes("nearby:40.713:-74.006:1500:")}
	if err := c.ProcessOne(ctx, msg); err == nil {
		t.Fatalf("expected error on first attempt")
	}

	s := &sess{ctx: ctx}
	g := &groupHandler{process: c.ProcessOne}
	ch := make(chan *sarama.ConsumerMessage, 1)
	ch <- msg
	close(ch)
	if err := g.ConsumeClaim(s, &claim{part: 0, msgs: ch}); err != nil {
		t.Fatalf("ConsumeClaim second attempt: %v", err)
	}
	if len(s.marked) != 1 || s.marked[0] != 5 {
		t.Fatalf("offset was not marked after success; marked=%v", s.marked)
	}
}

func TestMalformedEvent_DroppedAndCommitted(t *testing.T) {
	fs := &fakeStore{}
	c := newConsumerForTest(fs)

	g := &groupHandler{process: c.ProcessOne}
	ctx := context.Background()
	s := &sess{ctx: ctx}
	ch := make(chan *sarama.ConsumerMessage, 2)
	ch <- &sarama.ConsumerMessage{Topic: "search-cache-purge", Partition: 0, Offset: 1,
		Value: []byte("{not json")}
	ch <- &sarama.ConsumerMessage{Topic: "search-cache-purge", Partition: 0, Offset: 2,
		Value: purgeEventBytes("nearby:40.713:-74.006:1500:")}
	close(ch)

	if err := g.ConsumeClaim(s, &claim{part: 0, msgs: ch}); err != nil {
		t.Fatalf("ConsumeClaim: %v", err)
	}
	if len(s.marked) != 2 {
		t.Fatalf("bad event should not block the partition; marked=%v", s.marked)
	}
	if len(fs.seenDel) != 1 {
		t.Fatalf("deletes=%v want 1", fs.seenDel)
	}
}

func TestInvalidEvent_Dropped(t *testing.T) {
	fs := &fakeStore{}
	c := newConsumerForTest(fs)

	ev := invalidation.Event{Version: 1, Op: "delete", TS: time.Now().UTC(), Keys: []string{"k"}}
	b, _ := json.Marshal(ev)
	msg := &sarama.ConsumerMessage{Topic: "search-cache-purge", Partition: 0, Offset: 3, Value: b}

	if err := c.ProcessOne(context.Background(), msg); err != nil {
		t.Fatalf("invalid event should be dropped, not retried: %v", err)
	}
	if len(fs.seenDel) != 0 {
		t.Fatalf("no deletes expected for an invalid event; got %v", fs.seenDel)
	}
}
