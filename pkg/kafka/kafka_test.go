package kafka

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"

	"github.com/segmentio/kafka-go"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeWriter records every message written to it.
type fakeWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	return nil
}

func (w *fakeWriter) written() []kafka.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]kafka.Message(nil), w.messages...)
}

// fakeReader serves a fixed list of messages and then blocks until the
// context ends.
type fakeReader struct {
	mu        sync.Mutex
	cfg       kafka.ReaderConfig
	pending   []kafka.Message
	committed []kafka.Message
	closed    int
}

func newFakeReader(topic, group string, msgs ...kafka.Message) *fakeReader {
	return &fakeReader{cfg: kafka.ReaderConfig{Topic: topic, GroupID: group}, pending: msgs}
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.pending) > 0 {
		msg := r.pending[0]
		r.pending = r.pending[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	r.committed = append(r.committed, msgs...)
	r.mu.Unlock()
	return nil
}

func (r *fakeReader) Config() kafka.ReaderConfig { return r.cfg }

func (r *fakeReader) Close() error {
	r.mu.Lock()
	r.closed++
	r.mu.Unlock()
	return nil
}

func (r *fakeReader) commits() []kafka.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]kafka.Message(nil), r.committed...)
}

var errBroker = errors.New("broker unavailable")
