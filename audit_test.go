package goSession

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, AuditEvent) {
	s.count.Add(1)
}

func (s *countingSink) Count() int64 {
	return s.count.Load()
}

type gateSink struct {
	gate chan struct{}
}

func newGateSink() *gateSink {
	return &gateSink{
		gate: make(chan struct{}),
	}
}

func (s *gateSink) Emit(context.Context, AuditEvent) {
	<-s.gate
}

func newAuditTestManager(t *testing.T, sink AuditSink) *Manager {
	t.Helper()

	cfg := testConfig()
	cfg.Audit.Enabled = true
	cfg.Audit.BufferSize = 32
	cfg.Audit.DropIfFull = false

	_, rdb := newTestRedis(t)
	m, err := New().WithConfig(cfg).WithRedis(rdb).WithAuditSink(sink).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(m.Close)
	return m
}

func collectEvents(ch <-chan AuditEvent, want int) []AuditEvent {
	events := make([]AuditEvent, 0, want)
	timeout := time.After(2 * time.Second)
	for len(events) < want {
		select {
		case ev := <-ch:
			events = append(events, ev)
		case <-timeout:
			return events
		}
	}
	return events
}

func TestAuditDisabledNoSinkCalls(t *testing.T) {
	sink := &countingSink{}
	_, rdb := newTestRedis(t)
	m, err := New().WithConfig(testConfig()).WithRedis(rdb).WithAuditSink(sink).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	_, _ = m.GetStore(context.Background(), clientA, "")
	m.Close()

	if sink.Count() != 0 {
		t.Fatalf("expected no audit sink calls when disabled, got %d", sink.Count())
	}
}

func TestAuditSessionLifecycleEvents(t *testing.T) {
	sink := NewChannelSink(16)
	m := newAuditTestManager(t, sink)
	ctx := WithClientAddr(context.Background(), clientA)

	minted, _ := m.GetStore(ctx, clientA, "")
	_, _ = m.GetStore(ctx, clientB, minted.SID())
	_, _ = m.GetStore(ctx, clientA, "forged.token")

	events := collectEvents(sink.Events(), 5)
	if len(events) != 5 {
		t.Fatalf("expected 5 events, got %d", len(events))
	}

	want := []struct {
		eventType string
		ip        string
		reason    string
	}{
		{AuditSessionMinted, "203.0.113.5", ""},
		{AuditSessionRejected, "203.0.113.9", "address_mismatch"},
		{AuditSessionMinted, "203.0.113.9", ""},
		{AuditSessionRejected, "203.0.113.5", "malformed"},
		{AuditSessionMinted, "203.0.113.5", ""},
	}
	for i, w := range want {
		ev := events[i]
		if ev.EventType != w.eventType || ev.IP != w.ip || ev.Error != w.reason {
			t.Fatalf("event %d: expected %+v, got %+v", i, w, ev)
		}
		if ev.ID == "" || ev.Timestamp.IsZero() {
			t.Fatalf("event %d: expected id and timestamp, got %+v", i, ev)
		}
	}
}

func TestAuditNoSecretsInEvents(t *testing.T) {
	var buf syncBuffer
	m := newAuditTestManager(t, NewJSONWriterSink(&buf))
	ctx := context.Background()

	store, _ := m.GetStore(ctx, clientA, "")
	store.Set("a", "1")
	_ = m.SetStore(ctx, store)
	_, _ = m.GetStore(ctx, clientB, store.SID())
	_ = m.DestroyStore(ctx, store)
	m.Close()

	out := buf.String()
	if out == "" {
		t.Fatal("expected audit output")
	}
	if strings.Contains(out, store.SID()) || strings.Contains(out, store.Key()) {
		t.Fatal("audit events must not contain the session token or key")
	}
}

func TestAuditOAuthOutcome(t *testing.T) {
	sink := NewChannelSink(4)
	m := newAuditTestManager(t, sink)
	ctx := WithClientAddr(context.Background(), clientA)

	m.ObserveOAuth(ctx, "", "state_mismatch")
	m.ObserveOAuth(ctx, "google:7", "")

	events := collectEvents(sink.Events(), 2)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].EventType != AuditOAuthStateMismatch || events[0].Success {
		t.Fatalf("unexpected mismatch event %+v", events[0])
	}
	if events[1].EventType != AuditOAuthLogin || !events[1].Success || events[1].UserID != "google:7" {
		t.Fatalf("unexpected login event %+v", events[1])
	}

	snap := m.MetricsSnapshot()
	if snap.Counters[MetricOAuthStateMismatch] != 1 || snap.Counters[MetricOAuthLoginSuccess] != 1 {
		t.Fatalf("unexpected oauth counters %+v", snap.Counters)
	}
}

func TestAuditBufferFullDropIfFullTrueDoesNotBlock(t *testing.T) {
	sink := newGateSink()
	dispatcher := newAuditDispatcher(AuditConfig{
		Enabled:    true,
		BufferSize: 1,
		DropIfFull: true,
	}, sink)
	defer func() {
		close(sink.gate)
		dispatcher.Close()
	}()

	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e1"})
	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e2"})

	start := time.Now()
	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e3"})
	if time.Since(start) > 100*time.Millisecond {
		t.Fatal("expected non-blocking emit when DropIfFull is true")
	}
	if dispatcher.Dropped() == 0 {
		t.Fatal("expected dropped counter to increment when queue is full")
	}
}

func TestAuditBufferFullDropIfFullFalseBlocksUntilSpace(t *testing.T) {
	sink := newGateSink()
	dispatcher := newAuditDispatcher(AuditConfig{
		Enabled:    true,
		BufferSize: 1,
		DropIfFull: false,
	}, sink)
	defer func() {
		close(sink.gate)
		dispatcher.Close()
	}()

	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e1"})
	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e2"})

	done := make(chan struct{})
	go func() {
		dispatcher.Emit(context.Background(), AuditEvent{EventType: "e3"})
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("expected emit to block while buffer is full")
	case <-time.After(150 * time.Millisecond):
	}

	sink.gate <- struct{}{}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected blocked emit to proceed after space is available")
	}
}

func TestAuditJSONWriterSinkWritesJSONLines(t *testing.T) {
	var buf syncBuffer
	sink := NewJSONWriterSink(&buf)
	sink.Emit(context.Background(), newAuditEvent(AuditSessionMinted, "127.0.0.1", true, ""))
	sink.Emit(context.Background(), newAuditEvent(AuditSessionRejected, "127.0.0.1", false, "authentication"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	var ev AuditEvent
	if err := json.Unmarshal([]byte(lines[1]), &ev); err != nil {
		t.Fatalf("invalid JSON line: %v", err)
	}
	if ev.EventType != AuditSessionRejected || ev.Error != "authentication" {
		t.Fatalf("unexpected decoded event %+v", ev)
	}
}

func TestAuditDispatcherCloseIdempotentAndEmitAfterCloseSafe(t *testing.T) {
	sink := &countingSink{}
	dispatcher := newAuditDispatcher(AuditConfig{
		Enabled:    true,
		BufferSize: 4,
		DropIfFull: true,
	}, sink)

	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e1"})
	dispatcher.Close()
	dispatcher.Close()
	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e2"})

	if sink.Count() != 1 {
		t.Fatalf("expected buffered event flushed on close, got %d", sink.Count())
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
