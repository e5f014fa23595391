package bus

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ricesearch/matcheval/internal/config"
	"github.com/ricesearch/matcheval/internal/pkg/logger"
)

func TestJournal_AppendRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events", "journal.jsonl")

	j, err := OpenJournal(path)
	if err != nil {
		t.Fatalf("OpenJournal() error = %v", err)
	}

	before := time.Now().Add(-time.Second)
	for _, id := range []string{"a", "b", "c"} {
		if err := j.Append(TopicGroupingCompleted, Event{ID: id, Type: TopicGroupingCompleted}); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}
	j.Close()

	entries, err := ReadJournal(path, before, 0)
	if err != nil {
		t.Fatalf("ReadJournal() error = %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("len(entries) = %d, want 3", len(entries))
	}
	if entries[0].Event.ID != "a" || entries[2].Event.ID != "c" {
		t.Errorf("entries out of order: %s..%s", entries[0].Event.ID, entries[2].Event.ID)
	}
	if entries[0].Topic != TopicGroupingCompleted {
		t.Errorf("Topic = %s, want %s", entries[0].Topic, TopicGroupingCompleted)
	}

	limited, _ := ReadJournal(path, before, 2)
	if len(limited) != 2 {
		t.Errorf("len(limited) = %d, want 2", len(limited))
	}

	future, _ := ReadJournal(path, time.Now().Add(time.Hour), 0)
	if len(future) != 0 {
		t.Errorf("len(future) = %d, want 0", len(future))
	}
}

func TestJournal_AppendAfterClose(t *testing.T) {
	j, err := OpenJournal(filepath.Join(t.TempDir(), "j.jsonl"))
	if err != nil {
		t.Fatalf("OpenJournal() error = %v", err)
	}
	j.Close()

	if err := j.Append("t", Event{ID: "x"}); err == nil {
		t.Error("Append() after Close() should error")
	}
}

func TestReadJournal_MissingAndMalformed(t *testing.T) {
	dir := t.TempDir()

	entries, err := ReadJournal(filepath.Join(dir, "missing.jsonl"), time.Time{}, 0)
	if err != nil {
		t.Fatalf("ReadJournal(missing) error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("len(entries) = %d, want 0", len(entries))
	}

	path := filepath.Join(dir, "bad.jsonl")
	content := "garbage\n" +
		`{"topic":"t","event":{"id":"ok"},"recorded":"2026-01-02T03:04:05Z"}` + "\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	entries, err = ReadJournal(path, time.Time{}, 0)
	if err != nil {
		t.Fatalf("ReadJournal() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Event.ID != "ok" {
		t.Errorf("entries = %+v, want the one valid line", entries)
	}
}

func TestJournaledBus_PublishAndReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")

	b, err := NewBus(config.BusConfig{Type: "memory", EventLog: path}, logger.Discard())
	if err != nil {
		t.Fatalf("NewBus() error = %v", err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var seen []string
	b.Subscribe(context.Background(), TopicEvaluationCompleted, func(ctx context.Context, event Event) error {
		mu.Lock()
		seen = append(seen, event.ID)
		mu.Unlock()
		wg.Done()
		return nil
	})

	wg.Add(2)
	b.Publish(context.Background(), TopicEvaluationCompleted, Event{ID: "e1"})
	b.Publish(context.Background(), TopicEvaluationCompleted, Event{ID: "e2"})
	waitFor(t, &wg, time.Second)
	b.Close()

	entries, err := ReadJournal(path, time.Time{}, 0)
	if err != nil {
		t.Fatalf("ReadJournal() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}

	// Replay into a fresh bus
	replayBus := NewMemoryBus(logger.Discard())
	defer replayBus.Close()

	var replayed sync.WaitGroup
	replayed.Add(2)
	replayBus.Subscribe(context.Background(), TopicEvaluationCompleted, func(ctx context.Context, event Event) error {
		replayed.Done()
		return nil
	})

	if err := Replay(context.Background(), replayBus, entries); err != nil {
		t.Fatalf("Replay() error = %v", err)
	}
	waitFor(t, &replayed, time.Second)

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 {
		t.Errorf("live subscriber saw %d events, want 2", len(seen))
	}
}

func TestReplay_CancelledContext(t *testing.T) {
	bus := NewMemoryBus(logger.Discard())
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Replay(ctx, bus, []JournalEntry{{Topic: "t", Event: Event{ID: "x"}}})
	if err == nil {
		t.Error("Replay() with cancelled context should error")
	}
}
