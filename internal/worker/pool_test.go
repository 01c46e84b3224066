package worker

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestExecute(t *testing.T) {
	var calls []int
	pool := NewPool(4, func(_ context.Context, n int) (int, error) {
		if n == 3 {
			return 0, errors.New("three")
		}
		return n * n, nil
	}).OnProgress(func(done, total int) {
		calls = append(calls, done)
		if total != 5 {
			t.Errorf("total = %d", total)
		}
	})

	results := pool.Execute(context.Background(), []int{1, 2, 3, 4, 5})
	for i, r := range results {
		if r.Input != i+1 || !r.Done {
			t.Fatalf("result %d = %+v", i, r)
		}
		if r.Input == 3 {
			if r.Err == nil {
				t.Fatal("expected error for 3")
			}
			continue
		}
		if r.Err != nil || r.Result != r.Input*r.Input {
			t.Fatalf("result %d = %+v", i, r)
		}
	}
	if len(calls) != 5 || calls[4] != 5 {
		t.Fatalf("progress calls = %v", calls)
	}
}

func TestExecuteCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var ran atomic.Int32
	pool := NewPool(1, func(_ context.Context, n int) (int, error) {
		ran.Add(1)
		if n == 2 {
			cancel()
		}
		return n, nil
	})
	results := pool.Execute(ctx, []int{1, 2, 3, 4, 5, 6, 7, 8})
	if !results[0].Done || !results[1].Done {
		t.Fatal("tasks before cancellation must finish")
	}
	if results[len(results)-1].Done {
		t.Fatal("tasks after cancellation must be skipped")
	}
	if int(ran.Load()) == len(results) {
		t.Fatal("every task ran despite cancellation")
	}
}

func TestBatch(t *testing.T) {
	batches := Batch([]int{1, 2, 3, 4, 5}, 2)
	if len(batches) != 3 || len(batches[2]) != 1 {
		t.Fatalf("batches = %v", batches)
	}
	if got := Batch([]int{1}, 0); len(got) != 1 {
		t.Fatalf("zero batch size = %v", got)
	}
}

func TestLabelInFailureLog(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	defer func() { log.Logger = prev }()

	pool := NewPool(2, func(_ context.Context, name string) (int, error) {
		if name == "Broken.esp" {
			return 0, errors.New("truncated")
		}
		return len(name), nil
	}).Label(func(name string) string { return "Data/" + name })

	pool.Execute(context.Background(), []string{"Mod.esp", "Broken.esp"})
	if !strings.Contains(buf.String(), `"input":"Data/Broken.esp"`) {
		t.Fatalf("log = %s", buf.String())
	}
	if strings.Contains(buf.String(), "Data/Mod.esp") {
		t.Fatalf("successful task logged: %s", buf.String())
	}
}
