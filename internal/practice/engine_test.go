package practice

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/practx/internal/models"
	"github.com/desertthunder/practx/internal/shared"
	tu "github.com/desertthunder/practx/internal/testing"
)

var epoch = time.Date(2025, time.March, 14, 9, 0, 0, 0, time.Local)

type harness struct {
	clock  *tu.FakeClock
	store  *tu.RecordingStore
	engine *Engine
	logs   *bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		clock: tu.NewFakeClock(epoch),
		store: &tu.RecordingStore{},
		logs:  &bytes.Buffer{},
	}
	h.engine = NewEngine(EngineOpts{
		Store:    h.store,
		Clock:    h.clock,
		Logger:   shared.NewLogger(h.logs),
		Dispatch: func(save func()) { save() },
	})
	return h
}

func (h *harness) advance(seconds int) {
	h.clock.Advance(time.Duration(seconds) * time.Second)
}

func TestEngine(t *testing.T) {
	t.Run("StartOrResume", func(t *testing.T) {
		t.Run("Seeds From Card And Displays Immediately", func(t *testing.T) {
			h := newHarness(t)
			card := NewCardState("song-1", "ex-1", "Intro", 3600, 0)

			h.engine.StartOrResume(card)

			snap := h.engine.Snapshot()
			if snap.State != Running {
				t.Fatalf("expected running, got %v", snap.State)
			}
			if snap.LocalSeconds != 3600 || snap.LastSaveMark != 3600 {
				t.Errorf("expected local and mark 3600, got %d and %d", snap.LocalSeconds, snap.LastSaveMark)
			}
			if !card.Timing() {
				t.Error("expected card to be marked timing")
			}
			if card.Elapsed() != "1:00:00" {
				t.Errorf("expected display 1:00:00, got %q", card.Elapsed())
			}
		})

		t.Run("Ticks Once Per Second", func(t *testing.T) {
			h := newHarness(t)
			card := NewCardState("song-1", "ex-1", "Intro", 10, 0)
			h.engine.StartOrResume(card)

			prev := h.engine.Snapshot().LocalSeconds
			for i := 0; i < 20; i++ {
				h.advance(1)
				got := h.engine.Snapshot().LocalSeconds
				if got != prev+1 {
					t.Fatalf("tick %d: expected %d, got %d", i, prev+1, got)
				}
				prev = got
			}
			if card.TotalSeconds() != 30 {
				t.Errorf("expected card total 30, got %d", card.TotalSeconds())
			}
			if card.Elapsed() != "0:30" {
				t.Errorf("expected display 0:30, got %q", card.Elapsed())
			}
		})

		t.Run("Same Card Twice Is A No-op", func(t *testing.T) {
			h := newHarness(t)
			card := NewCardState("song-1", "ex-1", "Intro", 0, 0)

			h.engine.StartOrResume(card)
			h.engine.StartOrResume(card)
			h.advance(5)

			if got := h.engine.Snapshot().LocalSeconds; got != 5 {
				t.Errorf("expected 5 seconds after 5 ticks, got %d", got)
			}
			if pending := h.clock.Pending(); pending != 2 {
				t.Errorf("expected one ticker and one watchdog, got %d schedules", pending)
			}
		})

		t.Run("Switching Flushes The Previous Card First", func(t *testing.T) {
			h := newHarness(t)
			a := NewCardState("song-1", "ex-a", "A", 0, 0)
			b := NewCardState("song-1", "ex-b", "B", 100, 0)

			h.engine.StartOrResume(a)
			h.advance(45)

			snap := h.engine.Snapshot()
			if snap.LocalSeconds != 45 || snap.LastSaveMark != 30 {
				t.Fatalf("expected local 45 mark 30, got %d and %d", snap.LocalSeconds, snap.LastSaveMark)
			}

			h.engine.StartOrResume(b)

			calls := h.store.DailyLogCalls()
			if len(calls) != 2 {
				t.Fatalf("expected 2 daily log saves, got %d", len(calls))
			}
			last := calls[1]
			if last.Delta.ExerciseID != "ex-a" || last.Delta.Seconds != 15 {
				t.Errorf("expected flush of 15s for ex-a, got %+v", last.Delta)
			}
			if a.Timing() {
				t.Error("expected previous card to stop timing")
			}

			h.advance(1)
			snap = h.engine.Snapshot()
			if snap.Card.ExerciseID != "ex-b" || snap.LocalSeconds != 101 {
				t.Errorf("expected ex-b at 101, got %+v", snap)
			}
			if len(h.store.DailyLogCalls()) != 2 {
				t.Error("expected no save for the new card yet")
			}
		})

		t.Run("Negative Seed Clamps To Zero", func(t *testing.T) {
			h := newHarness(t)
			h.engine.StartOrResume(NewCardState("song-1", "ex-1", "Intro", -4, 0))

			if got := h.engine.Snapshot().LocalSeconds; got != 0 {
				t.Errorf("expected 0, got %d", got)
			}
		})

		t.Run("Nil Card", func(t *testing.T) {
			h := newHarness(t)
			h.engine.StartOrResume(nil)

			if h.engine.State() != Idle {
				t.Error("expected idle")
			}
		})
	})

	t.Run("At Most One Active", func(t *testing.T) {
		h := newHarness(t)
		cards := []*CardState{
			NewCardState("song-1", "ex-a", "A", 0, 0),
			NewCardState("song-1", "ex-b", "B", 0, 0),
			NewCardState("song-2", "ex-a", "A", 0, 0),
		}

		ops := []func(){
			func() { h.engine.StartOrResume(cards[0]) },
			func() { h.engine.Toggle(cards[1]) },
			func() { h.engine.StartOrResume(cards[2]) },
			func() { h.engine.Stop(cards[0]) },
			func() { h.engine.Toggle(cards[2]) },
			func() { h.engine.Toggle(cards[0]) },
			func() { h.engine.StartOrResume(cards[1]) },
			func() { h.engine.Stop(cards[1]) },
		}

		for i, op := range ops {
			op()
			h.advance(3)

			timing := 0
			for _, c := range cards {
				if c.Timing() {
					timing++
				}
			}
			if timing > 1 {
				t.Fatalf("step %d: %d cards timing", i, timing)
			}
			if pending := h.clock.Pending(); pending > 2 {
				t.Fatalf("step %d: %d live schedules", i, pending)
			}
		}

		if h.engine.State() != Idle || h.clock.Pending() != 0 {
			t.Errorf("expected idle with no schedules, got %v and %d", h.engine.State(), h.clock.Pending())
		}
	})

	t.Run("Checkpoint", func(t *testing.T) {
		t.Run("Saves Every 30 Seconds", func(t *testing.T) {
			h := newHarness(t)
			h.engine.StartOrResume(NewCardState("song-1", "ex-1", "Intro", 200, 0))

			h.advance(29)
			if n := len(h.store.ExerciseCalls()); n != 0 {
				t.Fatalf("expected no saves before 30s, got %d", n)
			}

			h.advance(1)
			exercises := h.store.ExerciseCalls()
			daily := h.store.DailyLogCalls()
			if len(exercises) != 1 || len(daily) != 1 {
				t.Fatalf("expected one save of each kind, got %d and %d", len(exercises), len(daily))
			}

			patch := exercises[0].Patch
			if patch.TotalPracticedSeconds == nil || *patch.TotalPracticedSeconds != 230 {
				t.Errorf("expected total 230, got %v", patch.TotalPracticedSeconds)
			}
			if patch.TotalReps != nil {
				t.Error("expected reps to be left untouched")
			}
			wantStamp := epoch.Add(30 * time.Second).UTC().Format(time.RFC3339)
			if patch.LastPracticedAt == nil || *patch.LastPracticedAt != wantStamp {
				t.Errorf("expected lastPracticedAt %s, got %v", wantStamp, patch.LastPracticedAt)
			}

			delta := daily[0].Delta
			if delta.Seconds != 30 || delta.Reps != 0 || delta.Date != "2025-03-14" || delta.ExerciseID != "ex-1" {
				t.Errorf("unexpected delta %+v", delta)
			}
			if daily[0].SongID != "song-1" {
				t.Errorf("expected song-1, got %s", daily[0].SongID)
			}

			if mark := h.engine.Snapshot().LastSaveMark; mark != 230 {
				t.Errorf("expected mark 230, got %d", mark)
			}
		})

		t.Run("Failures Are Logged And Do Not Pause", func(t *testing.T) {
			h := newHarness(t)
			h.store.Err = errors.New("connection refused")
			h.engine.StartOrResume(NewCardState("song-1", "ex-1", "Intro", 0, 0))

			h.advance(35)

			snap := h.engine.Snapshot()
			if snap.State != Running || snap.LocalSeconds != 35 {
				t.Errorf("expected still running at 35, got %+v", snap)
			}
			if snap.LastSaveMark != 30 {
				t.Errorf("expected mark to advance despite failure, got %d", snap.LastSaveMark)
			}
			out := h.logs.String()
			if !strings.Contains(out, "exercise update failed") || !strings.Contains(out, "daily log update failed") {
				t.Errorf("expected both failures logged, got %q", out)
			}
		})

		t.Run("Stop Without Progress Sends Nothing", func(t *testing.T) {
			h := newHarness(t)
			card := NewCardState("song-1", "ex-1", "Intro", 0, 0)
			h.engine.StartOrResume(card)
			h.advance(30)
			h.engine.Stop(card)

			if n := len(h.store.DailyLogCalls()); n != 1 {
				t.Errorf("expected only the interval save, got %d", n)
			}
		})
	})

	t.Run("Scenario", func(t *testing.T) {
		h := newHarness(t)
		card := NewCardState("song-1", "ex-a", "A", 0, 0)

		h.engine.StartOrResume(card)
		h.advance(45)

		if n := len(h.store.DailyLogCalls()); n != 1 {
			t.Fatalf("expected 1 save by t=45, got %d", n)
		}
		if d := h.store.DailyLogCalls()[0].Delta.Seconds; d != 30 {
			t.Errorf("expected first delta 30, got %d", d)
		}
		if mark := h.engine.Snapshot().LastSaveMark; mark != 30 {
			t.Errorf("expected mark 30, got %d", mark)
		}

		h.engine.Stop(card)

		exercises := h.store.ExerciseCalls()
		daily := h.store.DailyLogCalls()
		if len(exercises) != 2 || len(daily) != 2 {
			t.Fatalf("expected 2 calls to each endpoint, got %d and %d", len(exercises), len(daily))
		}
		if d := daily[1].Delta.Seconds; d != 15 {
			t.Errorf("expected final delta 15, got %d", d)
		}
		if total := *exercises[1].Patch.TotalPracticedSeconds; total != 45 {
			t.Errorf("expected final total 45, got %d", total)
		}
		if h.engine.State() != Idle || card.Timing() {
			t.Error("expected session to be stopped")
		}
		if h.clock.Pending() != 0 {
			t.Errorf("expected no schedules after stop, got %d", h.clock.Pending())
		}
	})

	t.Run("Stop", func(t *testing.T) {
		t.Run("Other Card Is Ignored", func(t *testing.T) {
			h := newHarness(t)
			a := NewCardState("song-1", "ex-a", "A", 0, 0)
			b := NewCardState("song-1", "ex-b", "B", 0, 0)

			h.engine.StartOrResume(a)
			h.advance(5)
			h.engine.Stop(b)

			if !h.engine.IsRunning(a) {
				t.Error("expected a to keep running")
			}
		})

		t.Run("No Ticks After Stop", func(t *testing.T) {
			h := newHarness(t)
			card := NewCardState("song-1", "ex-1", "Intro", 0, 0)

			h.engine.StartOrResume(card)
			h.advance(10)
			h.engine.Stop(card)
			h.advance(60)

			if card.TotalSeconds() != 10 {
				t.Errorf("expected 10 seconds, got %d", card.TotalSeconds())
			}
		})

		t.Run("Card Total Matches Saved Total", func(t *testing.T) {
			h := newHarness(t)
			card := NewCardState("song-1", "ex-1", "Intro", 45, 0)

			h.engine.StartOrResume(card)
			h.advance(37)
			h.engine.Stop(card)

			calls := h.store.ExerciseCalls()
			if len(calls) != 2 {
				t.Fatalf("expected checkpoint and stop saves, got %d", len(calls))
			}
			for i, call := range calls {
				want := []int{75, 82}[i]
				if got := *call.Patch.TotalPracticedSeconds; got != want {
					t.Errorf("save %d: expected total %d, got %d", i, want, got)
				}
			}
			if card.TotalSeconds() != 82 {
				t.Errorf("expected card total 82, got %d", card.TotalSeconds())
			}
		})

		t.Run("StopActive", func(t *testing.T) {
			h := newHarness(t)
			card := NewCardState("song-1", "ex-1", "Intro", 0, 0)

			h.engine.StartOrResume(card)
			h.advance(7)
			h.engine.StopActive()
			h.engine.StopActive()

			daily := h.store.DailyLogCalls()
			if len(daily) != 1 || daily[0].Delta.Seconds != 7 {
				t.Errorf("expected one 7s flush, got %+v", daily)
			}
		})
	})

	t.Run("Toggle", func(t *testing.T) {
		h := newHarness(t)
		card := NewCardState("song-1", "ex-1", "Intro", 0, 0)

		h.engine.Toggle(card)
		if !h.engine.IsRunning(card) {
			t.Fatal("expected toggle to start")
		}

		h.advance(4)
		h.engine.Toggle(card)
		if h.engine.State() != Idle {
			t.Fatal("expected toggle to stop")
		}

		h.engine.Toggle(card)
		h.advance(2)
		if got := h.engine.Snapshot().LocalSeconds; got != 6 {
			t.Errorf("expected resume from 4 to 6, got %d", got)
		}
	})

	t.Run("Inactivity", func(t *testing.T) {
		t.Run("Stops After The Limit", func(t *testing.T) {
			h := newHarness(t)
			card := NewCardState("song-1", "ex-1", "Intro", 0, 0)

			h.engine.StartOrResume(card)
			h.advance(120)

			if h.engine.State() != Idle || card.Timing() {
				t.Fatal("expected the watchdog to stop the session")
			}

			daily := h.store.DailyLogCalls()
			if len(daily) != 4 {
				t.Fatalf("expected three interval saves and one final flush, got %d", len(daily))
			}
			sum := 0
			for _, c := range daily {
				sum += c.Delta.Seconds
			}
			if sum != card.TotalSeconds() {
				t.Errorf("expected deltas to sum to %d, got %d", card.TotalSeconds(), sum)
			}
			if last := daily[3].Delta.Seconds; last != card.TotalSeconds()-90 {
				t.Errorf("expected final delta %d, got %d", card.TotalSeconds()-90, last)
			}
			if !strings.Contains(h.logs.String(), "stopping idle session") {
				t.Error("expected the auto-stop to be logged")
			}
		})

		t.Run("Tick Landing Before The Watchdog Is Saved", func(t *testing.T) {
			h := newHarness(t)
			card := NewCardState("song-1", "ex-1", "Intro", 0, 0)

			h.engine.StartOrResume(card)
			h.advance(119)

			h.engine.mu.Lock()
			gen := h.engine.active.gen
			h.engine.mu.Unlock()
			h.engine.tick(gen)
			h.advance(1)

			if h.engine.State() != Idle {
				t.Fatal("expected the watchdog to stop the session")
			}
			daily := h.store.DailyLogCalls()
			if len(daily) != 4 || daily[3].Delta.Seconds != 30 {
				t.Fatalf("expected the early tick to be saved once, got %+v", daily)
			}
			if card.TotalSeconds() != 120 {
				t.Errorf("expected 120 seconds, got %d", card.TotalSeconds())
			}

			h.advance(5)
			if card.TotalSeconds() != 120 || len(h.store.DailyLogCalls()) != 4 {
				t.Error("expected no ticks or saves after the stop")
			}
		})

		t.Run("Activity Reschedules The Deadline", func(t *testing.T) {
			h := newHarness(t)
			card := NewCardState("song-1", "ex-1", "Intro", 0, 0)

			h.engine.StartOrResume(card)
			h.advance(100)
			h.engine.NotifyActivity()
			h.advance(100)

			if !h.engine.IsRunning(card) {
				t.Fatal("expected activity to keep the session alive")
			}

			h.advance(20)
			if h.engine.State() != Idle {
				t.Error("expected stop 120s after the last activity")
			}
		})

		t.Run("Activity While Idle Is Ignored", func(t *testing.T) {
			h := newHarness(t)
			h.engine.NotifyActivity()

			if h.clock.Pending() != 0 {
				t.Errorf("expected no schedules, got %d", h.clock.Pending())
			}
		})
	})

	t.Run("AddReps", func(t *testing.T) {
		t.Run("Saves Immediately Without A Session", func(t *testing.T) {
			h := newHarness(t)
			card := NewCardState("song-1", "ex-1", "Intro", 50, 2)

			if err := h.engine.AddReps(card, 3); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if card.TotalReps() != 5 {
				t.Errorf("expected 5 reps, got %d", card.TotalReps())
			}
			exercises := h.store.ExerciseCalls()
			daily := h.store.DailyLogCalls()
			if len(exercises) != 1 || len(daily) != 1 {
				t.Fatalf("expected one save of each kind, got %d and %d", len(exercises), len(daily))
			}
			if reps := exercises[0].Patch.TotalReps; reps == nil || *reps != 5 {
				t.Errorf("expected totalReps 5, got %v", reps)
			}
			if exercises[0].Patch.TotalPracticedSeconds != nil {
				t.Error("expected seconds to be left untouched")
			}
			if d := daily[0].Delta; d.Reps != 3 || d.Seconds != 0 {
				t.Errorf("expected reps 3 seconds 0, got %+v", d)
			}
			if h.engine.State() != Idle || h.clock.Pending() != 0 {
				t.Error("expected no timer to start")
			}
		})

		t.Run("Does Not Disturb A Running Session", func(t *testing.T) {
			h := newHarness(t)
			card := NewCardState("song-1", "ex-1", "Intro", 0, 0)

			h.engine.StartOrResume(card)
			h.advance(10)
			if err := h.engine.AddReps(card, 1); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			snap := h.engine.Snapshot()
			if snap.LocalSeconds != 10 || snap.LastSaveMark != 0 {
				t.Errorf("expected timer state untouched, got %+v", snap)
			}
		})

		t.Run("Rejects Non-positive Counts", func(t *testing.T) {
			h := newHarness(t)
			card := NewCardState("song-1", "ex-1", "Intro", 0, 0)

			for _, n := range []int{0, -2} {
				if err := h.engine.AddReps(card, n); !errors.Is(err, shared.ErrInvalidInput) {
					t.Errorf("count %d: expected ErrInvalidInput, got %v", n, err)
				}
			}
			if len(h.store.ExerciseCalls()) != 0 {
				t.Error("expected no saves")
			}
		})

		t.Run("Nil Card", func(t *testing.T) {
			h := newHarness(t)
			if err := h.engine.AddReps(nil, 1); !errors.Is(err, shared.ErrMissingArgument) {
				t.Errorf("expected ErrMissingArgument, got %v", err)
			}
		})
	})

	t.Run("Close", func(t *testing.T) {
		t.Run("Flushes And Waits For Saves", func(t *testing.T) {
			store := &tu.RecordingStore{}
			clock := tu.NewFakeClock(epoch)
			engine := NewEngine(EngineOpts{Store: store, Clock: clock, Logger: shared.NewLogger(io.Discard)})
			card := NewCardState("song-1", "ex-1", "Intro", 0, 0)

			engine.StartOrResume(card)
			clock.Advance(12 * time.Second)

			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := engine.Close(ctx); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			daily := store.DailyLogCalls()
			if len(daily) != 1 || daily[0].Delta.Seconds != 12 {
				t.Errorf("expected one 12s flush, got %+v", daily)
			}
		})

		t.Run("Times Out On A Stuck Save", func(t *testing.T) {
			release := make(chan struct{})
			var wg sync.WaitGroup
			engine := NewEngine(EngineOpts{
				Store:  blockingStore{release: release},
				Clock:  tu.NewFakeClock(epoch),
				Logger: shared.NewLogger(io.Discard),
				Dispatch: func(save func()) {
					wg.Add(1)
					go func() {
						defer wg.Done()
						save()
					}()
				},
			})

			if err := engine.AddReps(NewCardState("song-1", "ex-1", "Intro", 0, 0), 1); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()
			if err := engine.Close(ctx); !errors.Is(err, shared.ErrTimeout) {
				t.Errorf("expected ErrTimeout, got %v", err)
			}

			close(release)
			wg.Wait()
		})
	})
}

type blockingStore struct {
	release chan struct{}
}

func (s blockingStore) PatchExercise(ctx context.Context, songID, exerciseID string, patch models.ExercisePatch) error {
	<-s.release
	return nil
}

func (s blockingStore) PatchDailyLog(ctx context.Context, songID string, delta models.DailyLogDelta) error {
	<-s.release
	return nil
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{Idle, "idle"},
		{Running, "running"},
		{State(7), "State(7)"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.state.String(); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
