package session

import (
	"math/rand/v2"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func questionIDs(qs []Question) []string {
	ids := make([]string, len(qs))
	for i, q := range qs {
		ids[i] = q.ID
	}
	return ids
}

func TestRandomizeKeepsInputUntouched(t *testing.T) {
	qs := sampleTest().Questions
	before := questionIDs(qs)
	beforeOpts := append([]Option(nil), qs[0].Options...)

	r := NewRandomizer(rand.New(rand.NewPCG(1, 2)))
	out := r.Randomize(qs, RandomizeOptions{ShuffleQuestions: true, ShuffleOptions: true})

	assert.Equal(t, before, questionIDs(qs))
	assert.Equal(t, beforeOpts, qs[0].Options)
	assert.ElementsMatch(t, before, questionIDs(out))
}

func TestRandomizeTruncates(t *testing.T) {
	qs := sampleTest().Questions

	out := Randomize(qs, RandomizeOptions{MaxQuestions: 2})
	assert.Equal(t, []string{"q1", "q2"}, questionIDs(out))

	out = Randomize(qs, RandomizeOptions{MaxQuestions: 10})
	assert.Len(t, out, len(qs))

	out = Randomize(qs, RandomizeOptions{MaxQuestions: 0})
	assert.Len(t, out, len(qs))
}

func TestRandomizeShufflesOptionsAsPermutation(t *testing.T) {
	qs := sampleTest().Questions
	r := NewRandomizer(rand.New(rand.NewPCG(7, 7)))

	out := r.Randomize(qs, RandomizeOptions{ShuffleOptions: true})
	require.Equal(t, questionIDs(qs), questionIDs(out))
	for i := range qs {
		assert.ElementsMatch(t, qs[i].Options, out[i].Options)
	}
}

func TestRandomizeIsDeterministicForSeed(t *testing.T) {
	qs := sampleTest().Questions
	opts := RandomizeOptions{ShuffleQuestions: true, ShuffleOptions: true}

	a := NewRandomizer(rand.New(rand.NewPCG(42, 1))).Randomize(qs, opts)
	b := NewRandomizer(rand.New(rand.NewPCG(42, 1))).Randomize(qs, opts)
	assert.Equal(t, a, b)
}

func TestAnswerStoreGate(t *testing.T) {
	open := true
	store := NewAnswerStore(func() bool { return open })

	assert.True(t, store.Set("q1", "a"))
	assert.True(t, store.Set("q1", "b"))
	v, ok := store.Get("q1")
	assert.True(t, ok)
	assert.Equal(t, "b", v)

	open = false
	assert.False(t, store.Set("q1", "c"))
	v, _ = store.Get("q1")
	assert.Equal(t, "b", v)
}

func TestAnswerStoreEmptyValuesAreUnanswered(t *testing.T) {
	store := NewAnswerStore(nil)
	store.Set("q1", "a")
	store.Set("q2", "")

	assert.Equal(t, 1, store.AnsweredCount())
	assert.False(t, store.IsAnswered("q2"))
	assert.Equal(t, map[string]string{"q1": "a"}, store.Snapshot())

	store.Set("q1", "")
	assert.Equal(t, 0, store.AnsweredCount())

	store.Restore(map[string]string{"q3": "x"})
	assert.True(t, store.IsAnswered("q3"))
	store.Reset()
	assert.Empty(t, store.Snapshot())
}

func TestNavigatorBounds(t *testing.T) {
	nav := NewNavigator([]string{"a", "b", "c"}, nil, nil)

	assert.False(t, nav.Prev())
	assert.Equal(t, 0, nav.Current())
	assert.True(t, nav.Next())
	assert.True(t, nav.Next())
	assert.False(t, nav.Next())
	assert.Equal(t, 2, nav.Current())
	assert.Equal(t, "c", nav.CurrentID())

	assert.False(t, nav.GoTo(-1))
	assert.False(t, nav.GoTo(3))
	assert.Equal(t, 2, nav.Current())
	assert.True(t, nav.GoTo(0))
}

func TestNavigatorNextUnanswered(t *testing.T) {
	nav := NewNavigator([]string{"a", "b", "c", "d"}, nil, nil)
	answered := map[string]bool{"b": true, "c": true}
	isAnswered := func(id string) bool { return answered[id] }

	assert.True(t, nav.NextUnanswered(isAnswered))
	assert.Equal(t, 3, nav.Current())

	// all later answered: plain next, which is a no-op at the end
	assert.False(t, nav.NextUnanswered(isAnswered))
	assert.Equal(t, 3, nav.Current())

	nav.GoTo(0)
	answered["d"] = true
	assert.True(t, nav.NextUnanswered(isAnswered))
	assert.Equal(t, 1, nav.Current())
}

func TestNavigatorToggles(t *testing.T) {
	writable := true
	nav := NewNavigator([]string{"a", "b", "c"}, nil, func() bool { return writable })

	assert.True(t, nav.ToggleBookmark("c"))
	assert.True(t, nav.ToggleBookmark("a"))
	assert.Equal(t, []string{"a", "c"}, nav.Bookmarks())
	assert.False(t, nav.ToggleBookmark("a"))
	assert.Equal(t, []string{"c"}, nav.Bookmarks())

	assert.True(t, nav.ToggleFlag("b"))
	writable = false
	assert.True(t, nav.ToggleFlag("b"))
	assert.False(t, nav.ToggleBookmark("a"))
	assert.Equal(t, []string{"b"}, nav.Flags())
}

func TestNavigatorMoveGate(t *testing.T) {
	movable := false
	nav := NewNavigator([]string{"a", "b"}, func() bool { return movable }, nil)

	assert.False(t, nav.Next())
	movable = true
	assert.True(t, nav.Next())
}

func TestTimerCountsDownAndExpiresOnce(t *testing.T) {
	var ticks []int
	var expired atomic.Int32
	tickCh := make(chan int, 10)

	timer := NewTimer(3, TimerOptions{
		Tick:     5 * time.Millisecond,
		OnTick:   func(r int) { tickCh <- r },
		OnExpire: func() { expired.Add(1) },
	})
	timer.Start()
	timer.Start()

	select {
	case <-timer.Done():
	case <-time.After(time.Second):
		t.Fatal("timer did not finish")
	}
	close(tickCh)
	for r := range tickCh {
		ticks = append(ticks, r)
	}

	assert.Equal(t, []int{2, 1, 0}, ticks)
	assert.Equal(t, int32(1), expired.Load())
	assert.Equal(t, 0, timer.Remaining())
	assert.False(t, timer.Running())
}

func TestTimerStopPreventsExpiry(t *testing.T) {
	var expired atomic.Int32
	timer := NewTimer(1000, TimerOptions{
		Tick:     time.Millisecond,
		OnExpire: func() { expired.Add(1) },
	})
	timer.Start()
	assert.True(t, timer.Running())
	timer.Stop()
	timer.Stop()

	select {
	case <-timer.Done():
	case <-time.After(time.Second):
		t.Fatal("timer goroutine still running")
	}
	assert.Zero(t, expired.Load())
	assert.Greater(t, timer.Remaining(), 0)
}

func TestTimerStopFromCallback(t *testing.T) {
	var timer *Timer
	timer = NewTimer(10, TimerOptions{
		Tick:   time.Millisecond,
		OnTick: func(int) { timer.Stop() },
	})
	timer.Start()

	select {
	case <-timer.Done():
	case <-time.After(time.Second):
		t.Fatal("stop from callback deadlocked")
	}
	assert.Equal(t, 9, timer.Remaining())
}

func TestTimerStartAfterStop(t *testing.T) {
	timer := NewTimer(1, TimerOptions{Tick: time.Millisecond})
	timer.Stop()
	timer.Start()
	assert.False(t, timer.Running())
	assert.Equal(t, 1, timer.Remaining())
}
