package debounce

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder[T any] struct {
	mutex sync.Mutex
	calls []T
}

func (r *recorder[T]) record(arg T) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.calls = append(r.calls, arg)
}

func (r *recorder[T]) snapshot() []T {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	out := make([]T, len(r.calls))
	copy(out, r.calls)
	return out
}

func TestDebouncerCoalescesBurst(t *testing.T) {
	rec := &recorder[string]{}
	d := New(50*time.Millisecond, rec.record)
	defer d.Stop()

	for _, path := range []string{"a.slim", "b.slim", "c.slim", "d.slim"} {
		d.Call(path)
		time.Sleep(5 * time.Millisecond)
	}

	assert.Empty(t, rec.snapshot(), "nothing should run inside the debounce window")

	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 },
		time.Second, 10*time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, []string{"d.slim"}, rec.snapshot())
}

func TestDebouncerSeparateBursts(t *testing.T) {
	rec := &recorder[int]{}
	d := New(20*time.Millisecond, rec.record)
	defer d.Stop()

	d.Call(1)
	d.Call(2)
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 },
		time.Second, 5*time.Millisecond)

	d.Call(3)
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 2 },
		time.Second, 5*time.Millisecond)

	assert.Equal(t, []int{2, 3}, rec.snapshot())
}

func TestDebouncerFlush(t *testing.T) {
	rec := &recorder[string]{}
	d := New(time.Hour, rec.record)
	defer d.Stop()

	assert.False(t, d.Flush(), "flush with nothing pending")

	d.Call("first")
	d.Call("second")
	assert.True(t, d.Pending())
	assert.True(t, d.Flush())
	assert.False(t, d.Pending())
	assert.Equal(t, []string{"second"}, rec.snapshot())
}

func TestDebouncerStop(t *testing.T) {
	var calls atomic.Int32
	d := New(10*time.Millisecond, func(struct{}) { calls.Add(1) })

	d.Call(struct{}{})
	d.Stop()
	d.Call(struct{}{})

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
	assert.False(t, d.Pending())
}

func TestNewPanicsOnNilFunc(t *testing.T) {
	assert.Panics(t, func() { New[string](time.Millisecond, nil) })
	assert.Panics(t, func() { Func(time.Millisecond, nil) })
}

func TestTrigger(t *testing.T) {
	var calls atomic.Int32
	trigger := Func(15*time.Millisecond, func() { calls.Add(1) })
	defer trigger.Stop()

	for i := 0; i < 10; i++ {
		trigger.Fire()
	}
	assert.True(t, trigger.Pending())

	require.Eventually(t, func() bool { return calls.Load() == 1 },
		time.Second, 5*time.Millisecond)

	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
	assert.False(t, trigger.Flush())
}
