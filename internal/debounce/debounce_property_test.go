//go:build property

package debounce

import (
	"sync"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestDebounceProperties validates coalescing for arbitrary bursts.
func TestDebounceProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(4242)
	parameters.MinSuccessfulTests = 25

	properties := gopter.NewProperties(parameters)

	properties.Property("a burst yields exactly one call with the last argument", prop.ForAll(
		func(args []int) bool {
			if len(args) == 0 {
				return true
			}

			var mutex sync.Mutex
			var got []int
			d := New(20*time.Millisecond, func(v int) {
				mutex.Lock()
				got = append(got, v)
				mutex.Unlock()
			})
			defer d.Stop()

			for _, arg := range args {
				d.Call(arg)
			}

			time.Sleep(80 * time.Millisecond)

			mutex.Lock()
			defer mutex.Unlock()
			return len(got) == 1 && got[0] == args[len(args)-1]
		},
		gen.SliceOfN(15, gen.IntRange(0, 1000)),
	))

	properties.TestingRun(t)
}
