//go:build property

package errors

import (
	"fmt"
	"sync"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestErrorCollectorProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(2468)
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("concurrent error addition is thread-safe", prop.ForAll(
		func(goroutineCount int, errorsPerGoroutine int) bool {
			collector := NewErrorCollector()

			var wg sync.WaitGroup
			for g := 0; g < goroutineCount; g++ {
				wg.Add(1)
				go func(id int) {
					defer wg.Done()
					for e := 0; e < errorsPerGoroutine; e++ {
						collector.Add(fmt.Sprintf("op_%d_%d", id, e), NewNoMatchError("x"))
					}
				}(g)
			}
			wg.Wait()

			return len(collector.GetErrors()) == goroutineCount*errorsPerGoroutine
		},
		gen.IntRange(1, 10),
		gen.IntRange(1, 20),
	))

	properties.Property("context never changes sentinel identity", prop.ForAll(
		func(key string, value int) bool {
			err := NewNoMatchError("q").WithContext(key, value)
			return Is(err, ErrNoMatch) && !Is(err, ErrDisposedScope)
		},
		gen.AlphaString(),
		gen.Int(),
	))

	properties.TestingRun(t)
}
