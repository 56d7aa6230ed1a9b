// Package guard forces test mode for packages that import it, keeping
// runtime side effects out of test runs.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("GRUNDBOK_TEST_MODE") == "" {
			_ = os.Setenv("GRUNDBOK_TEST_MODE", "1")
		}
	})
}
