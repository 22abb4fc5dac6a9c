// Package guard marks the process as running under tests. Importing it
// for side effects keeps binaries from touching real infrastructure when
// linked into a test run.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("CLINICFLOW_TEST_MODE") == "" {
			_ = os.Setenv("CLINICFLOW_TEST_MODE", "1")
		}
	})
}
