package app

import (
	"os"
	"strconv"
	"sync"
	"sync/atomic"
)

// TestModeEnv names the variable that disables startup side effects.
const TestModeEnv = "USERSVC_TEST_MODE"

var (
	testModeRead sync.Once
	testMode     atomic.Bool
)

// InTestMode reports whether binaries should return before dialing Postgres,
// Redis or the job queue. The variable is read on first use.
func InTestMode() bool {
	testModeRead.Do(RefreshTestMode)
	return testMode.Load()
}

// RefreshTestMode re-reads TestModeEnv. Any value strconv.ParseBool accepts
// as true enables test mode.
func RefreshTestMode() {
	on, err := strconv.ParseBool(os.Getenv(TestModeEnv))
	testMode.Store(err == nil && on)
}
