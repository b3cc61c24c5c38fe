package app

import (
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

// TestModeEnv makes the entrypoints return before touching Redis, the ERP or
// the network.
const TestModeEnv = "ERPGW_TEST_MODE"

var (
	testModeOnce sync.Once
	testMode     atomic.Bool
)

// InTestMode reports whether the application should skip runtime side effects.
// The environment is read on first use.
func InTestMode() bool {
	testModeOnce.Do(RefreshTestMode)
	return testMode.Load()
}

// RefreshTestMode re-reads the flag after environment changes.
func RefreshTestMode() {
	testMode.Store(truthy(os.Getenv(TestModeEnv)))
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
