// Package testing switches the gateway into test mode when imported by tests.
// It also fills the environment keys LoadConfig requires, so packages that
// build a Config from the environment work without a .env file.
package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

var testDefaults = map[string]string{
	"ERPGW_TEST_MODE": "1",
	"ERP_BASE_URL":    "http://127.0.0.1:0",
	"SESSION_BACKEND": "memory",
	"LOG_LEVEL":       "error",
}

func ensureTestMode() {
	once.Do(func() {
		for key, value := range testDefaults {
			if _, ok := os.LookupEnv(key); !ok || key == "ERPGW_TEST_MODE" {
				_ = os.Setenv(key, value)
			}
		}
	})
}

func init() {
	ensureTestMode()
}

// TestMain can be delegated to from a package's own TestMain.
func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
