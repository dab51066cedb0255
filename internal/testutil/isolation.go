// Package testutil holds helpers shared by kickstart tests.
package testutil

import (
	"os"
	"strings"
	"testing"
)

// Isolate unsets every environment variable starting with prefix for the
// duration of the test and restores them on cleanup, so a developer's own
// KICKSTART_* settings can't leak into manifest loading.
//
// Tests calling Isolate must not run in parallel.
func Isolate(t *testing.T, prefix string) {
	t.Helper()

	snapshot := map[string]string{}
	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, prefix) {
			continue
		}
		snapshot[key] = value
		_ = os.Unsetenv(key)
	}

	t.Cleanup(func() {
		for _, kv := range os.Environ() {
			key, _, ok := strings.Cut(kv, "=")
			if ok && strings.HasPrefix(key, prefix) {
				_ = os.Unsetenv(key)
			}
		}
		for key, value := range snapshot {
			_ = os.Setenv(key, value)
		}
	})
}
