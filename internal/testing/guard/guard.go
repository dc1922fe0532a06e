// Package guard is imported for its side effect by tests that start binaries
// or load config: it enables test mode and supplies a throwaway JWT secret.
package guard

import "os"

func init() {
	setDefault("USERSVC_TEST_MODE", "1")
	setDefault("JWT_SECRET", "test-secret")
}

func setDefault(key, value string) {
	if os.Getenv(key) == "" {
		_ = os.Setenv(key, value)
	}
}
