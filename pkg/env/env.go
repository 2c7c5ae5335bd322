// Package env reads raw process environment values for the few settings
// that must resolve before the typed configuration is loaded, like the log
// output format.
package env

import "os"

// Get returns the named environment variable, or fallback when it is unset
// or empty.
func Get(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
