package envutil

import "os"

const prefix = "COLLAB_"

// Get retrieves an environment variable with automatic COLLAB_ prefix fallback.
// Lookup order: the exact key, then the key with the COLLAB_ prefix, then fallback.
func Get(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}

	if len(key) < len(prefix) || key[:len(prefix)] != prefix {
		if value, exists := os.LookupEnv(prefix + key); exists {
			return value
		}
	}

	return fallback
}
