package store

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
)

// ContentHash returns the hex SHA-256 of a file's content. The Indexer
// skips files whose stored hash matches.
func ContentHash(content []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(content))
}

// SettingsHash computes a deterministic hash of the analysis settings an
// index was built with. Changing them invalidates every stored result, so
// the hash is kept in metadata and compared before indexing.
func SettingsHash(settings map[string]string) string {
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	for _, k := range keys {
		fmt.Fprintf(h, "%s:%s\n", k, strings.TrimSpace(settings[k]))
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
