package cache

import (
	"encoding/json"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Result kinds kept apart in the key space.
const (
	KindList  = "list"
	KindCount = "count"
)

// Key fingerprints a query for the given generation. Every exported field of
// query takes part in the hash, so distinct filters never share an entry.
func Key(generation int64, kind string, query any) (string, error) {
	raw, err := json.Marshal(query)
	if err != nil {
		return "", fmt.Errorf("cache key: %w", err)
	}
	return fmt.Sprintf("%s:g%d:%016x", kind, generation, xxhash.Sum64(raw)), nil
}
