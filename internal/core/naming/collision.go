package naming

import (
	"fmt"
	"strings"
)

// CollisionResolver hands out unique archive entry names within one build.
// A repeated name gets a "-N" suffix before its extension, starting at 2.
// It is not safe for concurrent use.
type CollisionResolver struct {
	claimed  map[string]bool
	counters map[string]int
}

func NewCollisionResolver() *CollisionResolver {
	return &CollisionResolver{
		claimed:  make(map[string]bool),
		counters: make(map[string]int),
	}
}

func (cr *CollisionResolver) Resolve(name string) string {
	if !cr.claimed[name] {
		cr.claimed[name] = true
		return name
	}

	stem, ext := name, ""
	if idx := strings.LastIndexByte(name, '.'); idx > 0 {
		stem, ext = name[:idx], name[idx:]
	}

	counter := cr.counters[name]
	if counter == 0 {
		counter = 2
	}
	for {
		candidate := fmt.Sprintf("%s-%d%s", stem, counter, ext)
		counter++
		if !cr.claimed[candidate] {
			cr.counters[name] = counter
			cr.claimed[candidate] = true
			return candidate
		}
	}
}
