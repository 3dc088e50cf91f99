package scan

import (
	"sync"

	"github.com/alanyoungcy/arbscan/internal/domain"
)

// Dedup drops duplicate opportunities within one scan. Opportunities are
// keyed by strategy plus sorted leg set; the earliest arrival wins. It is
// safe for concurrent use.
type Dedup struct {
	seen map[string]struct{}
	mu   sync.Mutex
}

// NewDedup creates an empty per-scan deduplicator.
func NewDedup() *Dedup {
	return &Dedup{seen: make(map[string]struct{})}
}

// IsDuplicate reports whether an equivalent opportunity has already been
// seen this scan. A first sighting is recorded and returns false.
func (d *Dedup) IsDuplicate(opp *domain.Opportunity) bool {
	key := opp.CanonicalKey()

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[key]; ok {
		return true
	}
	d.seen[key] = struct{}{}
	return false
}
