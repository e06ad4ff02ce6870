package cache

import "sync/atomic"

// Stats tracks cache operation counters with atomic increments. Counters
// are per-process; the aggregate view is exposed through Snapshot.
type Stats struct {
	hits     atomic.Int64
	misses   atomic.Int64
	writes   atomic.Int64
	deletes  atomic.Int64
	rejected atomic.Int64
}

// NewStats creates a zeroed stats component.
func NewStats() *Stats {
	return &Stats{}
}

func (s *Stats) hit()    { s.hits.Add(1) }
func (s *Stats) miss()   { s.misses.Add(1) }
func (s *Stats) write()  { s.writes.Add(1) }
func (s *Stats) reject() { s.rejected.Add(1) }

func (s *Stats) delete(n int) {
	if n > 0 {
		s.deletes.Add(int64(n))
	}
}

// Snapshot is a point-in-time view of the counters.
type Snapshot struct {
	Hits     int64   `json:"hits"`
	Misses   int64   `json:"misses"`
	Writes   int64   `json:"writes"`
	Deletes  int64   `json:"deletes"`
	Rejected int64   `json:"rejected"`
	HitRatio float64 `json:"hit_ratio"`
}

// Snapshot returns the current counter values and the hit-ratio health
// score (1.0 when there were no reads yet).
func (s *Stats) Snapshot() Snapshot {
	snap := Snapshot{
		Hits:     s.hits.Load(),
		Misses:   s.misses.Load(),
		Writes:   s.writes.Load(),
		Deletes:  s.deletes.Load(),
		Rejected: s.rejected.Load(),
	}
	reads := snap.Hits + snap.Misses
	if reads == 0 {
		snap.HitRatio = 1.0
	} else {
		snap.HitRatio = float64(snap.Hits) / float64(reads)
	}
	return snap
}
