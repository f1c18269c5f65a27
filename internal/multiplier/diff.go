package multiplier

import (
	"sort"

	"github.com/mbicorp/amazonbid-engine-sub000/internal/domain"
)

// DefaultChangeThreshold is the minimum absolute delta for a multiplier to
// count as materially changed.
const DefaultChangeThreshold = 0.01

// Change pairs the old and new multiplier for one bucket key.
type Change struct {
	Key   string
	Old   float64
	New   float64
	Delta float64
}

// DiffResult categorizes a new multiplier set against a prior one. It is
// audit/explainability data only; nothing branches on it.
type DiffResult struct {
	Added     []domain.BidMultiplier
	Removed   []domain.BidMultiplier
	Changed   []Change
	Unchanged int
}

// Diff compares two multiplier sets by (hour, weekday) key. A pair counts as
// changed when |new - old| exceeds threshold (<= 0 means
// DefaultChangeThreshold). Output slices are sorted by key for deterministic
// rendering.
func Diff(old, new []domain.BidMultiplier, threshold float64) DiffResult {
	if threshold <= 0 {
		threshold = DefaultChangeThreshold
	}

	oldByKey := make(map[string]domain.BidMultiplier, len(old))
	for _, m := range old {
		oldByKey[m.Key()] = m
	}

	var res DiffResult
	seen := make(map[string]struct{}, len(new))

	for _, m := range new {
		key := m.Key()
		seen[key] = struct{}{}

		prev, ok := oldByKey[key]
		if !ok {
			res.Added = append(res.Added, m)
			continue
		}

		delta := m.Multiplier - prev.Multiplier
		if abs(delta) > threshold {
			res.Changed = append(res.Changed, Change{
				Key:   key,
				Old:   prev.Multiplier,
				New:   m.Multiplier,
				Delta: delta,
			})
		} else {
			res.Unchanged++
		}
	}

	for _, m := range old {
		if _, ok := seen[m.Key()]; !ok {
			res.Removed = append(res.Removed, m)
		}
	}

	sort.Slice(res.Added, func(i, j int) bool { return res.Added[i].Key() < res.Added[j].Key() })
	sort.Slice(res.Removed, func(i, j int) bool { return res.Removed[i].Key() < res.Removed[j].Key() })
	sort.Slice(res.Changed, func(i, j int) bool { return res.Changed[i].Key < res.Changed[j].Key })

	return res
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
