package reconcile

import (
	"sort"
)

// Resolve groups records by identity key and keeps one record per key.
//
// When several records share a key the winner is chosen by, in order:
// the latest non-null qc_date, the most populated optional fields, and the
// lowest extraction sequence number. Every loser is reported as an
// IdentityCollision. The returned records are sorted by key.
func Resolve(records []Record) ([]Record, []IdentityCollision) {
	groups := make(map[Key][]Record, len(records))
	for _, rec := range records {
		k := rec.Key()
		groups[k] = append(groups[k], rec)
	}

	out := make([]Record, 0, len(groups))
	var collisions []IdentityCollision

	for key, group := range groups {
		if len(group) == 1 {
			out = append(out, group[0])
			continue
		}
		sort.SliceStable(group, func(i, j int) bool {
			_, better := outranks(group[i], group[j])
			return better
		})
		winner := group[0]
		for _, loser := range group[1:] {
			reason, _ := outranks(winner, loser)
			collisions = append(collisions, IdentityCollision{
				Key:     key,
				Kept:    winner.Seq,
				Dropped: loser.Seq,
				Reason:  reason,
			})
		}
		out = append(out, winner)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Key().Less(out[j].Key()) })
	sort.Slice(collisions, func(i, j int) bool {
		if collisions[i].Key != collisions[j].Key {
			return collisions[i].Key.Less(collisions[j].Key)
		}
		return collisions[i].Dropped < collisions[j].Dropped
	})
	return out, collisions
}

// outranks reports whether a should be kept over b, and which rule decided.
func outranks(a, b Record) (string, bool) {
	switch {
	case a.QCDate != nil && b.QCDate == nil:
		return "newer qc_date", true
	case a.QCDate == nil && b.QCDate != nil:
		return "newer qc_date", false
	case a.QCDate != nil && b.QCDate != nil && !a.QCDate.Equal(*b.QCDate):
		return "newer qc_date", a.QCDate.After(*b.QCDate)
	}
	if pa, pb := a.populated(), b.populated(); pa != pb {
		return "more populated fields", pa > pb
	}
	return "earlier extraction", a.Seq < b.Seq
}
