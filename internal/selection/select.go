package selection

import "snapshot-sweeper/internal/snapshot"

// Result partitions the candidates. ToDelete and Excluded are disjoint and
// keep input order; Retained counts the rest (too young or other label).
type Result struct {
	ToDelete []snapshot.Record
	Excluded []snapshot.Record
	Retained int
}

// Total is the number of candidates that were classified.
func (r Result) Total() int {
	return len(r.ToDelete) + len(r.Excluded) + r.Retained
}

// Select applies the chain to every record in order.
func Select(records []snapshot.Record, chain Chain) Result {
	res := Result{
		ToDelete: []snapshot.Record{},
		Excluded: []snapshot.Record{},
	}
	for _, r := range records {
		switch chain.Classify(r) {
		case Delete:
			res.ToDelete = append(res.ToDelete, r)
		case Excluded:
			res.Excluded = append(res.Excluded, r)
		default:
			res.Retained++
		}
	}
	return res
}
