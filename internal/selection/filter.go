package selection

import (
	"time"

	"snapshot-sweeper/internal/exclusion"
	"snapshot-sweeper/internal/snapshot"
)

// Predicate is one inclusion test over a parsed snapshot.
type Predicate func(snapshot.Record) bool

// AgeFilter holds for snapshots strictly older than cutoff.
// A snapshot taken exactly at the cutoff is retained.
func AgeFilter(cutoff time.Time) Predicate {
	return func(r snapshot.Record) bool {
		return r.Timestamp.Before(cutoff)
	}
}

// ExclusionFilter holds for snapshots whose full name is not in the set.
func ExclusionFilter(set *exclusion.Set) Predicate {
	return func(r snapshot.Record) bool {
		return !set.Contains(r.FullName)
	}
}

// LabelFilter holds for every snapshot when label is empty, otherwise only
// for an exact, case-sensitive label match.
func LabelFilter(label string) Predicate {
	if label == "" {
		return func(snapshot.Record) bool { return true }
	}
	return func(r snapshot.Record) bool {
		return r.Label == label
	}
}

// Verdict is the classification of one candidate.
type Verdict int

const (
	// TooYoung candidates fail the age cutoff and are not reported.
	TooYoung Verdict = iota
	// LabelMismatch candidates are old enough but carry another label.
	LabelMismatch
	// Excluded candidates would be deleted but are protected by the exclusion set.
	Excluded
	Delete
)

func (v Verdict) String() string {
	switch v {
	case TooYoung:
		return "too_young"
	case LabelMismatch:
		return "label_mismatch"
	case Excluded:
		return "excluded"
	case Delete:
		return "delete"
	default:
		return "unknown"
	}
}

// Chain combines the age, exclusion and label predicates.
type Chain struct {
	Age       Predicate
	Exclusion Predicate
	Label     Predicate
}

// NewChain builds the chain for a cutoff, optional label and exclusion set.
func NewChain(cutoff time.Time, label string, set *exclusion.Set) Chain {
	return Chain{
		Age:       AgeFilter(cutoff),
		Exclusion: ExclusionFilter(set),
		Label:     LabelFilter(label),
	}
}

// Classify returns the verdict for r. A record is deleted only when all three
// predicates hold; it is reported as excluded only when exclusion is the sole
// failing predicate.
func (c Chain) Classify(r snapshot.Record) Verdict {
	if !c.Age(r) {
		return TooYoung
	}
	if !c.Label(r) {
		return LabelMismatch
	}
	if !c.Exclusion(r) {
		return Excluded
	}
	return Delete
}
