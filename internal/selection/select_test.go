package selection

import (
	"testing"
	"time"

	"snapshot-sweeper/internal/exclusion"
	"snapshot-sweeper/internal/snapshot"
)

func mustParse(t *testing.T, raw string) snapshot.Record {
	t.Helper()
	rec, err := snapshot.ParseInLocation(raw, time.UTC)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return rec
}

func names(records []snapshot.Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.FullName)
	}
	return out
}

func equalNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

var today = time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)

func scenarioCandidates(t *testing.T) []snapshot.Record {
	return []snapshot.Record{
		mustParse(t, "A@2020-01-01-0000-00-X"),
		mustParse(t, "B@2099-01-01-0000-00-X"),
		mustParse(t, "C@2020-01-01-0000-00-Y"),
	}
}

func TestScenarioExcludedAndLabel(t *testing.T) {
	set := exclusion.FromLines([]string{"A@2020-01-01-0000-00-X"})
	res := Select(scenarioCandidates(t), NewChain(today, "X", set))

	if len(res.ToDelete) != 0 {
		t.Errorf("expected nothing to delete, got %v", names(res.ToDelete))
	}
	if !equalNames(names(res.Excluded), []string{"A@2020-01-01-0000-00-X"}) {
		t.Errorf("expected excluded [A], got %v", names(res.Excluded))
	}
	if res.Retained != 2 {
		t.Errorf("expected 2 retained (B too young, C other label), got %d", res.Retained)
	}
}

func TestScenarioNoFilters(t *testing.T) {
	res := Select(scenarioCandidates(t), NewChain(today, "", exclusion.Empty()))

	expected := []string{"A@2020-01-01-0000-00-X", "C@2020-01-01-0000-00-Y"}
	if !equalNames(names(res.ToDelete), expected) {
		t.Errorf("ToDelete = %v, expected %v", names(res.ToDelete), expected)
	}
	if len(res.Excluded) != 0 {
		t.Errorf("expected no excluded, got %v", names(res.Excluded))
	}
}

func TestBoundaryTieIsRetained(t *testing.T) {
	cutoff := time.Date(2020, 9, 10, 0, 0, 0, 0, time.UTC)
	records := []snapshot.Record{
		mustParse(t, "tank@2020-09-10-0000-00-X"),
		mustParse(t, "tank@2020-09-09-2359-59-X"),
		mustParse(t, "tank@2020-09-10-0000-01-X"),
	}

	res := Select(records, NewChain(cutoff, "", nil))
	if !equalNames(names(res.ToDelete), []string{"tank@2020-09-09-2359-59-X"}) {
		t.Errorf("ToDelete = %v, only the snapshot one second before cutoff should qualify", names(res.ToDelete))
	}
}

func TestExclusionPrecedence(t *testing.T) {
	rec := mustParse(t, "tank/home@2020-04-25-1300-15-CHECKPOINT")
	set := exclusion.FromLines([]string{rec.FullName})
	chain := NewChain(today, "CHECKPOINT", set)

	if v := chain.Classify(rec); v != Excluded {
		t.Fatalf("Classify = %s, expected excluded", v)
	}
	res := Select([]snapshot.Record{rec}, chain)
	if len(res.ToDelete) != 0 {
		t.Errorf("excluded snapshot selected for deletion: %v", names(res.ToDelete))
	}
}

func TestClassify(t *testing.T) {
	set := exclusion.FromLines([]string{"tank@2020-01-01-0000-00-X", "tank@2099-01-01-0000-00-X"})
	chain := NewChain(today, "X", set)

	tests := []struct {
		raw      string
		expected Verdict
	}{
		{"tank@2020-01-02-0000-00-X", Delete},
		{"tank@2020-01-01-0000-00-X", Excluded},
		{"tank@2099-01-01-0000-00-X", TooYoung},
		{"tank@2099-01-02-0000-00-X", TooYoung},
		{"tank@2020-01-02-0000-00-Y", LabelMismatch},
		{"tank@2020-01-02-0000-00-x", LabelMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := chain.Classify(mustParse(t, tt.raw)); got != tt.expected {
				t.Errorf("Classify(%s) = %s, expected %s", tt.raw, got, tt.expected)
			}
		})
	}
}

func TestPartitionCompleteness(t *testing.T) {
	raws := []string{
		"tank@2020-01-01-0000-00-X",
		"tank@2020-01-02-0000-00-Y",
		"tank/a@2020-01-03-0000-00-X",
		"tank/a@2026-10-15-0000-00-X",
		"tank/b@2026-10-16-0000-00-X",
		"tank/b@2030-01-01-0000-00-X",
		"tank/b@2019-05-05-0505-05-X",
	}
	var records []snapshot.Record
	for _, raw := range raws {
		records = append(records, mustParse(t, raw))
	}
	set := exclusion.FromLines([]string{"tank/a@2020-01-03-0000-00-X", "tank/b@2030-01-01-0000-00-X"})

	for _, label := range []string{"", "X", "Y", "Z"} {
		res := Select(records, NewChain(today, label, set))
		if res.Total() != len(records) {
			t.Errorf("label %q: partition covers %d of %d", label, res.Total(), len(records))
		}
		seen := map[string]bool{}
		for _, r := range append(append([]snapshot.Record{}, res.ToDelete...), res.Excluded...) {
			if seen[r.FullName] {
				t.Errorf("label %q: %s counted twice", label, r.FullName)
			}
			seen[r.FullName] = true
		}
	}
}

func TestSelectDeterministic(t *testing.T) {
	records := []snapshot.Record{
		mustParse(t, "tank@2020-03-01-0000-00-X"),
		mustParse(t, "tank@2020-01-01-0000-00-X"),
		mustParse(t, "tank@2020-02-01-0000-00-X"),
	}
	chain := NewChain(today, "", nil)
	first := Select(records, chain)
	second := Select(records, chain)
	if !equalNames(names(first.ToDelete), names(second.ToDelete)) {
		t.Errorf("non-deterministic selection: %v vs %v", names(first.ToDelete), names(second.ToDelete))
	}
	if !equalNames(names(first.ToDelete), names(records)) {
		t.Errorf("input order not preserved: %v", names(first.ToDelete))
	}
}

func TestReasonToLogString(t *testing.T) {
	rec := mustParse(t, "tank@2026-09-01-0000-00-X")
	cutoff := time.Date(2026, 9, 16, 0, 0, 0, 0, time.UTC)
	r := NewChain(cutoff, "X", nil).Explain(rec, cutoff, "X", today)

	expected := "delete: age=45d cutoff=2026-09-16-0000-00 label=X"
	if got := r.ToLogString(); got != expected {
		t.Errorf("ToLogString() = %q, expected %q", got, expected)
	}
}
