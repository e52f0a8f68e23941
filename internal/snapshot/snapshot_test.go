package snapshot

import (
	"errors"
	"testing"
	"time"
)

func TestParseValid(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		pool    string
		dataset string
		label   string
		ts      time.Time
	}{
		{"root dataset", "boot@2020-08-12-1237-49-CHECKPOINT", "boot", "boot", "CHECKPOINT",
			time.Date(2020, 8, 12, 12, 37, 49, 0, time.UTC)},
		{"nested dataset", "backup/tank/gentoo/home@2020-07-13-2354-09-CHECKPOINT", "backup", "backup/tank/gentoo/home", "CHECKPOINT",
			time.Date(2020, 7, 13, 23, 54, 9, 0, time.UTC)},
		{"label with dashes", "tank/os@2021-02-28-0000-00-pre-upgrade-1", "tank", "tank/os", "pre-upgrade-1",
			time.Date(2021, 2, 28, 0, 0, 0, 0, time.UTC)},
		{"single char label", "tank@2024-02-29-2359-59-X", "tank", "tank", "X",
			time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := ParseInLocation(tt.raw, time.UTC)
			if err != nil {
				t.Fatalf("ParseInLocation(%q) unexpected error: %v", tt.raw, err)
			}
			if rec.Pool != tt.pool {
				t.Errorf("Pool = %q, expected %q", rec.Pool, tt.pool)
			}
			if rec.Dataset != tt.dataset {
				t.Errorf("Dataset = %q, expected %q", rec.Dataset, tt.dataset)
			}
			if rec.Label != tt.label {
				t.Errorf("Label = %q, expected %q", rec.Label, tt.label)
			}
			if !rec.Timestamp.Equal(tt.ts) {
				t.Errorf("Timestamp = %v, expected %v", rec.Timestamp, tt.ts)
			}
			if rec.FullName != tt.raw {
				t.Errorf("FullName = %q, expected %q", rec.FullName, tt.raw)
			}
		})
	}
}

func TestParseMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"no at sign", "tank"},
		{"garbage suffix", "tank@lol"},
		{"two at signs", "tank@2020-01-01-0000-00-A@B"},
		{"empty dataset", "@2020-01-01-0000-00-A"},
		{"empty segment", "tank//home@2020-01-01-0000-00-A"},
		{"leading slash", "/tank@2020-01-01-0000-00-A"},
		{"empty label", "tank@2020-01-01-0000-00-"},
		{"missing label", "tank@2020-01-01-0000-00"},
		{"month 13", "tank@2020-13-01-0000-00-A"},
		{"day 32", "tank@2020-01-32-0000-00-A"},
		{"february 30", "tank@2021-02-30-0000-00-A"},
		{"hour 24", "tank@2020-01-01-2400-00-A"},
		{"minute 60", "tank@2020-01-01-1260-00-A"},
		{"second 61", "tank@2020-01-01-1200-61-A"},
		{"short year", "tank@220-01-01-0000-00-A"},
		{"one digit month", "tank@2020-1-01-0000-00-AB"},
		{"colon in time", "tank@2020-01-01-00:0-00-A"},
		{"wrong separator", "tank@2020_01-01-0000-00-A"},
		{"no separator before label", "tank@2020-01-01-0000-00XA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseInLocation(tt.raw, time.UTC)
			if err == nil {
				t.Fatalf("ParseInLocation(%q) expected error, got nil", tt.raw)
			}
			if !errors.Is(err, ErrMalformedIdentifier) {
				t.Errorf("ParseInLocation(%q) error %v does not match ErrMalformedIdentifier", tt.raw, err)
			}
			var me *MalformedIdentifierError
			if !errors.As(err, &me) || me.Raw != tt.raw {
				t.Errorf("expected *MalformedIdentifierError carrying raw input, got %#v", err)
			}
		})
	}
}

func TestFormatParseRoundTrip(t *testing.T) {
	tests := []struct {
		dataset string
		ts      time.Time
		label   string
	}{
		{"tank", time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), "X"},
		{"tank/gentoo/os", time.Date(1999, 12, 31, 23, 59, 59, 0, time.UTC), "CHECKPOINT"},
		{"a/b", time.Date(2099, 6, 15, 7, 5, 3, 0, time.UTC), "daily-auto"},
		{"zroot/ROOT/default", time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC), "weird-label--x"},
	}

	for _, tt := range tests {
		raw := Format(tt.dataset, tt.ts, tt.label)
		rec, err := ParseInLocation(raw, time.UTC)
		if err != nil {
			t.Fatalf("round trip of %q failed: %v", raw, err)
		}
		expected := Record{
			Pool:      poolOf(tt.dataset),
			Dataset:   tt.dataset,
			FullName:  raw,
			Timestamp: tt.ts,
			Label:     tt.label,
		}
		if !rec.Equal(expected) {
			t.Errorf("round trip mismatch: got %+v, expected %+v", rec, expected)
		}
		if Format(rec.Dataset, rec.Timestamp, rec.Label) != rec.FullName {
			t.Errorf("FullName %q not reconstructible from fields", rec.FullName)
		}
	}
}

func TestSuffix(t *testing.T) {
	rec, err := ParseInLocation("tank/os@2020-07-13-2354-09-CHECKPOINT", time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if got := rec.Suffix(); got != "2020-07-13-2354-09-CHECKPOINT" {
		t.Errorf("Suffix() = %q", got)
	}
}

func TestParseAllSkipsMalformed(t *testing.T) {
	raws := []string{
		"boot@2020-08-12-1237-49-CHECKPOINT",
		"tank@lol",
		"tank/gentoo/os@2020-08-13-2354-09-CHECKPOINT",
		"tank@2020-13-13-0000-00-X",
	}

	records, malformed := ParseAll(raws, time.UTC)
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].FullName != raws[0] || records[1].FullName != raws[2] {
		t.Errorf("input order not preserved: %v", records)
	}
	if len(malformed) != 2 {
		t.Fatalf("expected 2 malformed, got %d", len(malformed))
	}
	if malformed[0].Raw != "tank@lol" || malformed[1].Raw != "tank@2020-13-13-0000-00-X" {
		t.Errorf("unexpected malformed entries: %v", malformed)
	}
}
