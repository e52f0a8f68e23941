package snapshot

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Layout is the positional timestamp format embedded in managed snapshot names.
// Example: tank/home@2020-08-12-1237-49-CHECKPOINT
const Layout = "2006-01-02-1504-05"

// timestamp plus the separator that precedes the label
const stampWidth = len(Layout) + 1

// ErrMalformedIdentifier is matched by every parse failure so callers can tell
// "not a snapshot we manage" apart from internal errors.
var ErrMalformedIdentifier = errors.New("malformed snapshot identifier")

// MalformedIdentifierError reports why a raw identifier was rejected.
type MalformedIdentifierError struct {
	Raw    string
	Reason string
}

func (e *MalformedIdentifierError) Error() string {
	return fmt.Sprintf("%s %q: %s", ErrMalformedIdentifier, e.Raw, e.Reason)
}

func (e *MalformedIdentifierError) Is(target error) bool {
	return target == ErrMalformedIdentifier
}

// Record is a parsed, validated snapshot identifier.
type Record struct {
	Pool      string    // first path segment of the dataset
	Dataset   string    // everything before '@'
	FullName  string    // original identifier, used for every external call
	Timestamp time.Time // second precision
	Label     string
}

// String returns the full snapshot name.
func (r Record) String() string {
	return r.FullName
}

// Suffix returns the part after '@'.
func (r Record) Suffix() string {
	return r.FullName[len(r.Dataset)+1:]
}

// Equal reports whether two records describe the same snapshot.
func (r Record) Equal(o Record) bool {
	return r.Pool == o.Pool &&
		r.Dataset == o.Dataset &&
		r.FullName == o.FullName &&
		r.Label == o.Label &&
		r.Timestamp.Equal(o.Timestamp)
}

// Format builds the full snapshot name for a dataset, timestamp and label.
func Format(dataset string, ts time.Time, label string) string {
	return dataset + "@" + ts.Format(Layout) + "-" + label
}

// Parse parses raw in the local time zone.
func Parse(raw string) (Record, error) {
	return ParseInLocation(raw, time.Local)
}

// ParseInLocation parses raw of the form dataset@YYYY-mm-dd-HHMM-ss-LABEL.
// The label is everything after the timestamp and may itself contain '-'.
func ParseInLocation(raw string, loc *time.Location) (Record, error) {
	malformed := func(reason string) (Record, error) {
		return Record{}, &MalformedIdentifierError{Raw: raw, Reason: reason}
	}

	dataset, suffix, ok := strings.Cut(raw, "@")
	if !ok {
		return malformed("missing '@'")
	}
	if strings.Contains(suffix, "@") {
		return malformed("more than one '@'")
	}
	if dataset == "" {
		return malformed("empty dataset")
	}
	for _, seg := range strings.Split(dataset, "/") {
		if seg == "" {
			return malformed("empty dataset path segment")
		}
	}

	if len(suffix) <= stampWidth {
		if len(suffix) == stampWidth && suffix[stampWidth-1] == '-' {
			return malformed("empty label")
		}
		return malformed("suffix shorter than " + Layout + "-LABEL")
	}
	stamp := suffix[:stampWidth]
	if !positional(stamp) {
		return malformed("timestamp does not match " + Layout)
	}

	ts, err := time.ParseInLocation(Layout, stamp[:len(Layout)], loc)
	if err != nil {
		return malformed(err.Error())
	}

	return Record{
		Pool:      poolOf(dataset),
		Dataset:   dataset,
		FullName:  raw,
		Timestamp: ts,
		Label:     suffix[stampWidth:],
	}, nil
}

// positional checks the digit/separator layout of "YYYY-mm-dd-HHMM-ss-".
func positional(s string) bool {
	for i := 0; i < len(s); i++ {
		switch i {
		case 4, 7, 10, 15, 18:
			if s[i] != '-' {
				return false
			}
		default:
			if s[i] < '0' || s[i] > '9' {
				return false
			}
		}
	}
	return true
}

func poolOf(dataset string) string {
	pool, _, _ := strings.Cut(dataset, "/")
	return pool
}

// ParseAll parses every raw identifier, collecting rejects instead of stopping.
// Input order is preserved.
func ParseAll(raws []string, loc *time.Location) ([]Record, []*MalformedIdentifierError) {
	records := make([]Record, 0, len(raws))
	var malformed []*MalformedIdentifierError
	for _, raw := range raws {
		rec, err := ParseInLocation(raw, loc)
		if err != nil {
			var me *MalformedIdentifierError
			if errors.As(err, &me) {
				malformed = append(malformed, me)
			}
			continue
		}
		records = append(records, rec)
	}
	return records, malformed
}
