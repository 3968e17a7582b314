package indicator

import (
	"fmt"
	"sort"
	"time"
)

// DayIDLayout is the time layout of a day identifier.
const DayIDLayout = "20060102"

// ValidDayID reports whether s is an 8-digit YYYYMMDD calendar date.
func ValidDayID(s string) bool {
	if len(s) != len(DayIDLayout) {
		return false
	}
	_, err := time.Parse(DayIDLayout, s)
	return err == nil
}

// Yesterday returns the day identifier for the calendar day before now.
// Collection always targets yesterday's figures unless a caller explicitly
// backfills a historical day.
func Yesterday(now time.Time) string {
	return now.AddDate(0, 0, -1).Format(DayIDLayout)
}

// Record is one outbound row for the day-keyed indicator table: the day
// identifier plus only the fields that resolved to a present value. Fields
// absent from a Record are never touched by an upsert, which is what makes
// partial writes non-destructive.
type Record struct {
	dayID  string
	fields []string
	values map[string]Value
}

// DayID returns the record's immutable day identifier.
func (r *Record) DayID() string { return r.dayID }

// Fields returns the indicator columns present in the record, in a stable
// sorted order. The day-id column is not included.
func (r *Record) Fields() []string {
	out := make([]string, len(r.fields))
	copy(out, r.fields)
	return out
}

// Value returns the normalized value for a field present in the record.
func (r *Record) Value(field string) (Value, bool) {
	v, ok := r.values[field]
	return v, ok
}

// Len returns the number of indicator fields in the record.
func (r *Record) Len() int { return len(r.fields) }

// Args returns the driver arguments for the record's columns in the order
// DayIDColumn, Fields()...
func (r *Record) Args() []any {
	args := make([]any, 0, len(r.fields)+1)
	args = append(args, r.dayID)
	for _, f := range r.fields {
		args = append(args, r.values[f].Arg())
	}
	return args
}

// String renders the record for logging.
func (r *Record) String() string {
	return fmt.Sprintf("Record(%s, %d fields)", r.dayID, len(r.fields))
}

// Assemble builds a Record for dayID from normalized values, dropping every
// absent value. When nothing but the day id would remain it returns nil,
// signalling that there is nothing to persist - a legitimate skip, not an
// error.
func Assemble(dayID string, values map[string]Value) *Record {
	if !ValidDayID(dayID) {
		return nil
	}
	rec := &Record{
		dayID:  dayID,
		values: make(map[string]Value, len(values)),
	}
	for field, v := range values {
		if v.Absent() {
			continue
		}
		rec.fields = append(rec.fields, field)
		rec.values[field] = v
	}
	if len(rec.fields) == 0 {
		return nil
	}
	sort.Strings(rec.fields)
	return rec
}

// MergeFirstWins combines several per-report value sets for the same day
// into one. For each field the earliest non-absent value in source order is
// kept; later sources never override it.
func MergeFirstWins(sources ...map[string]Value) map[string]Value {
	merged := make(map[string]Value)
	for _, src := range sources {
		for field, v := range src {
			if v.Absent() {
				continue
			}
			if existing, ok := merged[field]; ok && !existing.Absent() {
				continue
			}
			merged[field] = v
		}
	}
	return merged
}
