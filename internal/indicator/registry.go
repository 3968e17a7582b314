package indicator

import (
	"fmt"
	"strings"
)

// Kind is the value kind of an indicator field. Each field name has exactly
// one kind, fixed by the static registry below.
type Kind int

const (
	// KindPercentage fields arrive as "NN.NN%" (or a bare numeric string)
	// and normalize to a float in [0, 100] with the unit stripped.
	KindPercentage Kind = iota + 1
	// KindInteger fields are counts, parsed float-first to tolerate "123.0".
	KindInteger
	// KindString fields are stored verbatim after trimming.
	KindString
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindPercentage:
		return "percentage"
	case KindInteger:
		return "integer"
	case KindString:
		return "string"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// DayIDColumn is the key column of the indicator table. It is never part of
// the registry; it is set unconditionally on every assembled record.
const DayIDColumn = "p_day_id"

// registry maps every known indicator field name to its kind. This is the
// single source of truth for the ingress contract: collaborators submit raw
// values only for names listed here.
var registry = map[string]Kind{
	// Call-center operations dashboard.
	"artCallinCt":     KindInteger,
	"conn15Rate":      KindPercentage,
	"onceRate":        KindPercentage,
	"artConnRt":       KindPercentage,
	"repeatRate":      KindPercentage,
	"artconn":         KindString,
	"wanselfcnt":      KindString,
	"wanvolumecnt":    KindString,
	"seifservicerate": KindString,

	// Regional import report.
	"word5Rate":       KindPercentage,
	"farCabinetRate":  KindPercentage,
	"wordCallinCt":    KindString,
	"farCabinetCt":    KindString,
	"digitalhumancnt": KindString,

	// Decision-support work-order report.
	"ordersolve":       KindPercentage,
	"orderdeclaration": KindPercentage,
	"orderrepeat":      KindPercentage,
	"moveorder":        KindPercentage,
	"bandorder":        KindPercentage,
	"tsordersolve":     KindPercentage,
	"cxordersolve":     KindPercentage,
	"gzordersolve":     KindPercentage,
	"tsordertimerat":   KindPercentage,
	"tsorderoverrat":   KindPercentage,
	"ydorderoverrat":   KindPercentage,
	"kdorderoverrat":   KindPercentage,
	"kdonlinepre":      KindPercentage,
	"kdorderpre":       KindPercentage,

	// Intelligent customer-service platform.
	"intelligentCus":    KindPercentage,
	"intelligentRgRate": KindPercentage,
}

// foldedNames maps lowercased field names back to registry casing.
// Unquoted SQL identifiers come back case-folded from the server.
var foldedNames = func() map[string]string {
	m := make(map[string]string, len(registry))
	for name := range registry {
		m[strings.ToLower(name)] = name
	}
	return m
}()

// CanonicalField resolves a possibly case-folded column name to its
// registered field name.
func CanonicalField(name string) (string, bool) {
	if _, ok := registry[name]; ok {
		return name, true
	}
	canon, ok := foldedNames[strings.ToLower(name)]
	return canon, ok
}

// KindOf returns the registered kind for a field name.
func KindOf(field string) (Kind, bool) {
	k, ok := registry[field]
	return k, ok
}

// Fields returns the names of all registered indicator fields. The slice is
// a copy; callers may reorder it freely.
func Fields() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}
