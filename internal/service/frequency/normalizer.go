// Package frequency converts medication frequency notation into
// concrete daily clock times. Discharge summaries mix Indian dash
// notation ("1-0-1" = morning-afternoon-night), Latin abbreviations
// (OD, BD, TDS) and free text; the normalizer resolves all of them
// through an ordered cascade of matchers, preferring exact clinical
// notation and degrading to a single morning dose rather than dropping
// a medication reminder.
package frequency

import (
	"regexp"
	"strings"

	"github.com/careloop/recovery-api/pkg/logger"
)

// DefaultTime is the fallback dose time for unparseable frequencies.
const DefaultTime = "08:00"

type entry struct {
	key   string
	times []string
}

// canonicalTable maps frequency notation to scheduled times. The
// keyword matcher walks this order and takes the first substring hit,
// so "daily" deliberately catches any daily phrasing before the more
// specific keys below it.
var canonicalTable = []entry{
	// Dash notation: 1 = take, 0 = skip, positions are morning-afternoon-night.
	{"1-0-0", []string{"08:00"}},
	{"0-1-0", []string{"14:00"}},
	{"0-0-1", []string{"21:00"}},
	{"1-1-0", []string{"08:00", "14:00"}},
	{"1-0-1", []string{"08:00", "21:00"}},
	{"0-1-1", []string{"14:00", "21:00"}},
	{"1-1-1", []string{"08:00", "14:00", "21:00"}},
	{"1-1-1-1", []string{"06:00", "12:00", "18:00", "22:00"}},
	// Text frequencies and abbreviations.
	{"once daily", []string{"08:00"}},
	{"od", []string{"08:00"}},
	{"once a day", []string{"08:00"}},
	{"qd", []string{"08:00"}},
	{"daily", []string{"08:00"}},
	{"bd", []string{"08:00", "21:00"}},
	{"bid", []string{"08:00", "21:00"}},
	{"twice daily", []string{"08:00", "21:00"}},
	{"twice a day", []string{"08:00", "21:00"}},
	{"tds", []string{"08:00", "14:00", "21:00"}},
	{"tid", []string{"08:00", "14:00", "21:00"}},
	{"thrice daily", []string{"08:00", "14:00", "21:00"}},
	{"three times a day", []string{"08:00", "14:00", "21:00"}},
	{"qid", []string{"06:00", "12:00", "18:00", "22:00"}},
	{"four times a day", []string{"06:00", "12:00", "18:00", "22:00"}},
	{"at night", []string{"21:00"}},
	{"hs", []string{"21:00"}},
	{"at bedtime", []string{"21:00"}},
	{"morning", []string{"08:00"}},
	{"evening", []string{"18:00"}},
	{"night", []string{"21:00"}},
	// As-needed / one-time dosing never gets a scheduled reminder.
	{"sos", nil},
	{"prn", nil},
	{"stat", nil},
	{"weekly", []string{"08:00"}},
}

var dashPattern = regexp.MustCompile(`\b([01]-[01]-[01](?:-[01])?)\b`)

// Matcher is one strategy in the cascade. It reports whether it
// recognized the input; a recognized empty result (SOS/PRN/STAT) stops
// the cascade.
type Matcher struct {
	Name  string
	Match func(freq string) ([]string, bool)
}

// Normalizer resolves frequency strings through an ordered matcher list.
type Normalizer struct {
	matchers []Matcher
	logger   *logger.Logger
}

func NewNormalizer(logger *logger.Logger) *Normalizer {
	return &Normalizer{
		logger: logger,
		matchers: []Matcher{
			{Name: "exact", Match: matchExact},
			{Name: "dash_pattern", Match: matchDashPattern},
			{Name: "keyword", Match: matchKeyword},
		},
	}
}

// Normalize converts a raw frequency string into its scheduled times.
// An empty result means as-needed dosing; unrecognized non-empty input
// falls back to a single morning dose with a warning.
func (n *Normalizer) Normalize(raw string) []string {
	freq := strings.ToLower(strings.TrimSpace(raw))

	for _, m := range n.matchers {
		if times, ok := m.Match(freq); ok {
			return times
		}
	}

	if freq != "" && freq != "unknown" {
		n.logger.Warn("could not parse medication frequency, defaulting to once daily", "frequency", raw)
	}
	return []string{DefaultTime}
}

func matchExact(freq string) ([]string, bool) {
	for _, e := range canonicalTable {
		if e.key == freq {
			return e.times, true
		}
	}
	return nil, false
}

func matchDashPattern(freq string) ([]string, bool) {
	m := dashPattern.FindStringSubmatch(freq)
	if m == nil {
		return nil, false
	}
	return matchExact(m[1])
}

func matchKeyword(freq string) ([]string, bool) {
	for _, e := range canonicalTable {
		if len(e.times) > 0 && strings.Contains(freq, e.key) {
			return e.times, true
		}
	}
	return nil, false
}
