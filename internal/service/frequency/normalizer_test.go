package frequency

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/careloop/recovery-api/pkg/logger"
)

func newTestNormalizer() *Normalizer {
	return NewNormalizer(logger.NewLogger(nil))
}

func TestNormalizeCanonicalTable(t *testing.T) {
	n := newTestNormalizer()

	cases := map[string][]string{
		"1-0-0":             {"08:00"},
		"0-1-0":             {"14:00"},
		"0-0-1":             {"21:00"},
		"1-1-0":             {"08:00", "14:00"},
		"1-0-1":             {"08:00", "21:00"},
		"0-1-1":             {"14:00", "21:00"},
		"1-1-1":             {"08:00", "14:00", "21:00"},
		"1-1-1-1":           {"06:00", "12:00", "18:00", "22:00"},
		"OD":                {"08:00"},
		"qd":                {"08:00"},
		"once daily":        {"08:00"},
		"BD":                {"08:00", "21:00"},
		"bid":               {"08:00", "21:00"},
		"twice daily":       {"08:00", "21:00"},
		"TDS":               {"08:00", "14:00", "21:00"},
		"tid":               {"08:00", "14:00", "21:00"},
		"thrice daily":      {"08:00", "14:00", "21:00"},
		"three times a day": {"08:00", "14:00", "21:00"},
		"QID":               {"06:00", "12:00", "18:00", "22:00"},
		"four times a day":  {"06:00", "12:00", "18:00", "22:00"},
		"HS":                {"21:00"},
		"at bedtime":        {"21:00"},
		"at night":          {"21:00"},
		"morning":           {"08:00"},
		"evening":           {"18:00"},
		"night":             {"21:00"},
		"daily":             {"08:00"},
		"weekly":            {"08:00"},
	}

	for freq, want := range cases {
		assert.Equal(t, want, n.Normalize(freq), "frequency %q", freq)
	}
}

func TestNormalizeAsNeededDosing(t *testing.T) {
	n := newTestNormalizer()

	for _, freq := range []string{"SOS", "sos", " prn ", "PRN", "stat", "STAT"} {
		assert.Empty(t, n.Normalize(freq), "frequency %q should have no scheduled times", freq)
	}
}

func TestNormalizeEmbeddedDashPattern(t *testing.T) {
	n := newTestNormalizer()

	assert.Equal(t, []string{"08:00", "21:00"}, n.Normalize("1 tablet 1-0-1 after food"))
	assert.Equal(t, []string{"08:00", "14:00", "21:00"}, n.Normalize("take 1-1-1 with meals"))
}

func TestNormalizeKeywordMatch(t *testing.T) {
	n := newTestNormalizer()

	assert.Equal(t, []string{"21:00"}, n.Normalize("one tablet at bedtime"))
	assert.Equal(t, []string{"08:00", "21:00"}, n.Normalize("bid with meals"))
}

func TestNormalizeKeywordOrderDailyWins(t *testing.T) {
	n := newTestNormalizer()

	// "daily" sits ahead of the multi-dose and time-of-day keys, so any
	// phrase containing it resolves to the single morning dose.
	assert.Equal(t, []string{"08:00"}, n.Normalize("evening daily"))
	assert.Equal(t, []string{"08:00"}, n.Normalize("twice daily with meals"))
}

func TestNormalizeFallback(t *testing.T) {
	n := newTestNormalizer()

	// Unrecognized non-empty strings degrade to a single morning dose.
	assert.Equal(t, []string{DefaultTime}, n.Normalize("as directed by physician"))
	assert.Equal(t, []string{DefaultTime}, n.Normalize(""))
	assert.Equal(t, []string{DefaultTime}, n.Normalize("unknown"))
}
