package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// MinQueryLength is the shortest trimmed query that reaches the provider.
const MinQueryLength = 2

// abbreviationRe matches the BTM neighbourhood acronym, optionally followed by
// a numbered qualifier: "btm", "btm layout", "BTM 2nd stage", "btm 1 stage".
// This is the only colloquial pattern the fallback knows about.
var abbreviationRe = regexp.MustCompile(`(?i)\b(btm)\b(?:\s+layout)?(?:\s+(\d{1,2})\s*(?:st|nd|rd|th)?\s+(stage|sector|phase|block)\b)?`)

// IsSearchable reports whether a query is long enough to send upstream.
func IsSearchable(query string) bool {
	return len([]rune(strings.TrimSpace(query))) >= MinQueryLength
}

// SimplifyQuery rewrites a colloquial query that matches the known
// abbreviation pattern into a broader one aimed at the home city, e.g.
// "8th cross btm 2nd stage" → "BTM 2nd Stage, Bangalore". ok is false when
// the query does not match.
func SimplifyQuery(query, homeCity string) (string, bool) {
	m := abbreviationRe.FindStringSubmatch(query)
	if m == nil {
		return "", false
	}
	acronym := strings.ToUpper(m[1])

	var area string
	if m[2] != "" {
		n, err := strconv.Atoi(m[2])
		if err != nil {
			return "", false
		}
		area = fmt.Sprintf("%s %s %s", acronym, ordinal(n), cases.Title(language.English).String(strings.ToLower(m[3])))
	} else {
		area = acronym + " Layout"
	}

	if homeCity == "" {
		return area, true
	}
	return area + ", " + homeCity, true
}

func ordinal(n int) string {
	suffix := "th"
	if n%100 < 11 || n%100 > 13 {
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return strconv.Itoa(n) + suffix
}
