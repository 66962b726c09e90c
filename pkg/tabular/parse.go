package tabular

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var thousandsRe = regexp.MustCompile(`^[-+]?\d{1,3},\d{3}$`)

// DefaultDateLayouts sont essayés dans l'ordre quand aucun format n'est configuré.
var DefaultDateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"02/01/2006",
}

// ParseDate lit une date avec le premier layout qui convient. Résultat en UTC.
func ParseDate(s string, layouts []string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if len(layouts) == 0 {
		layouts = DefaultDateLayouts
	}
	for _, l := range layouts {
		if t, err := time.ParseInLocation(l, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

// ParseAmount accepte "12.5", "12,5" et "1 234.50". NaN et Inf sont refusés.
// "1,234" est ambigu (séparateur de milliers ou décimal) et refusé.
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	s = strings.ReplaceAll(s, " ", "")
	if !strings.Contains(s, ".") {
		if thousandsRe.MatchString(s) {
			return 0, fmt.Errorf("ambiguous amount %q: use '.' as decimal separator", s)
		}
		s = strings.Replace(s, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable amount %q", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("amount %q is not finite", s)
	}
	return v, nil
}
