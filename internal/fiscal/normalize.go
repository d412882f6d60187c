package fiscal

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	// currency symbol, whitespace and thousands separators
	currencyNoise = regexp.MustCompile(`[R$\s.]`)
	// what is left of a currency string after cleanup
	currencyShape = regexp.MustCompile(`^-?[\d.]+$`)

	// DD/MM/YYYY anywhere in the input
	dateShape = regexp.MustCompile(`(\d{2})/(\d{2})/(\d{4})`)
	// MM/YYYY anywhere in the input (also matches the tail of a full date)
	monthPeriodShape = regexp.MustCompile(`(\d{2})/(\d{4})`)
	// quarter notation: "1º TRIM/2024", "2o TRIM/2023", "3 TRIM/2022"
	quarterPeriodShape = regexp.MustCompile(`(?i)(\d{1,2})(?:º|o|ª|\s)?\s*TRIM/(\d{4})`)
)

// ParseCurrency converts a Brazilian formatted amount ("R$ 1.234,56") to a float.
// Anything that does not look like a number yields 0.
func ParseCurrency(s string) float64 {
	if s == "" {
		return 0
	}
	cleaned := currencyNoise.ReplaceAllString(s, "")
	cleaned = strings.Replace(cleaned, ",", ".", 1)
	if cleaned == "" || !currencyShape.MatchString(cleaned) {
		return 0
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return v
}

// ParseDate rewrites the first DD/MM/YYYY found in s as YYYY-MM-DD.
func ParseDate(s string) string {
	m := dateShape.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return ""
	}
	return m[3] + "-" + m[2] + "-" + m[1]
}

// ParsePeriod returns the canonical assessment period found in s: "MM/YYYY" for monthly
// periods or "N TRIM/YYYY" for quarters. It returns "" when s carries neither.
func ParsePeriod(s string) string {
	s = strings.TrimSpace(s)
	if m := monthPeriodShape.FindStringSubmatch(s); m != nil {
		return m[1] + "/" + m[2]
	}
	if m := quarterPeriodShape.FindStringSubmatch(s); m != nil {
		return m[1] + " TRIM/" + m[2]
	}
	return ""
}

// hasPeriodShape reports whether ParsePeriod would find something in s.
func hasPeriodShape(s string) bool {
	return monthPeriodShape.MatchString(s) || quarterPeriodShape.MatchString(s)
}
