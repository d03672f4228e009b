package sqlparse

import (
	"regexp"
	"strings"
)

// advancedKeywords are the exclusive criteria from spec.md §4.9: a query
// mentioning any of these (even inside a string literal; the check is
// deliberately simple) is routed to the external fallback.
var advancedKeywords = []string{
	"WITH", "OVER", "PARTITION BY", "WINDOW", "HAVING",
	"UNION", "INTERSECT", "EXCEPT", "CASE", "CAST", "EXTRACT",
}

var windowFuncNames = []string{
	"ROW_NUMBER", "RANK", "DENSE_RANK", "LAG", "LEAD", "NTILE", "FIRST_VALUE", "LAST_VALUE",
}

var parenSelectRe = regexp.MustCompile(`(?i)\(\s*SELECT\b`)

// IsInSubset reports whether sql can be handled by the internal executor,
// per the keyword-based classifier and parenthesized-SELECT subquery
// heuristic in spec.md §4.9. This is the exclusive routing criterion; it is
// not string-literal-aware.
func IsInSubset(sqlText string) bool {
	upper := strings.ToUpper(sqlText)
	for _, kw := range advancedKeywords {
		if strings.Contains(upper, kw) {
			return false
		}
	}
	for _, fn := range windowFuncNames {
		if strings.Contains(upper, fn) {
			return false
		}
	}
	if parenSelectRe.MatchString(sqlText) {
		return false
	}
	return true
}
