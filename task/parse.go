package task

import (
	"regexp"
	"strconv"
	"strings"
)

// userPriorityLevels maps the five named levels of spec §4.9 to their
// base value: "CRITICAL=10, HIGH=8, MEDIUM=5, LOW=3, LOWEST=1".
var userPriorityLevels = map[string]float64{
	"CRITICAL": 10,
	"HIGH":     8,
	"MEDIUM":   5,
	"LOW":      3,
	"LOWEST":   1,
}

// userPriorityPattern implements the full grammar spec §9's Open
// Question resolution calls for: a level name optionally followed by a
// signed integer offset, e.g. "HIGH+2" or "LOW-1".
var userPriorityPattern = regexp.MustCompile(`^(CRITICAL|HIGH|MEDIUM|LOW|LOWEST)([+-]\d+)?$`)

// ParseUserPriority parses a userPriorityExpression (spec §4.9). An
// empty or unrecognized expression yields the MEDIUM base value, since
// the priority formula's "user" component must always produce a
// well-defined number.
func ParseUserPriority(expr string) float64 {
	expr = strings.ToUpper(strings.TrimSpace(expr))
	if expr == "" {
		return userPriorityLevels["MEDIUM"]
	}
	m := userPriorityPattern.FindStringSubmatch(expr)
	if m == nil {
		return userPriorityLevels["MEDIUM"]
	}
	base := userPriorityLevels[m[1]]
	if m[2] == "" {
		return base
	}
	offset, err := strconv.Atoi(m[2])
	if err != nil {
		return base
	}
	return base + float64(offset)
}
