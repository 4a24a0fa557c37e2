package simulate

import (
	"regexp"
	"strconv"
	"strings"
)

// The template evaluator deliberately recognizes only a fixed set of
// expression shapes, matched in priority order with first match winning.
// Anything else is unknown; this is not an expression engine.
var (
	isStateRe     = regexp.MustCompile(`is_state\(\s*['"]([^'"]+)['"]\s*,\s*['"]([^'"]+)['"]\s*\)`)
	isStateAttrRe = regexp.MustCompile(`is_state_attr\(\s*['"]([^'"]+)['"]\s*,\s*['"]([^'"]+)['"]\s*,\s*['"]([^'"]+)['"]\s*\)`)
	statesRe      = regexp.MustCompile(`states\(\s*['"]([^'"]+)['"]\s*\)\s*([=!<>]=|[<>])\s*['"]?([^'" ]+)['"]?`)
	stateAttrRe   = regexp.MustCompile(`state_attr\(\s*['"]([^'"]+)['"]\s*,\s*['"]([^'"]+)['"]\s*\)\s*([=!<>]=|[<>])\s*['"]?([^'" ]+)['"]?`)
)

// evalTemplate matches a template expression against the recognized shapes
// and resolves it to a Verdict. The surrounding {{ }} wrapper is stripped
// before matching.
func evalTemplate(template string, ctx *Context) Verdict {
	if template == "" {
		return VerdictUnknown
	}
	expr := strings.TrimSpace(template)
	if strings.HasPrefix(expr, "{{") && strings.HasSuffix(expr, "}}") {
		expr = strings.TrimSpace(expr[2 : len(expr)-2])
	}

	if m := isStateRe.FindStringSubmatch(expr); m != nil {
		value, ok, _ := ctx.ResolveState(m[1])
		return verdictOf(ok && value == m[2])
	}

	if m := isStateAttrRe.FindStringSubmatch(expr); m != nil {
		_, _, attrs := ctx.ResolveState(m[1])
		value, present := attrs[m[2]]
		return verdictOf(present && value != nil && formatValue(value) == m[3])
	}

	if m := statesRe.FindStringSubmatch(expr); m != nil {
		value, ok, _ := ctx.ResolveState(m[1])
		return compareValues(value, ok, m[2], m[3])
	}

	if m := stateAttrRe.FindStringSubmatch(expr); m != nil {
		_, _, attrs := ctx.ResolveState(m[1])
		left, leftOK := "", false
		if value, present := attrs[m[2]]; present && value != nil {
			left, leftOK = formatValue(value), true
		}
		return compareValues(left, leftOK, m[3], m[4])
	}

	return VerdictUnknown
}

// compareValues applies op between a possibly-absent left value and a
// literal. Equality compares string forms; ordering compares numerically
// and yields unknown on any conversion failure.
func compareValues(left string, leftOK bool, op, right string) Verdict {
	switch op {
	case "==":
		if !leftOK {
			return VerdictFalse
		}
		return verdictOf(left == right)
	case "!=":
		if !leftOK {
			return VerdictTrue
		}
		return verdictOf(left != right)
	}

	if !leftOK {
		return VerdictUnknown
	}
	leftNum, err1 := strconv.ParseFloat(strings.TrimSpace(left), 64)
	rightNum, err2 := strconv.ParseFloat(strings.TrimSpace(right), 64)
	if err1 != nil || err2 != nil {
		return VerdictUnknown
	}

	switch op {
	case ">":
		return verdictOf(leftNum > rightNum)
	case ">=":
		return verdictOf(leftNum >= rightNum)
	case "<":
		return verdictOf(leftNum < rightNum)
	case "<=":
		return verdictOf(leftNum <= rightNum)
	}
	return VerdictUnknown
}
