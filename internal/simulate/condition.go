package simulate

import (
	"fmt"
	"strings"
	"time"
)

// DefaultMaxDepth bounds and/or/not and choose nesting. Exceeding it is a
// structural error that rejects the whole evaluation.
const DefaultMaxDepth = 32

// StructuralError reports a document-shape violation: a non-mapping document
// or nesting past the depth ceiling. Unlike condition-level problems, which
// fold into the unknown tri-state, a structural error aborts the run before
// any partial result is produced.
type StructuralError struct {
	Reason string
}

func (e *StructuralError) Error() string {
	return "structural error: " + e.Reason
}

// evalCondition evaluates one condition node against ctx, returning the
// tri-state verdict and a diagnostic label. path prefixes the label with the
// node's position so a trace entry identifies which node resolved and why.
func (s *Simulator) evalCondition(cond Condition, ctx *Context, path string, depth int) (Verdict, string, error) {
	switch c := cond.(type) {
	case AndCondition:
		return s.evalBoolean(c.Conditions, ctx, path, depth, "and")
	case OrCondition:
		return s.evalBoolean(c.Conditions, ctx, path, depth, "or")
	case NotCondition:
		return s.evalNot(c, ctx, path, depth)
	case StateCondition:
		return evalState(c, ctx, path)
	case NumericStateCondition:
		return evalNumericState(c, ctx, path)
	case TemplateCondition:
		return evalTemplateCondition(c, ctx, path)
	case TimeCondition:
		return evalTime(c, ctx, path)
	case TriggerCondition:
		return evalTrigger(c, ctx, path)
	case DeviceCondition:
		return evalDevice(c, ctx, path)
	case CalendarCondition:
		return evalCalendar(c, ctx, path)
	case SunCondition:
		return evalSun(c, ctx, path)
	case ZoneCondition:
		return evalZone(c, ctx, path)
	case UnsupportedCondition:
		if c.Malformed {
			return VerdictUnknown, path + "unsupported condition", nil
		}
		return VerdictUnknown, fmt.Sprintf("%sunsupported condition '%s'", path, c.Kind), nil
	default:
		return VerdictUnknown, path + "unsupported condition", nil
	}
}

// evalBoolean applies the and/or truth tables: for and, any false child
// decides false and any unknown otherwise decides unknown; for or, any true
// child decides true and any unknown otherwise decides unknown.
func (s *Simulator) evalBoolean(children []Condition, ctx *Context, path string, depth int, kind string) (Verdict, string, error) {
	if depth >= s.maxDepth {
		return VerdictUnknown, "", &StructuralError{Reason: fmt.Sprintf("condition nesting exceeds depth limit %d", s.maxDepth)}
	}

	anyTrue, anyFalse, anyUnknown := false, false, false
	for i, child := range children {
		v, _, err := s.evalCondition(child, ctx, fmt.Sprintf("%s%s[%d]: ", path, kind, i), depth+1)
		if err != nil {
			return VerdictUnknown, "", err
		}
		switch v {
		case VerdictTrue:
			anyTrue = true
		case VerdictFalse:
			anyFalse = true
		default:
			anyUnknown = true
		}
	}

	if kind == "and" {
		if anyFalse {
			return VerdictFalse, path + "and failed", nil
		}
		if anyUnknown {
			return VerdictUnknown, path + "and unknown", nil
		}
		return VerdictTrue, path + "and passed", nil
	}

	if anyTrue {
		return VerdictTrue, path + "or passed", nil
	}
	if anyUnknown {
		return VerdictUnknown, path + "or unknown", nil
	}
	return VerdictFalse, path + "or failed", nil
}

func (s *Simulator) evalNot(c NotCondition, ctx *Context, path string, depth int) (Verdict, string, error) {
	if depth >= s.maxDepth {
		return VerdictUnknown, "", &StructuralError{Reason: fmt.Sprintf("condition nesting exceeds depth limit %d", s.maxDepth)}
	}
	if len(c.Conditions) == 0 {
		return VerdictUnknown, path + "not missing conditions", nil
	}
	inner, _, err := s.evalCondition(c.Conditions[0], ctx, path+"not: ", depth+1)
	if err != nil {
		return VerdictUnknown, "", err
	}
	if inner.IsUnknown() {
		return VerdictUnknown, path + "not unknown", nil
	}
	negated := inner.IsFalse()
	return verdictOf(negated), path + "not " + passFail(negated), nil
}

// evalState never yields unknown once an entity id is present: missing
// entities simply fail to match.
func evalState(c StateCondition, ctx *Context, path string) (Verdict, string, error) {
	if len(c.EntityIDs) == 0 {
		return VerdictUnknown, path + "state missing entity_id", nil
	}
	passed := 0
	for _, entityID := range c.EntityIDs {
		value, ok, _ := ctx.ResolveState(entityID)
		if ok && containsString(c.States, value) {
			passed++
		}
	}
	var ok bool
	if c.Match == "all" {
		ok = passed == len(c.EntityIDs)
	} else {
		ok = passed > 0
	}
	return verdictOf(ok), path + "state " + passFail(ok), nil
}

// evalNumericState checks the value against exclusive bounds: a value equal
// to above or below fails.
func evalNumericState(c NumericStateCondition, ctx *Context, path string) (Verdict, string, error) {
	if c.EntityID == "" {
		return VerdictUnknown, path + "numeric_state missing entity_id", nil
	}
	value, ok, attrs := ctx.ResolveState(c.EntityID)
	var raw interface{}
	if c.Attribute != "" {
		raw = attrs[c.Attribute]
	} else if ok {
		raw = value
	}
	num, numOK := asFloat(raw)
	if !numOK {
		return VerdictUnknown, path + "numeric_state non-numeric", nil
	}
	if c.Above != nil && num <= *c.Above {
		return VerdictFalse, path + "numeric_state failed (<= above)", nil
	}
	if c.Below != nil && num >= *c.Below {
		return VerdictFalse, path + "numeric_state failed (>= below)", nil
	}
	return VerdictTrue, path + "numeric_state passed", nil
}

func evalTemplateCondition(c TemplateCondition, ctx *Context, path string) (Verdict, string, error) {
	if c.Template == "" {
		return VerdictUnknown, path + "template missing value_template", nil
	}
	v := evalTemplate(c.Template, ctx)
	if v.IsUnknown() {
		return VerdictUnknown, path + "template unknown", nil
	}
	return v, path + "template " + passFail(v.IsTrue()), nil
}

// evalTime ANDs the weekday, after and before clauses. Each of after/before
// is interpreted in priority order as a datetime, a calendar date, or a time
// of day; a time-of-day window with after > before wraps past midnight.
func evalTime(c TimeCondition, ctx *Context, path string) (Verdict, string, error) {
	if ctx.Now.IsZero() {
		return VerdictUnknown, path + "time missing now", nil
	}

	ok := true
	constrained := false

	if len(c.Weekdays) > 0 {
		constrained = true
		if !containsWeekday(c.Weekdays, ctx.Now.Weekday()) {
			ok = false
		}
	}

	afterDT, afterDTOK := parseDateTimeField(c.After)
	beforeDT, beforeDTOK := parseDateTimeField(c.Before)
	if afterDTOK || beforeDTOK {
		constrained = true
		if afterDTOK && ctx.Now.Before(afterDT) {
			ok = false
		}
		if beforeDTOK && ctx.Now.After(beforeDT) {
			ok = false
		}
	}

	var afterDate, beforeDate time.Time
	afterDateOK, beforeDateOK := false, false
	if c.After != "" && !afterDTOK {
		afterDate, afterDateOK = parseDate(c.After)
	}
	if c.Before != "" && !beforeDTOK {
		beforeDate, beforeDateOK = parseDate(c.Before)
	}
	if afterDateOK || beforeDateOK {
		constrained = true
		today := dateOnly(ctx.Now)
		if afterDateOK && today.Before(afterDate) {
			ok = false
		}
		if beforeDateOK && today.After(beforeDate) {
			ok = false
		}
	}

	var afterT, beforeT timeOfDay
	afterTOK, beforeTOK := false, false
	if c.After != "" && !afterDTOK && !afterDateOK {
		afterT, afterTOK = parseTimeOfDay(c.After)
	}
	if c.Before != "" && !beforeDTOK && !beforeDateOK {
		beforeT, beforeTOK = parseTimeOfDay(c.Before)
	}
	if afterTOK || beforeTOK {
		constrained = true
		now := timeOfDayFrom(ctx.Now).seconds()
		switch {
		case afterTOK && beforeTOK:
			after, before := afterT.seconds(), beforeT.seconds()
			if after <= before {
				if now < after || now > before {
					ok = false
				}
			} else {
				// Window wraps past midnight
				if !(now >= after || now <= before) {
					ok = false
				}
			}
		case afterTOK:
			if now <= afterT.seconds() {
				ok = false
			}
		default:
			if now >= beforeT.seconds() {
				ok = false
			}
		}
	}

	if !constrained {
		return VerdictUnknown, path + "time missing constraints", nil
	}
	return verdictOf(ok), path + "time " + passFail(ok), nil
}

func evalTrigger(c TriggerCondition, ctx *Context, path string) (Verdict, string, error) {
	if len(c.IDs) == 0 {
		return VerdictUnknown, path + "trigger missing id", nil
	}
	triggerID := ctx.triggerID()
	if triggerID == "" {
		return VerdictUnknown, path + "trigger unknown", nil
	}
	ok := containsString(c.IDs, triggerID)
	return verdictOf(ok), path + "trigger " + passFail(ok), nil
}

// deviceStateShorthand maps semantic device verbs to the literal state
// string they assert
var deviceStateShorthand = map[string]string{
	"is_on":       "on",
	"is_off":      "off",
	"is_open":     "open",
	"is_closed":   "closed",
	"is_locked":   "locked",
	"is_unlocked": "unlocked",
	"is_home":     "home",
	"is_not_home": "not_home",
	"is_playing":  "playing",
	"is_paused":   "paused",
	"is_problem":  "problem",
	"is_clear":    "clear",
}

// deviceExpectedState resolves the expected state for a device condition:
// the type shorthand wins, else the explicit state field.
func deviceExpectedState(c DeviceCondition) string {
	if expected, ok := deviceStateShorthand[c.Type]; ok {
		return expected
	}
	if c.HasState {
		return strings.ToLower(strings.TrimSpace(c.State))
	}
	return ""
}

func evalDevice(c DeviceCondition, ctx *Context, path string) (Verdict, string, error) {
	if c.EntityID == "" {
		return VerdictUnknown, path + "device missing entity_id", nil
	}
	expected := deviceExpectedState(c)
	if expected == "" {
		return VerdictUnknown, path + "device unknown type", nil
	}
	value, ok, _ := ctx.ResolveState(c.EntityID)
	if !ok {
		return VerdictUnknown, path + "device missing state", nil
	}
	matched := strings.ToLower(strings.TrimSpace(value)) == expected
	return verdictOf(matched), path + "device " + passFail(matched), nil
}

func evalCalendar(c CalendarCondition, ctx *Context, path string) (Verdict, string, error) {
	if c.EntityID == "" {
		return VerdictUnknown, path + "calendar missing entity_id", nil
	}
	value, ok, attrs := ctx.ResolveState(c.EntityID)

	if c.State != nil {
		matched := ok && value == *c.State
		return verdictOf(matched), path + "calendar " + passFail(matched), nil
	}
	if !ok {
		return VerdictUnknown, path + "calendar missing state", nil
	}

	sval := strings.ToLower(strings.TrimSpace(value))
	if sval == "on" || sval == "off" {
		matched := sval == "on"
		return verdictOf(matched), path + "calendar " + passFail(matched), nil
	}

	start, startOK := parseDateTime(firstAttrString(attrs, "start_time", "start"))
	end, endOK := parseDateTime(firstAttrString(attrs, "end_time", "end"))
	if startOK && endOK && !ctx.Now.IsZero() {
		within := !ctx.Now.Before(start) && !ctx.Now.After(end)
		return verdictOf(within), path + "calendar " + passFail(within), nil
	}

	return VerdictUnknown, path + "calendar unknown", nil
}

// evalSun anchors a clock window to today's sunrise/sunset, applying
// optional offsets, with the same wraparound semantics as a time-of-day
// window.
func evalSun(c SunCondition, ctx *Context, path string) (Verdict, string, error) {
	if ctx.Now.IsZero() {
		return VerdictUnknown, path + "sun missing now", nil
	}
	sunTimes := sunTimesForToday(ctx)
	if sunTimes == nil {
		return VerdictUnknown, path + "sun missing sun.sun", nil
	}

	var after, before *time.Time
	if t, ok := sunReference(sunTimes, c.After); ok {
		if offset, offsetOK := parseOffset(c.AfterOffset); offsetOK {
			t = t.Add(offset)
		}
		after = &t
	}
	if t, ok := sunReference(sunTimes, c.Before); ok {
		if offset, offsetOK := parseOffset(c.BeforeOffset); offsetOK {
			t = t.Add(offset)
		}
		before = &t
	}

	if after == nil && before == nil {
		return VerdictUnknown, path + "sun missing before/after", nil
	}

	now := ctx.Now
	var ok bool
	switch {
	case after != nil && before != nil:
		if !after.After(*before) {
			ok = !now.Before(*after) && !now.After(*before)
		} else {
			ok = !now.Before(*after) || !now.After(*before)
		}
	case after != nil:
		ok = !now.Before(*after)
	default:
		ok = !now.After(*before)
	}
	return verdictOf(ok), path + "sun " + passFail(ok), nil
}

func sunReference(st *SunTimes, key string) (time.Time, bool) {
	switch key {
	case "sunrise":
		return st.Sunrise, true
	case "sunset":
		return st.Sunset, true
	}
	return time.Time{}, false
}

// evalZone checks entities against zones. In all mode an entity counts only
// if some zone contains it; an entity whose every pairing is unknown folds
// the overall result to unknown rather than false.
func evalZone(c ZoneCondition, ctx *Context, path string) (Verdict, string, error) {
	if len(c.EntityIDs) == 0 || len(c.Zones) == 0 {
		return VerdictUnknown, path + "zone missing entity_id or zone", nil
	}

	if c.Match == "all" {
		// An entity whose zone pairings were only unknown folds the whole
		// result to unknown, taking precedence over other entities' concrete
		// failures.
		unknown, failed := false, false
		for _, entityID := range c.EntityIDs {
			entityOK := false
			entityUnknown := false
			for _, zone := range c.Zones {
				switch entityInZone(entityID, zone, ctx) {
				case VerdictTrue:
					entityOK = true
				case VerdictUnknown:
					entityUnknown = true
				}
				if entityOK {
					break
				}
			}
			if !entityOK {
				if entityUnknown {
					unknown = true
				} else {
					failed = true
				}
			}
		}
		if unknown {
			return VerdictUnknown, path + "zone unknown", nil
		}
		if failed {
			return VerdictFalse, path + "zone failed", nil
		}
		return VerdictTrue, path + "zone passed", nil
	}

	unknown := false
	for _, entityID := range c.EntityIDs {
		entityUnknown := false
		for _, zone := range c.Zones {
			switch entityInZone(entityID, zone, ctx) {
			case VerdictTrue:
				return VerdictTrue, path + "zone passed", nil
			case VerdictUnknown:
				entityUnknown = true
			}
		}
		if entityUnknown {
			unknown = true
		}
	}
	if unknown {
		return VerdictUnknown, path + "zone unknown", nil
	}
	return VerdictFalse, path + "zone failed", nil
}

// EvalConditions evaluates a top-level condition list (implicit AND),
// logging one diagnostic entry per condition. The unknown flag is reported
// separately from the boolean outcome so callers can distinguish a definite
// failure from an indeterminate one. An empty list is trivially true.
// Evaluation stops at the first definite failure.
func (s *Simulator) EvalConditions(conditions []Condition, ctx *Context, logs *[]string) (passed bool, unknown bool, err error) {
	if len(conditions) == 0 {
		*logs = append(*logs, "Conditions: none")
		return true, false, nil
	}
	for i, cond := range conditions {
		v, msg, err := s.evalCondition(cond, ctx, fmt.Sprintf("cond[%d]: ", i), 0)
		if err != nil {
			return false, false, err
		}
		*logs = append(*logs, msg)
		if v.IsFalse() {
			return false, false, nil
		}
		if v.IsUnknown() {
			unknown = true
		}
	}
	return true, unknown, nil
}

func passFail(ok bool) string {
	if ok {
		return "passed"
	}
	return "failed"
}

func containsWeekday(list []time.Weekday, wd time.Weekday) bool {
	for _, item := range list {
		if item == wd {
			return true
		}
	}
	return false
}

func parseDateTimeField(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	return parseDateTime(value)
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
