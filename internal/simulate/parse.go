package simulate

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// timeOfDay is a clock time detached from any date
type timeOfDay struct {
	hour, minute, second int
}

// seconds returns the offset from midnight in seconds
func (t timeOfDay) seconds() int {
	return t.hour*3600 + t.minute*60 + t.second
}

func timeOfDayFrom(t time.Time) timeOfDay {
	return timeOfDay{hour: t.Hour(), minute: t.Minute(), second: t.Second()}
}

// parseTimeOfDay parses "HH:MM" or "HH:MM:SS"
func parseTimeOfDay(value string) (timeOfDay, bool) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) < 2 {
		return timeOfDay{}, false
	}
	hh, err1 := strconv.Atoi(parts[0])
	mm, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return timeOfDay{}, false
	}
	ss := 0
	if len(parts) > 2 {
		var err3 error
		ss, err3 = strconv.Atoi(parts[2])
		if err3 != nil {
			return timeOfDay{}, false
		}
	}
	if hh < 0 || hh > 23 || mm < 0 || mm > 59 || ss < 0 || ss > 59 {
		return timeOfDay{}, false
	}
	return timeOfDay{hour: hh, minute: mm, second: ss}, true
}

// parseOffset parses "[+-]HH:MM[:SS]" into a duration
func parseOffset(value string) (time.Duration, bool) {
	s := strings.TrimSpace(value)
	if s == "" {
		return 0, false
	}
	sign := time.Duration(1)
	if s[0] == '+' || s[0] == '-' {
		if s[0] == '-' {
			sign = -1
		}
		s = s[1:]
	}
	parts := strings.Split(s, ":")
	if len(parts) < 2 {
		return 0, false
	}
	hh, err1 := strconv.Atoi(parts[0])
	mm, err2 := strconv.Atoi(parts[1])
	ss := 0
	var err3 error
	if len(parts) > 2 {
		ss, err3 = strconv.Atoi(parts[2])
	}
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, false
	}
	return sign * (time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute + time.Duration(ss)*time.Second), true
}

// dateTimeLayouts require a time component, so bare dates fall through to
// parseDate and take the calendar-date comparison path.
var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// parseDateTime parses an ISO-8601 style datetime. Layouts without a zone
// are interpreted in local time.
func parseDateTime(value string) (time.Time, bool) {
	v := strings.TrimSpace(value)
	if v == "" {
		return time.Time{}, false
	}
	for _, layout := range dateTimeLayouts {
		if layout == time.RFC3339Nano {
			if t, err := time.Parse(layout, v); err == nil {
				return t, true
			}
			continue
		}
		if t, err := time.ParseInLocation(layout, v, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseDate parses "YYYY-MM-DD" as local midnight
func parseDate(value string) (time.Time, bool) {
	t, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(value), time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

var weekdayTokens = map[string]time.Weekday{
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tues": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "weds": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thur": time.Thursday, "thurs": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
	"sun": time.Sunday, "sunday": time.Sunday,
}

// parseWeekdays parses a scalar or list of weekday tokens (three-letter or
// full names, case-insensitive). Unrecognized tokens are dropped.
func parseWeekdays(value interface{}) []time.Weekday {
	seen := make(map[time.Weekday]bool)
	var out []time.Weekday
	for _, tok := range asStringList(value) {
		if wd, ok := weekdayTokens[strings.ToLower(strings.TrimSpace(tok))]; ok && !seen[wd] {
			seen[wd] = true
			out = append(out, wd)
		}
	}
	return out
}

// asString converts a decoded YAML/JSON scalar to its string form
func asString(v interface{}) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case bool:
		return strconv.FormatBool(s), true
	case int:
		return strconv.Itoa(s), true
	case int64:
		return strconv.FormatInt(s, 10), true
	case uint64:
		return strconv.FormatUint(s, 10), true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(s), 'f', -1, 32), true
	}
	return "", false
}

// formatValue renders any decoded value for diagnostics and summaries
func formatValue(v interface{}) string {
	if s, ok := asString(v); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// asFloat attempts numeric conversion of a decoded scalar
func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// asStringList accepts a scalar or a list of scalars, returning string forms
func asStringList(v interface{}) []string {
	switch items := v.(type) {
	case nil:
		return nil
	case []string:
		return items
	case []interface{}:
		out := make([]string, 0, len(items))
		for _, item := range items {
			if s, ok := asString(item); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		if s, ok := asString(v); ok {
			return []string{s}
		}
		return nil
	}
}

// asMap accepts a decoded mapping with string keys
func asMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(m))
		for k, val := range m {
			ks, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[ks] = val
		}
		return out, true
	}
	return nil, false
}

// stringField reads a scalar field from a mapping as a string
func stringField(m map[string]interface{}, key string) string {
	if s, ok := asString(m[key]); ok {
		return s
	}
	return ""
}

// attrString reads an attribute as a string, "" when absent or non-scalar
func attrString(attrs map[string]interface{}, key string) string {
	if attrs == nil {
		return ""
	}
	if s, ok := asString(attrs[key]); ok {
		return s
	}
	return ""
}

// firstAttrString returns the first present attribute among keys
func firstAttrString(attrs map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if s := attrString(attrs, key); s != "" {
			return s
		}
	}
	return ""
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
