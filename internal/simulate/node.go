package simulate

import (
	"strings"
	"time"
)

// Condition is one node of a parsed condition tree. Raw automation documents
// are converted into this tagged form once at ingestion; evaluation never
// re-inspects raw maps. Unrecognized shapes become UnsupportedCondition and
// evaluate to unknown rather than failing the parse.
type Condition interface {
	conditionNode()
}

// AndCondition passes when every child passes
type AndCondition struct {
	Conditions []Condition
}

// OrCondition passes when any child passes
type OrCondition struct {
	Conditions []Condition
}

// NotCondition negates its first child
type NotCondition struct {
	Conditions []Condition
}

// StateCondition checks one or more entities against target state strings.
// Match is "any" (default) or "all".
type StateCondition struct {
	EntityIDs []string
	States    []string
	Match     string
}

// NumericStateCondition checks an entity's state, or a named attribute, as a
// number against exclusive above/below bounds
type NumericStateCondition struct {
	EntityID  string
	Attribute string
	Above     *float64
	Below     *float64
}

// TemplateCondition evaluates a recognized template-expression shape
type TemplateCondition struct {
	Template string
}

// TimeCondition constrains weekday and/or an after/before window. After and
// Before are kept raw; each is interpreted as a datetime, else a calendar
// date, else a time of day.
type TimeCondition struct {
	Weekdays []time.Weekday
	After    string
	Before   string
}

// TriggerCondition checks the simulated trigger id against accepted ids
type TriggerCondition struct {
	IDs []string
}

// DeviceCondition checks an entity state via a semantic type shorthand
// (is_on, is_locked, ...) or an explicit expected state
type DeviceCondition struct {
	EntityID string
	Type     string
	State    string
	HasState bool
}

// CalendarCondition checks a calendar entity: explicit expected state,
// on/off state, or an event window from start/end attributes
type CalendarCondition struct {
	EntityID string
	State    *string
}

// SunCondition constrains the clock to a window anchored to sunrise/sunset,
// with optional offsets
type SunCondition struct {
	After        string
	Before       string
	AfterOffset  string
	BeforeOffset string
}

// ZoneCondition checks one or more entities against one or more zones.
// Match is "any" (default) or "all".
type ZoneCondition struct {
	EntityIDs []string
	Zones     []string
	Match     string
}

// UnsupportedCondition is any condition the grammar does not recognize.
// Malformed marks nodes that were not even a mapping.
type UnsupportedCondition struct {
	Kind      string
	Malformed bool
}

func (AndCondition) conditionNode()          {}
func (OrCondition) conditionNode()           {}
func (NotCondition) conditionNode()          {}
func (StateCondition) conditionNode()        {}
func (NumericStateCondition) conditionNode() {}
func (TemplateCondition) conditionNode()     {}
func (TimeCondition) conditionNode()         {}
func (TriggerCondition) conditionNode()      {}
func (DeviceCondition) conditionNode()       {}
func (CalendarCondition) conditionNode()     {}
func (SunCondition) conditionNode()          {}
func (ZoneCondition) conditionNode()         {}
func (UnsupportedCondition) conditionNode()  {}

// ParseCondition converts one raw condition value into its tagged variant.
// The kind is read from the condition tag, falling back to platform.
func ParseCondition(raw interface{}) Condition {
	m, ok := asMap(raw)
	if !ok {
		return UnsupportedCondition{Malformed: true}
	}

	kind := strings.ToLower(strings.TrimSpace(stringField(m, "condition")))
	if kind == "" {
		kind = strings.ToLower(strings.TrimSpace(stringField(m, "platform")))
	}

	switch kind {
	case "and":
		return AndCondition{Conditions: parseConditionList(m["conditions"])}
	case "or":
		return OrCondition{Conditions: parseConditionList(m["conditions"])}
	case "not":
		return NotCondition{Conditions: parseConditionList(m["conditions"])}
	case "state":
		return StateCondition{
			EntityIDs: asStringList(m["entity_id"]),
			States:    asStringList(m["state"]),
			Match:     strings.ToLower(stringField(m, "match")),
		}
	case "numeric_state":
		return NumericStateCondition{
			EntityID:  firstString(asStringList(m["entity_id"])),
			Attribute: stringField(m, "attribute"),
			Above:     floatField(m, "above"),
			Below:     floatField(m, "below"),
		}
	case "template":
		tmpl := stringField(m, "value_template")
		if tmpl == "" {
			tmpl = stringField(m, "template")
		}
		return TemplateCondition{Template: tmpl}
	case "time":
		return TimeCondition{
			Weekdays: parseWeekdays(m["weekday"]),
			After:    stringField(m, "after"),
			Before:   stringField(m, "before"),
		}
	case "trigger":
		ids := asStringList(m["id"])
		if len(ids) == 0 {
			ids = asStringList(m["ids"])
		}
		if len(ids) == 0 {
			ids = asStringList(m["trigger_id"])
		}
		return TriggerCondition{IDs: ids}
	case "device":
		state, hasState := asString(m["state"])
		return DeviceCondition{
			EntityID: firstString(asStringList(m["entity_id"])),
			Type:     strings.ToLower(strings.TrimSpace(stringField(m, "type"))),
			State:    state,
			HasState: hasState,
		}
	case "calendar":
		cond := CalendarCondition{EntityID: firstString(asStringList(m["entity_id"]))}
		if state, hasState := asString(m["state"]); hasState {
			cond.State = &state
		}
		return cond
	case "sun":
		return SunCondition{
			After:        strings.ToLower(strings.TrimSpace(stringField(m, "after"))),
			Before:       strings.ToLower(strings.TrimSpace(stringField(m, "before"))),
			AfterOffset:  stringField(m, "after_offset"),
			BeforeOffset: stringField(m, "before_offset"),
		}
	case "zone":
		return ZoneCondition{
			EntityIDs: asStringList(m["entity_id"]),
			Zones:     asStringList(m["zone"]),
			Match:     strings.ToLower(stringField(m, "match")),
		}
	default:
		return UnsupportedCondition{Kind: kind}
	}
}

// ParseConditions accepts either a list of conditions or a single condition
// mapping, as automation documents allow both.
func ParseConditions(raw interface{}) []Condition {
	if raw == nil {
		return nil
	}
	if items, ok := raw.([]interface{}); ok {
		out := make([]Condition, 0, len(items))
		for _, item := range items {
			out = append(out, ParseCondition(item))
		}
		return out
	}
	return []Condition{ParseCondition(raw)}
}

// parseConditionList parses the children of and/or/not, which must be a list
func parseConditionList(raw interface{}) []Condition {
	items, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	out := make([]Condition, 0, len(items))
	for _, item := range items {
		out = append(out, ParseCondition(item))
	}
	return out
}

// Action is one node of a parsed action sequence
type Action interface {
	actionNode()
}

// ServiceAction is a service call leaf; the dry run only records it
type ServiceAction struct {
	Service  string
	EntityID string
}

// ChooseBranch is one (conditions, sequence) option of a choose node
type ChooseBranch struct {
	Conditions []Condition
	Sequence   []Action
}

// ChooseAction resolves conditional branches; the first branch whose
// conditions pass outright runs, else the default sequence
type ChooseAction struct {
	Branches []ChooseBranch
	Default  []Action
}

// DelayAction is a delay leaf; Delay keeps the raw rendering
type DelayAction struct {
	Delay string
}

// WaitForTriggerAction is a wait_for_trigger leaf
type WaitForTriggerAction struct{}

// WaitTemplateAction is a wait_template leaf
type WaitTemplateAction struct{}

// GenericAction is any action shape the walker does not recognize
type GenericAction struct{}

func (ServiceAction) actionNode()        {}
func (ChooseAction) actionNode()         {}
func (DelayAction) actionNode()          {}
func (WaitForTriggerAction) actionNode() {}
func (WaitTemplateAction) actionNode()   {}
func (GenericAction) actionNode()        {}

// ParseAction converts one raw action value into its tagged variant
func ParseAction(raw interface{}) Action {
	m, ok := asMap(raw)
	if !ok {
		return GenericAction{}
	}

	if _, present := m["service"]; present {
		act := ServiceAction{Service: stringField(m, "service")}
		if target, ok := asMap(m["target"]); ok {
			act.EntityID = strings.Join(asStringList(target["entity_id"]), ",")
		}
		return act
	}

	if _, present := m["choose"]; present {
		choose := ChooseAction{}
		if branches, ok := m["choose"].([]interface{}); ok {
			for _, rawBranch := range branches {
				branch := ChooseBranch{}
				if bm, ok := asMap(rawBranch); ok {
					branch.Conditions = ParseConditions(bm["conditions"])
					branch.Sequence = ParseActions(bm["sequence"])
				}
				choose.Branches = append(choose.Branches, branch)
			}
		}
		choose.Default = ParseActions(m["default"])
		return choose
	}

	if delay, present := m["delay"]; present {
		return DelayAction{Delay: formatValue(delay)}
	}

	if _, present := m["wait_for_trigger"]; present {
		return WaitForTriggerAction{}
	}

	if _, present := m["wait_template"]; present {
		return WaitTemplateAction{}
	}

	return GenericAction{}
}

// ParseActions parses an action list; anything that is not a list parses to
// an empty sequence.
func ParseActions(raw interface{}) []Action {
	items, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	out := make([]Action, 0, len(items))
	for _, item := range items {
		out = append(out, ParseAction(item))
	}
	return out
}

func firstString(list []string) string {
	if len(list) == 0 {
		return ""
	}
	return list[0]
}

func floatField(m map[string]interface{}, key string) *float64 {
	v, present := m[key]
	if !present {
		return nil
	}
	f, ok := asFloat(v)
	if !ok {
		return nil
	}
	return &f
}
