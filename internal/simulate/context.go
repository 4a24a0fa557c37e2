package simulate

import (
	"time"

	"automationsim/internal/clock"
	"automationsim/internal/ha"
)

// Context is the immutable world state a single dry run evaluates against:
// the entity snapshot, scenario overrides, the simulated clock and the
// simulated firing trigger. It is built once per run and never mutated.
type Context struct {
	States    map[string]ha.State
	Overrides map[string]string
	Now       time.Time
	TriggerID string
	Trigger   map[string]interface{}
}

// NewContext builds a Context from a snapshot and scenario inputs. timeSpec
// is either an absolute datetime, an "HH:MM[:SS]" time of day applied to the
// clock's current date, or empty to use the clock's current time as is.
func NewContext(states []ha.State, overrides map[string]string, timeSpec, triggerID string, trigger map[string]interface{}, clk clock.Clock) *Context {
	stateMap := make(map[string]ha.State, len(states))
	for _, st := range states {
		stateMap[st.EntityID] = st
	}

	now := clk.Now()
	if spec := timeSpec; spec != "" {
		if dt, ok := parseDateTime(spec); ok {
			now = dt
		} else if tod, ok := parseTimeOfDay(spec); ok {
			now = time.Date(now.Year(), now.Month(), now.Day(), tod.hour, tod.minute, tod.second, 0, now.Location())
		}
	}

	if overrides == nil {
		overrides = make(map[string]string)
	}

	return &Context{
		States:    stateMap,
		Overrides: overrides,
		Now:       now,
		TriggerID: triggerID,
		Trigger:   trigger,
	}
}

// ResolveState looks up an entity's current value and attributes, honoring
// scenario overrides. Overrides always win and carry no attributes. A
// missing entity is reported as ok=false, never as an error.
func (c *Context) ResolveState(entityID string) (value string, ok bool, attrs map[string]interface{}) {
	if v, found := c.Overrides[entityID]; found {
		return v, true, map[string]interface{}{}
	}
	st, found := c.States[entityID]
	if !found {
		return "", false, map[string]interface{}{}
	}
	attrs = st.Attributes
	if attrs == nil {
		attrs = map[string]interface{}{}
	}
	return st.State, true, attrs
}

// triggerID returns the simulated trigger id, falling back to the id field
// of the simulated trigger payload.
func (c *Context) triggerID() string {
	if c.TriggerID != "" {
		return c.TriggerID
	}
	if c.Trigger != nil {
		if id, ok := asString(c.Trigger["id"]); ok {
			return id
		}
	}
	return ""
}
