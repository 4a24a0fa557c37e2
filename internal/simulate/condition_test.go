package simulate

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"automationsim/internal/ha"
)

func newTestSimulator(t *testing.T) *Simulator {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	return NewSimulator(logger)
}

func testContext(now time.Time, states map[string]ha.State) *Context {
	if states == nil {
		states = map[string]ha.State{}
	}
	return &Context{
		States:    states,
		Overrides: map[string]string{},
		Now:       now,
	}
}

// condWithVerdict builds a condition that deterministically resolves to the
// given verdict: a matching state check for true, a failing one for false,
// and an unrecognized kind for unknown.
func condWithVerdict(v Verdict) Condition {
	switch v {
	case VerdictTrue:
		return StateCondition{EntityIDs: []string{"light.fixed"}, States: []string{"on"}}
	case VerdictFalse:
		return StateCondition{EntityIDs: []string{"light.fixed"}, States: []string{"off"}}
	default:
		return UnsupportedCondition{Kind: "mystery"}
	}
}

func verdictContext() *Context {
	return testContext(time.Date(2025, 6, 2, 12, 0, 0, 0, time.Local), map[string]ha.State{
		"light.fixed": {EntityID: "light.fixed", State: "on"},
	})
}

func TestAndTruthTable(t *testing.T) {
	sim := newTestSimulator(t)
	ctx := verdictContext()

	tests := []struct {
		children []Verdict
		want     Verdict
	}{
		{[]Verdict{VerdictTrue}, VerdictTrue},
		{[]Verdict{VerdictFalse}, VerdictFalse},
		{[]Verdict{VerdictUnknown}, VerdictUnknown},
		{[]Verdict{VerdictTrue, VerdictTrue}, VerdictTrue},
		{[]Verdict{VerdictTrue, VerdictFalse}, VerdictFalse},
		{[]Verdict{VerdictTrue, VerdictUnknown}, VerdictUnknown},
		{[]Verdict{VerdictFalse, VerdictUnknown}, VerdictFalse},
		{[]Verdict{VerdictUnknown, VerdictUnknown}, VerdictUnknown},
		{[]Verdict{VerdictTrue, VerdictUnknown, VerdictFalse}, VerdictFalse},
		{[]Verdict{VerdictTrue, VerdictTrue, VerdictUnknown}, VerdictUnknown},
		{[]Verdict{VerdictTrue, VerdictTrue, VerdictTrue}, VerdictTrue},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%v", tt.children), func(t *testing.T) {
			children := make([]Condition, len(tt.children))
			for i, v := range tt.children {
				children[i] = condWithVerdict(v)
			}
			got, _, err := sim.evalCondition(AndCondition{Conditions: children}, ctx, "", 0)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOrTruthTable(t *testing.T) {
	sim := newTestSimulator(t)
	ctx := verdictContext()

	tests := []struct {
		children []Verdict
		want     Verdict
	}{
		{[]Verdict{VerdictTrue}, VerdictTrue},
		{[]Verdict{VerdictFalse}, VerdictFalse},
		{[]Verdict{VerdictUnknown}, VerdictUnknown},
		{[]Verdict{VerdictTrue, VerdictFalse}, VerdictTrue},
		{[]Verdict{VerdictTrue, VerdictUnknown}, VerdictTrue},
		{[]Verdict{VerdictFalse, VerdictUnknown}, VerdictUnknown},
		{[]Verdict{VerdictFalse, VerdictFalse}, VerdictFalse},
		{[]Verdict{VerdictUnknown, VerdictUnknown, VerdictTrue}, VerdictTrue},
		{[]Verdict{VerdictFalse, VerdictUnknown, VerdictFalse}, VerdictUnknown},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%v", tt.children), func(t *testing.T) {
			children := make([]Condition, len(tt.children))
			for i, v := range tt.children {
				children[i] = condWithVerdict(v)
			}
			got, _, err := sim.evalCondition(OrCondition{Conditions: children}, ctx, "", 0)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNotTruthTable(t *testing.T) {
	sim := newTestSimulator(t)
	ctx := verdictContext()

	tests := []struct {
		name  string
		child Verdict
		want  Verdict
	}{
		{"negates true", VerdictTrue, VerdictFalse},
		{"negates false", VerdictFalse, VerdictTrue},
		{"unknown stays unknown", VerdictUnknown, VerdictUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _, err := sim.evalCondition(NotCondition{Conditions: []Condition{condWithVerdict(tt.child)}}, ctx, "", 0)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("missing child is unknown", func(t *testing.T) {
		got, msg, err := sim.evalCondition(NotCondition{}, ctx, "", 0)
		require.NoError(t, err)
		assert.Equal(t, VerdictUnknown, got)
		assert.Equal(t, "not missing conditions", msg)
	})
}

func TestStateCondition(t *testing.T) {
	sim := newTestSimulator(t)
	ctx := testContext(time.Now(), map[string]ha.State{
		"light.kitchen": {EntityID: "light.kitchen", State: "on"},
		"light.porch":   {EntityID: "light.porch", State: "off"},
	})

	tests := []struct {
		name string
		cond StateCondition
		want Verdict
	}{
		{"single match", StateCondition{EntityIDs: []string{"light.kitchen"}, States: []string{"on"}}, VerdictTrue},
		{"single mismatch", StateCondition{EntityIDs: []string{"light.kitchen"}, States: []string{"off"}}, VerdictFalse},
		{"multiple accepted states", StateCondition{EntityIDs: []string{"light.porch"}, States: []string{"on", "off"}}, VerdictTrue},
		{"any mode default", StateCondition{EntityIDs: []string{"light.kitchen", "light.porch"}, States: []string{"on"}}, VerdictTrue},
		{"all mode fails on mixed", StateCondition{EntityIDs: []string{"light.kitchen", "light.porch"}, States: []string{"on"}, Match: "all"}, VerdictFalse},
		{"all mode passes", StateCondition{EntityIDs: []string{"light.kitchen", "light.porch"}, States: []string{"on", "off"}, Match: "all"}, VerdictTrue},
		{"missing entity fails", StateCondition{EntityIDs: []string{"light.gone"}, States: []string{"on"}}, VerdictFalse},
		{"no entity is unknown", StateCondition{States: []string{"on"}}, VerdictUnknown},
		{"no target state fails", StateCondition{EntityIDs: []string{"light.kitchen"}}, VerdictFalse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _, err := sim.evalCondition(tt.cond, ctx, "", 0)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("override wins", func(t *testing.T) {
		ctx := testContext(time.Now(), map[string]ha.State{
			"light.kitchen": {EntityID: "light.kitchen", State: "off"},
		})
		ctx.Overrides["light.kitchen"] = "on"
		got, _, err := sim.evalCondition(StateCondition{EntityIDs: []string{"light.kitchen"}, States: []string{"on"}}, ctx, "", 0)
		require.NoError(t, err)
		assert.Equal(t, VerdictTrue, got)
	})
}

func TestNumericStateCondition(t *testing.T) {
	sim := newTestSimulator(t)
	above := 10.0
	below := 20.0
	ctx := testContext(time.Now(), map[string]ha.State{
		"sensor.temp":  {EntityID: "sensor.temp", State: "15"},
		"sensor.text":  {EntityID: "sensor.text", State: "warm"},
		"sensor.attrs": {EntityID: "sensor.attrs", State: "on", Attributes: map[string]interface{}{"battery": 42.0}},
	})

	set := func(value string) *Context {
		c := testContext(time.Now(), map[string]ha.State{
			"sensor.temp": {EntityID: "sensor.temp", State: value},
		})
		return c
	}

	tests := []struct {
		name  string
		ctx   *Context
		cond  NumericStateCondition
		want  Verdict
		label string
	}{
		{"within bounds", ctx, NumericStateCondition{EntityID: "sensor.temp", Above: &above, Below: &below}, VerdictTrue, "numeric_state passed"},
		{"equal to above fails", set("10"), NumericStateCondition{EntityID: "sensor.temp", Above: &above}, VerdictFalse, "numeric_state failed (<= above)"},
		{"just above passes", set("10.0001"), NumericStateCondition{EntityID: "sensor.temp", Above: &above}, VerdictTrue, "numeric_state passed"},
		{"equal to below fails", set("20"), NumericStateCondition{EntityID: "sensor.temp", Below: &below}, VerdictFalse, "numeric_state failed (>= below)"},
		{"just below passes", set("19.999"), NumericStateCondition{EntityID: "sensor.temp", Below: &below}, VerdictTrue, "numeric_state passed"},
		{"non-numeric is unknown", ctx, NumericStateCondition{EntityID: "sensor.text", Above: &above}, VerdictUnknown, "numeric_state non-numeric"},
		{"missing entity is unknown", ctx, NumericStateCondition{EntityID: "sensor.gone", Above: &above}, VerdictUnknown, "numeric_state non-numeric"},
		{"attribute source", ctx, NumericStateCondition{EntityID: "sensor.attrs", Attribute: "battery", Above: &above}, VerdictTrue, "numeric_state passed"},
		{"missing entity id is unknown", ctx, NumericStateCondition{Above: &above}, VerdictUnknown, "numeric_state missing entity_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, msg, err := sim.evalCondition(tt.cond, tt.ctx, "", 0)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.label, msg)
		})
	}
}

func TestTimeCondition(t *testing.T) {
	sim := newTestSimulator(t)
	at := func(hour, min int) *Context {
		// 2025-06-02 is a Monday
		return testContext(time.Date(2025, 6, 2, hour, min, 0, 0, time.Local), nil)
	}

	tests := []struct {
		name string
		ctx  *Context
		cond TimeCondition
		want Verdict
	}{
		{"inside plain window", at(12, 0), TimeCondition{After: "08:00", Before: "17:00"}, VerdictTrue},
		{"outside plain window", at(7, 0), TimeCondition{After: "08:00", Before: "17:00"}, VerdictFalse},
		{"wraparound late evening", at(23, 0), TimeCondition{After: "22:00", Before: "06:00"}, VerdictTrue},
		{"wraparound early morning", at(5, 0), TimeCondition{After: "22:00", Before: "06:00"}, VerdictTrue},
		{"wraparound midday", at(12, 0), TimeCondition{After: "22:00", Before: "06:00"}, VerdictFalse},
		{"after boundary excluded", at(8, 0), TimeCondition{After: "08:00"}, VerdictFalse},
		{"after one minute later", at(8, 1), TimeCondition{After: "08:00"}, VerdictTrue},
		{"before boundary excluded", at(17, 0), TimeCondition{Before: "17:00"}, VerdictFalse},
		{"weekday match", at(12, 0), TimeCondition{Weekdays: []time.Weekday{time.Monday}}, VerdictTrue},
		{"weekday mismatch", at(12, 0), TimeCondition{Weekdays: []time.Weekday{time.Saturday, time.Sunday}}, VerdictFalse},
		{"weekday and window both apply", at(12, 0), TimeCondition{Weekdays: []time.Weekday{time.Monday}, After: "13:00"}, VerdictFalse},
		{"no constraints is unknown", at(12, 0), TimeCondition{}, VerdictUnknown},
		{"datetime bound", at(12, 0), TimeCondition{After: "2025-06-01T00:00:00"}, VerdictTrue},
		{"datetime bound in future", at(12, 0), TimeCondition{After: "2025-07-01T00:00:00"}, VerdictFalse},
		{"date bound passes on same day", at(12, 0), TimeCondition{After: "2025-06-02"}, VerdictTrue},
		{"date bound before fails", at(12, 0), TimeCondition{Before: "2025-06-01"}, VerdictFalse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _, err := sim.evalCondition(tt.cond, tt.ctx, "", 0)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTriggerCondition(t *testing.T) {
	sim := newTestSimulator(t)

	tests := []struct {
		name      string
		triggerID string
		trigger   map[string]interface{}
		cond      TriggerCondition
		want      Verdict
	}{
		{"match", "motion", nil, TriggerCondition{IDs: []string{"motion"}}, VerdictTrue},
		{"mismatch", "door", nil, TriggerCondition{IDs: []string{"motion"}}, VerdictFalse},
		{"multiple accepted ids", "door", nil, TriggerCondition{IDs: []string{"motion", "door"}}, VerdictTrue},
		{"no simulated trigger is unknown", "", nil, TriggerCondition{IDs: []string{"motion"}}, VerdictUnknown},
		{"payload id fallback", "", map[string]interface{}{"id": "motion"}, TriggerCondition{IDs: []string{"motion"}}, VerdictTrue},
		{"no accepted ids is unknown", "motion", nil, TriggerCondition{}, VerdictUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := testContext(time.Now(), nil)
			ctx.TriggerID = tt.triggerID
			ctx.Trigger = tt.trigger
			got, _, err := sim.evalCondition(tt.cond, ctx, "", 0)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDeviceCondition(t *testing.T) {
	sim := newTestSimulator(t)
	ctx := testContext(time.Now(), map[string]ha.State{
		"lock.front":    {EntityID: "lock.front", State: "locked"},
		"switch.pump":   {EntityID: "switch.pump", State: "on"},
		"cover.garage":  {EntityID: "cover.garage", State: "Open"},
		"sensor.custom": {EntityID: "sensor.custom", State: "ajar"},
	})

	tests := []struct {
		name string
		cond DeviceCondition
		want Verdict
	}{
		{"is_locked matches", DeviceCondition{EntityID: "lock.front", Type: "is_locked"}, VerdictTrue},
		{"is_unlocked fails", DeviceCondition{EntityID: "lock.front", Type: "is_unlocked"}, VerdictFalse},
		{"is_on matches", DeviceCondition{EntityID: "switch.pump", Type: "is_on"}, VerdictTrue},
		{"case-insensitive state", DeviceCondition{EntityID: "cover.garage", Type: "is_open"}, VerdictTrue},
		{"explicit state field", DeviceCondition{EntityID: "sensor.custom", State: "ajar", HasState: true}, VerdictTrue},
		{"unknown verb", DeviceCondition{EntityID: "lock.front", Type: "is_sideways"}, VerdictUnknown},
		{"missing entity state", DeviceCondition{EntityID: "lock.gone", Type: "is_locked"}, VerdictUnknown},
		{"missing entity id", DeviceCondition{Type: "is_locked"}, VerdictUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _, err := sim.evalCondition(tt.cond, ctx, "", 0)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCalendarCondition(t *testing.T) {
	sim := newTestSimulator(t)
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.Local)
	busy := "busy"

	ctx := testContext(now, map[string]ha.State{
		"calendar.work": {EntityID: "calendar.work", State: "on"},
		"calendar.gym":  {EntityID: "calendar.gym", State: "off"},
		"calendar.trip": {
			EntityID: "calendar.trip",
			State:    "busy",
			Attributes: map[string]interface{}{
				"start_time": "2025-06-02 09:00:00",
				"end_time":   "2025-06-02 11:00:00",
			},
		},
		"calendar.blank": {EntityID: "calendar.blank", State: "scheduled"},
	})

	tests := []struct {
		name string
		cond CalendarCondition
		want Verdict
	}{
		{"on state passes", CalendarCondition{EntityID: "calendar.work"}, VerdictTrue},
		{"off state fails", CalendarCondition{EntityID: "calendar.gym"}, VerdictFalse},
		{"explicit state match", CalendarCondition{EntityID: "calendar.trip", State: &busy}, VerdictTrue},
		{"event window contains now", CalendarCondition{EntityID: "calendar.trip"}, VerdictTrue},
		{"no usable signal is unknown", CalendarCondition{EntityID: "calendar.blank"}, VerdictUnknown},
		{"missing entity id", CalendarCondition{}, VerdictUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _, err := sim.evalCondition(tt.cond, ctx, "", 0)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("event window excludes now", func(t *testing.T) {
		ctx := testContext(time.Date(2025, 6, 2, 12, 0, 0, 0, time.Local), ctx.States)
		got, _, err := sim.evalCondition(CalendarCondition{EntityID: "calendar.trip"}, ctx, "", 0)
		require.NoError(t, err)
		assert.Equal(t, VerdictFalse, got)
	})
}

func TestUnsupportedCondition(t *testing.T) {
	sim := newTestSimulator(t)
	ctx := testContext(time.Now(), nil)

	got, msg, err := sim.evalCondition(UnsupportedCondition{Kind: "telepathy"}, ctx, "cond[0]: ", 0)
	require.NoError(t, err)
	assert.Equal(t, VerdictUnknown, got)
	assert.Equal(t, "cond[0]: unsupported condition 'telepathy'", msg)
}

func TestDepthCeiling(t *testing.T) {
	sim := newTestSimulator(t)
	ctx := verdictContext()

	var cond Condition = condWithVerdict(VerdictTrue)
	for i := 0; i < DefaultMaxDepth+5; i++ {
		cond = NotCondition{Conditions: []Condition{cond}}
	}

	logs := []string{}
	_, _, err := sim.EvalConditions([]Condition{cond}, ctx, &logs)
	require.Error(t, err)
	var structErr *StructuralError
	assert.ErrorAs(t, err, &structErr)
}

func TestDepthCeilingConfigurable(t *testing.T) {
	sim := newTestSimulator(t)
	sim.SetMaxDepth(3)
	ctx := verdictContext()

	shallow := NotCondition{Conditions: []Condition{condWithVerdict(VerdictTrue)}}
	_, _, err := sim.evalCondition(shallow, ctx, "", 0)
	assert.NoError(t, err)

	var deep Condition = condWithVerdict(VerdictTrue)
	for i := 0; i < 5; i++ {
		deep = NotCondition{Conditions: []Condition{deep}}
	}
	_, _, err = sim.evalCondition(deep, ctx, "", 0)
	assert.Error(t, err)
}

func TestEvalConditionsList(t *testing.T) {
	sim := newTestSimulator(t)
	ctx := verdictContext()

	t.Run("empty list passes", func(t *testing.T) {
		logs := []string{}
		passed, unknown, err := sim.EvalConditions(nil, ctx, &logs)
		require.NoError(t, err)
		assert.True(t, passed)
		assert.False(t, unknown)
		assert.Equal(t, []string{"Conditions: none"}, logs)
	})

	t.Run("short-circuits on failure", func(t *testing.T) {
		logs := []string{}
		passed, unknown, err := sim.EvalConditions([]Condition{
			condWithVerdict(VerdictFalse),
			condWithVerdict(VerdictTrue),
		}, ctx, &logs)
		require.NoError(t, err)
		assert.False(t, passed)
		assert.False(t, unknown)
		assert.Len(t, logs, 1)
		assert.Equal(t, "cond[0]: state failed", logs[0])
	})

	t.Run("unknown does not stop evaluation", func(t *testing.T) {
		logs := []string{}
		passed, unknown, err := sim.EvalConditions([]Condition{
			condWithVerdict(VerdictUnknown),
			condWithVerdict(VerdictTrue),
		}, ctx, &logs)
		require.NoError(t, err)
		assert.True(t, passed)
		assert.True(t, unknown)
		assert.Len(t, logs, 2)
	})

	t.Run("diagnostic labels carry positions", func(t *testing.T) {
		logs := []string{}
		passed, unknown, err := sim.EvalConditions([]Condition{
			AndCondition{Conditions: []Condition{
				condWithVerdict(VerdictTrue),
				condWithVerdict(VerdictTrue),
			}},
		}, ctx, &logs)
		require.NoError(t, err)
		assert.True(t, passed)
		assert.False(t, unknown)
		assert.Equal(t, []string{"cond[0]: and passed"}, logs)
	})
}
