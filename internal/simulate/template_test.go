package simulate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"automationsim/internal/ha"
)

func templateContext() *Context {
	return testContext(time.Now(), map[string]ha.State{
		"binary_sensor.door": {EntityID: "binary_sensor.door", State: "on"},
		"sensor.temp": {
			EntityID: "sensor.temp",
			State:    "21.5",
			Attributes: map[string]interface{}{
				"unit":    "C",
				"battery": 80.0,
			},
		},
	})
}

func TestEvalTemplate(t *testing.T) {
	ctx := templateContext()

	tests := []struct {
		name     string
		template string
		want     Verdict
	}{
		{"is_state match", `{{ is_state('binary_sensor.door', 'on') }}`, VerdictTrue},
		{"is_state mismatch", `{{ is_state('binary_sensor.door', 'off') }}`, VerdictFalse},
		{"is_state missing entity", `{{ is_state('sensor.gone', 'on') }}`, VerdictFalse},
		{"is_state double quotes", `{{ is_state("binary_sensor.door", "on") }}`, VerdictTrue},
		{"is_state_attr match", `{{ is_state_attr('sensor.temp', 'unit', 'C') }}`, VerdictTrue},
		{"is_state_attr mismatch", `{{ is_state_attr('sensor.temp', 'unit', 'F') }}`, VerdictFalse},
		{"is_state_attr numeric attr", `{{ is_state_attr('sensor.temp', 'battery', '80') }}`, VerdictTrue},
		{"states equality", `{{ states('binary_sensor.door') == 'on' }}`, VerdictTrue},
		{"states inequality", `{{ states('binary_sensor.door') != 'off' }}`, VerdictTrue},
		{"states numeric greater", `{{ states('sensor.temp') > 20 }}`, VerdictTrue},
		{"states numeric less fails", `{{ states('sensor.temp') < 20 }}`, VerdictFalse},
		{"states numeric gte", `{{ states('sensor.temp') >= 21.5 }}`, VerdictTrue},
		{"states ordering non-numeric is unknown", `{{ states('binary_sensor.door') > 5 }}`, VerdictUnknown},
		{"states missing entity equality fails", `{{ states('sensor.gone') == 'on' }}`, VerdictFalse},
		{"states missing entity inequality passes", `{{ states('sensor.gone') != 'on' }}`, VerdictTrue},
		{"states missing entity ordering is unknown", `{{ states('sensor.gone') > 5 }}`, VerdictUnknown},
		{"state_attr comparison", `{{ state_attr('sensor.temp', 'battery') > 50 }}`, VerdictTrue},
		{"state_attr equality", `{{ state_attr('sensor.temp', 'unit') == 'C' }}`, VerdictTrue},
		{"state_attr missing attribute equality fails", `{{ state_attr('sensor.temp', 'missing') == 'C' }}`, VerdictFalse},
		{"unrecognized expression is unknown", `{{ now().hour > 5 }}`, VerdictUnknown},
		{"empty template is unknown", "", VerdictUnknown},
		{"bare expression without braces", `is_state('binary_sensor.door', 'on')`, VerdictTrue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, evalTemplate(tt.template, ctx))
		})
	}
}

func TestEvalTemplateFirstMatchWins(t *testing.T) {
	ctx := templateContext()

	// is_state is checked before states(); an expression containing both
	// shapes resolves via is_state.
	got := evalTemplate(`{{ is_state('binary_sensor.door', 'on') and states('sensor.temp') > 100 }}`, ctx)
	assert.Equal(t, VerdictTrue, got)
}

func TestEvalTemplateHonorsOverrides(t *testing.T) {
	ctx := templateContext()
	ctx.Overrides["binary_sensor.door"] = "off"

	assert.Equal(t, VerdictFalse, evalTemplate(`{{ is_state('binary_sensor.door', 'on') }}`, ctx))
}

func TestCompareValues(t *testing.T) {
	tests := []struct {
		name   string
		left   string
		leftOK bool
		op     string
		right  string
		want   Verdict
	}{
		{"string equal", "on", true, "==", "on", VerdictTrue},
		{"string not equal", "on", true, "!=", "off", VerdictTrue},
		{"absent equal fails", "", false, "==", "on", VerdictFalse},
		{"absent not-equal passes", "", false, "!=", "on", VerdictTrue},
		{"numeric greater", "10", true, ">", "5", VerdictTrue},
		{"numeric less-or-equal boundary", "5", true, "<=", "5", VerdictTrue},
		{"non-numeric ordering unknown", "hello", true, ">", "5", VerdictUnknown},
		{"absent ordering unknown", "", false, ">", "5", VerdictUnknown},
		{"unknown operator", "5", true, "~", "5", VerdictUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, compareValues(tt.left, tt.leftOK, tt.op, tt.right))
		})
	}
}
