// Package simulate performs dry runs of smart-home automation documents.
// Conditions are evaluated against a frozen world snapshot under three-valued
// logic, and the action tree is walked to report what would run; nothing is
// ever executed against the live system.
package simulate

import (
	"go.uber.org/zap"
)

// Document is a parsed automation: its condition list and action sequence.
// Triggers are ignored beyond the simulated trigger id supplied in the
// Context.
type Document struct {
	Conditions []Condition
	Actions    []Action
}

// ParseDocument converts a decoded automation mapping into a Document. The
// condition list is read from "condition" or "conditions", the action
// sequence from "action" or "sequence". A document that is not a mapping is
// a structural error.
func ParseDocument(raw interface{}) (*Document, error) {
	m, ok := asMap(raw)
	if !ok {
		return nil, &StructuralError{Reason: "automation document is not a mapping"}
	}

	rawConditions := m["condition"]
	if rawConditions == nil {
		rawConditions = m["conditions"]
	}
	rawActions := m["action"]
	if rawActions == nil {
		rawActions = m["sequence"]
	}

	return &Document{
		Conditions: ParseConditions(rawConditions),
		Actions:    ParseActions(rawActions),
	}, nil
}

// Result is the outcome of one dry run. ConditionsUnknown is reported
// independently of ConditionsPassed; actions are walked only when the
// conditions pass without any unknown.
type Result struct {
	ConditionsPassed  bool     `json:"conditions_passed"`
	ConditionsUnknown bool     `json:"conditions_unknown"`
	Actions           []string `json:"actions"`
	Logs              []string `json:"logs"`
}

// Simulator runs automation documents against a Context
type Simulator struct {
	logger   *zap.Logger
	maxDepth int
}

func NewSimulator(logger *zap.Logger) *Simulator {
	return &Simulator{
		logger:   logger,
		maxDepth: DefaultMaxDepth,
	}
}

// SetMaxDepth overrides the nesting ceiling for and/or/not and choose
func (s *Simulator) SetMaxDepth(depth int) {
	if depth > 0 {
		s.maxDepth = depth
	}
}

// Run evaluates doc's conditions and, when they pass outright, walks its
// actions. The returned error is non-nil only for structural violations;
// condition-level problems fold into the unknown flag instead.
func (s *Simulator) Run(doc *Document, ctx *Context) (*Result, error) {
	logs := []string{}

	passed, unknown, err := s.EvalConditions(doc.Conditions, ctx, &logs)
	if err != nil {
		return nil, err
	}

	actions := []string{}
	if passed && !unknown {
		actions, err = s.simulateActions(doc.Actions, ctx, &logs, 0)
		if err != nil {
			return nil, err
		}
	} else {
		logs = append(logs, "Actions skipped due to unmet or unknown conditions.")
	}

	s.logger.Debug("dry run complete",
		zap.Bool("conditions_passed", passed),
		zap.Bool("conditions_unknown", unknown),
		zap.Int("actions", len(actions)),
		zap.Time("simulated_now", ctx.Now))

	return &Result{
		ConditionsPassed:  passed,
		ConditionsUnknown: unknown,
		Actions:           actions,
		Logs:              logs,
	}, nil
}
