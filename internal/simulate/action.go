package simulate

import "fmt"

// summarizeAction renders an action leaf as the one-line form the dry run
// reports instead of executing anything.
func summarizeAction(action Action) string {
	switch a := action.(type) {
	case ServiceAction:
		if a.EntityID != "" {
			return fmt.Sprintf("service %s -> %s", a.Service, a.EntityID)
		}
		return "service " + a.Service
	case ChooseAction:
		return fmt.Sprintf("choose (%d options)", len(a.Branches))
	case DelayAction:
		return "delay " + a.Delay
	case WaitForTriggerAction:
		return "wait_for_trigger"
	case WaitTemplateAction:
		return "wait_template"
	default:
		return "action: (unknown)"
	}
}

// simulateActions walks an action sequence, collecting leaf summaries.
// A choose node runs the first branch whose conditions pass outright; a
// branch blocked only by unknown conditions is logged and skipped, and the
// default sequence runs when no branch matched.
func (s *Simulator) simulateActions(actions []Action, ctx *Context, logs *[]string, depth int) ([]string, error) {
	out := make([]string, 0, len(actions))
	for idx, action := range actions {
		choose, isChoose := action.(ChooseAction)
		if !isChoose {
			out = append(out, summarizeAction(action))
			continue
		}

		if depth >= s.maxDepth {
			return nil, &StructuralError{Reason: fmt.Sprintf("action nesting exceeds depth limit %d", s.maxDepth)}
		}

		matched := false
		for branchIdx, branch := range choose.Branches {
			passed, unknown, err := s.EvalConditions(branch.Conditions, ctx, logs)
			if err != nil {
				return nil, err
			}
			if passed && !unknown {
				*logs = append(*logs, fmt.Sprintf("choose[%d] -> option %d", idx, branchIdx+1))
				sub, err := s.simulateActions(branch.Sequence, ctx, logs, depth+1)
				if err != nil {
					return nil, err
				}
				out = append(out, sub...)
				matched = true
				break
			}
			if unknown {
				*logs = append(*logs, fmt.Sprintf("choose[%d] -> option %d unknown", idx, branchIdx+1))
			}
		}
		if !matched && len(choose.Default) > 0 {
			*logs = append(*logs, fmt.Sprintf("choose[%d] -> default", idx))
			sub, err := s.simulateActions(choose.Default, ctx, logs, depth+1)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
		}
	}
	return out, nil
}
