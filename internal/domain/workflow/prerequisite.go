package workflow

// Readiness is the result of a prerequisite check
type Readiness struct {
	Ready   bool
	Blocked *BlockedError
}

// Err returns nil when ready, the blocking error otherwise
func (r Readiness) Err() error {
	if r.Ready {
		return nil
	}
	if r.Blocked == nil {
		return ErrUnauthorized
	}
	return r.Blocked
}

func blocked(err *BlockedError) Readiness {
	return Readiness{Blocked: err}
}

// CanAct decides whether targetStage may be acted on.
// Checks run in a fixed order: an existing decision at the target, the
// lifecycle status, then every earlier stage in ascending order. The first
// failure is reported.
func CanAct(def *Definition, facts Facts, targetStage int) Readiness {
	if _, ok := def.Stage(targetStage); !ok {
		return Readiness{}
	}

	if _, decided := facts.Decisions[targetStage]; decided {
		return blocked(&BlockedError{Reason: ReasonDuplicateAction, Stage: targetStage})
	}

	if !def.ActionableStatuses()[facts.Status] {
		return blocked(&BlockedError{Reason: ReasonWrongLifecycleStatus, Status: facts.Status})
	}

	if unmet, ok := firstUnsatisfied(def, facts, targetStage); ok {
		return blocked(&BlockedError{Reason: ReasonPrerequisiteUnsatisfied, Stage: unmet})
	}

	return Readiness{Ready: true}
}

// firstUnsatisfied returns the lowest stage below target that is not satisfied
func firstUnsatisfied(def *Definition, facts Facts, target int) (int, bool) {
	for _, s := range def.Stages {
		if s.Number >= target {
			break
		}
		if !stageSatisfied(s, facts) {
			return s.Number, true
		}
	}
	return 0, false
}
