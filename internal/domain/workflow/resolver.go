package workflow

// ResolveStage returns the stage the acting role occupies in the variant.
// ok is false when the role has no seat, which is distinct from a blocked action.
func ResolveStage(def *Definition, actingRole Role) (stage Stage, ok bool) {
	if def == nil {
		return Stage{}, false
	}
	for _, s := range def.Stages {
		if s.Role == actingRole {
			return s, true
		}
	}
	return Stage{}, false
}
