package flow

import (
	"proofing/internal/session"
)

// CurrentStep returns the first step in order whose outputs do not yet exist,
// skipping steps outside the session's branch. A fully satisfied session
// lands on the terminal step. Idempotent and side-effect-free.
func CurrentStep(cfg Snapshot, s *session.Session) StepKey {
	for _, def := range Steps {
		if !def.Applicable(cfg, s) {
			continue
		}
		if !def.Satisfied(cfg, s) {
			return def.Key
		}
	}
	return TerminalStep
}

// AccessAllowed reports whether the session may visit the requested step:
// the step must be in the session's branch and every applicable step strictly
// before it must be satisfied. This allows free navigation backward to
// completed steps and forward only to the current step. A false result means
// "redirect to CurrentStep", never an error.
func AccessAllowed(cfg Snapshot, s *session.Session, requested StepKey) bool {
	idx := indexOf(requested)
	if idx < 0 {
		return false
	}
	if !Steps[idx].Applicable(cfg, s) {
		return false
	}
	for _, def := range Steps[:idx] {
		if !def.Applicable(cfg, s) {
			continue
		}
		if !def.Satisfied(cfg, s) {
			return false
		}
	}
	return true
}

// ClearFrom resets every field owned by steps at or after key, preventing
// stale downstream state when the user re-enters an earlier step or changes
// a branch-determining field. Clearing ignores branch applicability: an
// abandoned branch's fields must not leak either.
func ClearFrom(s *session.Session, key StepKey) {
	idx := indexOf(key)
	if idx < 0 {
		return
	}
	for _, def := range Steps[idx:] {
		def.Clear(s)
	}
}
