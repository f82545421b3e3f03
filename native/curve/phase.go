package curve

import "fmt"

var allowedTransitions = map[Phase]Phase{
	PhasePreBonding: PhaseBonding,
	PhaseBonding:    PhaseFinalized,
}

// transition is the only place a curve changes phase. It keeps IsFinalized in
// lockstep with the phase.
func transition(c *Curve, to Phase) error {
	next, ok := allowedTransitions[c.Phase]
	if !ok || next != to {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.Phase, to)
	}
	c.Phase = to
	c.IsFinalized = to == PhaseFinalized
	return nil
}

func requirePhase(c *Curve, want Phase) error {
	if c.Phase != want {
		return fmt.Errorf("%w: curve is %s, need %s", ErrWrongPhase, c.Phase, want)
	}
	return nil
}

func checkConsistency(c *Curve) error {
	if c.IsFinalized != (c.Phase == PhaseFinalized) {
		return fmt.Errorf("%w: phase=%s finalized=%t", ErrCorruptState, c.Phase, c.IsFinalized)
	}
	if c.Phase > PhaseFinalized {
		return fmt.Errorf("%w: unknown %s", ErrCorruptState, c.Phase)
	}
	return nil
}
