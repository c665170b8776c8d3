package proximity

import "venuelink/internal/model"

type phase int

const (
	phaseActive phase = iota
	phaseCompleting
	phaseStopped
)

func (p phase) String() string {
	switch p {
	case phaseActive:
		return "active"
	case phaseCompleting:
		return "completing"
	case phaseStopped:
		return "stopped"
	}
	return "unknown"
}

type action int

const (
	actionIgnore action = iota
	actionForward
	actionComplete
)

// transition decides what to do with a resolved distance
func transition(p phase, d, threshold model.Distance) (phase, action) {
	if p != phaseActive {
		return p, actionIgnore
	}
	if d <= threshold {
		return phaseCompleting, actionComplete
	}
	return phaseActive, actionForward
}
