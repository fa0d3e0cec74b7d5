package trellis

import "fmt"

// Phase is a point of the initialization sequence where hooks run.
type Phase uint8

const (
	PhaseBeforeInit Phase = iota
	PhaseDIAfterComponentScan
	PhaseDIAfterInject
	PhaseDIAfterPostInject
	PhaseContextAvailable
	PhaseControllersAfterScan
	PhaseControllersReady
	PhaseContextReady
)

var phaseNames = [...]string{
	PhaseBeforeInit:           "beforeInit",
	PhaseDIAfterComponentScan: "diAfterComponentScan",
	PhaseDIAfterInject:        "diAfterInject",
	PhaseDIAfterPostInject:    "diAfterPostInject",
	PhaseContextAvailable:     "contextAvailable",
	PhaseControllersAfterScan: "controllersAfterScan",
	PhaseControllersReady:     "controllersReady",
	PhaseContextReady:         "contextReady",
}

// Phases lists every phase in execution order.
func Phases() []Phase {
	return []Phase{
		PhaseBeforeInit,
		PhaseDIAfterComponentScan,
		PhaseDIAfterInject,
		PhaseDIAfterPostInject,
		PhaseContextAvailable,
		PhaseControllersAfterScan,
		PhaseControllersReady,
		PhaseContextReady,
	}
}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("Phase(%d)", p)
}

func (p Phase) valid() bool {
	return int(p) < len(phaseNames)
}

func ParsePhase(name string) (Phase, error) {
	for i, n := range phaseNames {
		if n == name {
			return Phase(i), nil
		}
	}
	return 0, errBadInput(fmt.Sprintf("unknown phase %q", name))
}
