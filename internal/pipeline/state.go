package pipeline

import "fmt"

// State is a step of a registration pass.
type State int

const (
	Idle State = iota
	ScanComplete
	ProvidersSeeded
	PreexistingUnitsBound
	DescriptorsDiscovered
	ParseUnit
	Synthesize
	RegisterUnit
	BindProvider
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case ScanComplete:
		return "scan-complete"
	case ProvidersSeeded:
		return "providers-seeded"
	case PreexistingUnitsBound:
		return "preexisting-units-bound"
	case DescriptorsDiscovered:
		return "descriptors-discovered"
	case ParseUnit:
		return "parse-unit"
	case Synthesize:
		return "synthesize"
	case RegisterUnit:
		return "register-unit"
	case BindProvider:
		return "bind-provider"
	case Done:
		return "done"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// next lists the states reachable from each state. The per-unit states loop
// back to ParseUnit for the next resource.
var next = map[State][]State{
	Idle:                  {ScanComplete},
	ScanComplete:          {ProvidersSeeded},
	ProvidersSeeded:       {PreexistingUnitsBound},
	PreexistingUnitsBound: {DescriptorsDiscovered},
	DescriptorsDiscovered: {ParseUnit, Done},
	ParseUnit:             {Synthesize},
	Synthesize:            {RegisterUnit, ParseUnit, Done},
	RegisterUnit:          {BindProvider},
	BindProvider:          {RegisterUnit, ParseUnit, Done},
}

func canMove(from, to State) bool {
	if to == Failed {
		return from != Done && from != Failed
	}
	for _, s := range next[from] {
		if s == to {
			return true
		}
	}
	return false
}
