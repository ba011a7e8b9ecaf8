package domain

import (
	"fmt"
	"strings"
)

// Phase is one of the three AC phases a single-phase meter can be mapped to.
type Phase int

const (
	PhaseL1 Phase = iota + 1
	PhaseL2
	PhaseL3
)

func (p Phase) String() string {
	switch p {
	case PhaseL1:
		return "L1"
	case PhaseL2:
		return "L2"
	case PhaseL3:
		return "L3"
	default:
		return fmt.Sprintf("unknown(%d)", int(p))
	}
}

func ParsePhase(s string) (Phase, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "L1":
		return PhaseL1, nil
	case "L2":
		return PhaseL2, nil
	case "L3":
		return PhaseL3, nil
	default:
		return 0, fmt.Errorf("invalid phase %q (must be L1, L2 or L3)", s)
	}
}

func Phases() []Phase {
	return []Phase{PhaseL1, PhaseL2, PhaseL3}
}

// PhaseReading holds the measurements of one AC phase.
type PhaseReading struct {
	VoltageVolt      float64
	CurrentAmp       float64
	PowerWatt        float64
	EnergyForwardKWh float64
}

// InverterModel is the full measurement state of the virtual inverter.
// It is a value type: copies are snapshots, and a failed update cycle
// leaves the previous value untouched.
type InverterModel struct {
	L1 PhaseReading
	L2 PhaseReading
	L3 PhaseReading

	TotalPowerWatt        float64
	TotalEnergyForwardKWh float64
}

func (m InverterModel) Phase(p Phase) PhaseReading {
	switch p {
	case PhaseL1:
		return m.L1
	case PhaseL2:
		return m.L2
	case PhaseL3:
		return m.L3
	default:
		return PhaseReading{}
	}
}

func (m *InverterModel) SetPhase(p Phase, r PhaseReading) {
	switch p {
	case PhaseL1:
		m.L1 = r
	case PhaseL2:
		m.L2 = r
	case PhaseL3:
		m.L3 = r
	}
}

type PathValue struct {
	Path  string
	Value float64
}

// Value resolves a measurement path to its current value.
func (m InverterModel) Value(path string) (float64, bool) {
	switch path {
	case PathAcPower:
		return m.TotalPowerWatt, true
	case PathAcEnergyForward:
		return m.TotalEnergyForwardKWh, true
	}
	for _, p := range Phases() {
		reading := m.Phase(p)
		switch path {
		case PhaseVoltagePath(p):
			return reading.VoltageVolt, true
		case PhaseCurrentPath(p):
			return reading.CurrentAmp, true
		case PhasePowerPath(p):
			return reading.PowerWatt, true
		case PhaseEnergyForwardPath(p):
			return reading.EnergyForwardKWh, true
		}
	}
	return 0, false
}

// Set writes a measurement path. Reports false for paths the model does
// not carry.
func (m *InverterModel) Set(path string, value float64) bool {
	switch path {
	case PathAcPower:
		m.TotalPowerWatt = value
		return true
	case PathAcEnergyForward:
		m.TotalEnergyForwardKWh = value
		return true
	}
	for _, p := range Phases() {
		reading := m.Phase(p)
		switch path {
		case PhaseVoltagePath(p):
			reading.VoltageVolt = value
		case PhaseCurrentPath(p):
			reading.CurrentAmp = value
		case PhasePowerPath(p):
			reading.PowerWatt = value
		case PhaseEnergyForwardPath(p):
			reading.EnergyForwardKWh = value
		default:
			continue
		}
		m.SetPhase(p, reading)
		return true
	}
	return false
}

// PathValues lists every measurement path with its current value, phases
// first, in a stable order.
func (m InverterModel) PathValues() []PathValue {
	values := make([]PathValue, 0, 14)
	for _, p := range Phases() {
		reading := m.Phase(p)
		values = append(values,
			PathValue{Path: PhaseVoltagePath(p), Value: reading.VoltageVolt},
			PathValue{Path: PhaseCurrentPath(p), Value: reading.CurrentAmp},
			PathValue{Path: PhasePowerPath(p), Value: reading.PowerWatt},
			PathValue{Path: PhaseEnergyForwardPath(p), Value: reading.EnergyForwardKWh},
		)
	}
	values = append(values,
		PathValue{Path: PathAcPower, Value: m.TotalPowerWatt},
		PathValue{Path: PathAcEnergyForward, Value: m.TotalEnergyForwardKWh},
	)
	return values
}

// Diff returns the path values that differ from prev, in PathValues order.
func (m InverterModel) Diff(prev InverterModel) []PathValue {
	if m == prev {
		return nil
	}
	old := prev.PathValues()
	var changed []PathValue
	for i, pv := range m.PathValues() {
		if pv.Value != old[i].Value {
			changed = append(changed, pv)
		}
	}
	return changed
}

// UpdateCounter is the bus-visible cycle counter. uint8 arithmetic gives
// the 0..255 wrap.
type UpdateCounter uint8

func (c UpdateCounter) Next() UpdateCounter {
	return c + 1
}
