package service

import (
	"github.com/wurmreem/dbus-shelly-2pmPlus-pvinverter/internal/core/domain"
	"github.com/wurmreem/dbus-shelly-2pmPlus-pvinverter/pkg/shelly"
)

// AggregatePhases maps a single-phase meter snapshot onto the three-phase
// inverter model. The configured phase carries the measurement, the other
// two read zero, and the totals equal the sums over all phases.
func AggregatePhases(snapshot shelly.MeterSnapshot, activePhase domain.Phase) domain.InverterModel {
	var model domain.InverterModel
	for _, phase := range domain.Phases() {
		if phase != activePhase {
			continue
		}
		model.SetPhase(phase, domain.PhaseReading{
			VoltageVolt:      snapshot.VoltageVolt,
			CurrentAmp:       snapshot.CurrentAmp,
			PowerWatt:        snapshot.PowerWatt,
			EnergyForwardKWh: snapshot.EnergyForwardKWh(),
		})
	}
	for _, phase := range domain.Phases() {
		reading := model.Phase(phase)
		model.TotalPowerWatt += reading.PowerWatt
		model.TotalEnergyForwardKWh += reading.EnergyForwardKWh
	}
	return model
}
