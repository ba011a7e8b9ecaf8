package service

import (
	"fmt"
	"testing"

	"github.com/wurmreem/dbus-shelly-2pmPlus-pvinverter/internal/core/domain"
	"github.com/wurmreem/dbus-shelly-2pmPlus-pvinverter/pkg/shelly"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gen2Snapshot(power, totalWh, voltage, current float64) shelly.MeterSnapshot {
	return shelly.MeterSnapshot{
		PowerWatt:   power,
		EnergyTotal: totalWh,
		EnergyUnit:  shelly.WattHours,
		VoltageVolt: voltage,
		CurrentAmp:  current,
	}
}

func TestAggregateActivePhaseCarriesSnapshot(t *testing.T) {
	require := require.New(t)

	snapshot := gen2Snapshot(460, 1523400, 231.2, 1.99)

	for _, active := range domain.Phases() {
		model := AggregatePhases(snapshot, active)

		reading := model.Phase(active)
		require.Equal(460.0, reading.PowerWatt)
		require.Equal(231.2, reading.VoltageVolt)
		require.Equal(1.99, reading.CurrentAmp)
		require.InDelta(1523.4, reading.EnergyForwardKWh, 0.001)

		for _, other := range domain.Phases() {
			if other == active {
				continue
			}
			require.Equal(domain.PhaseReading{}, model.Phase(other),
				fmt.Sprintf("phase %s must read zero when %s is active", other, active))
		}
	}
}

func TestAggregateTotalsEqualPhaseSums(t *testing.T) {
	require := require.New(t)

	model := AggregatePhases(gen2Snapshot(460, 1523400, 231.2, 1.99), domain.PhaseL2)

	var sumPower, sumEnergy float64
	for _, phase := range domain.Phases() {
		reading := model.Phase(phase)
		sumPower += reading.PowerWatt
		sumEnergy += reading.EnergyForwardKWh
	}
	require.Equal(sumPower, model.TotalPowerWatt)
	require.Equal(sumEnergy, model.TotalEnergyForwardKWh)
	require.Equal(460.0, model.TotalPowerWatt)
	require.InDelta(1523.4, model.TotalEnergyForwardKWh, 0.001)
}

func TestAggregatePhaseReassignment(t *testing.T) {
	assert := assert.New(t)

	snapshot := gen2Snapshot(460, 1000, 230, 2)

	before := AggregatePhases(snapshot, domain.PhaseL1)
	after := AggregatePhases(snapshot, domain.PhaseL3)

	assert.Equal(460.0, before.L1.PowerWatt)
	assert.Equal(0.0, after.L1.PowerWatt)
	assert.Equal(460.0, after.L3.PowerWatt)
	assert.Equal(before.TotalPowerWatt, after.TotalPowerWatt)
}

func TestAggregateWattMinuteEnergy(t *testing.T) {
	assert := assert.New(t)

	// 6000 watt-minutes is 0.1 kWh
	snapshot := shelly.MeterSnapshot{
		PowerWatt:   460,
		EnergyTotal: 6000,
		EnergyUnit:  shelly.WattMinutes,
		VoltageVolt: shelly.NominalGridVoltage,
		CurrentAmp:  2,
	}
	model := AggregatePhases(snapshot, domain.PhaseL1)
	assert.InDelta(0.1, model.L1.EnergyForwardKWh, 0.0001)
	assert.InDelta(0.1, model.TotalEnergyForwardKWh, 0.0001)
}

func TestAggregateZeroSnapshot(t *testing.T) {
	assert := assert.New(t)

	model := AggregatePhases(shelly.MeterSnapshot{EnergyUnit: shelly.WattHours}, domain.PhaseL1)
	assert.Equal(domain.InverterModel{}, model)
}
