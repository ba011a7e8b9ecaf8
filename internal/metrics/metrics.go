package metrics

import (
	"time"

	"github.com/wurmreem/dbus-shelly-2pmPlus-pvinverter/internal/core/domain"
	"github.com/wurmreem/dbus-shelly-2pmPlus-pvinverter/pkg/shelly"

	"github.com/prometheus/client_golang/prometheus"
)

// BridgeMetrics instruments the update cycle. All methods are nil-safe so
// actors can run without a registry in tests.
type BridgeMetrics struct {
	updateCycles      prometheus.Counter
	updateCycleErrors prometheus.Counter
	externalWrites    prometheus.Counter

	acPowerW           prometheus.Gauge
	acEnergyForwardKWh prometheus.Gauge
	updateIndex        prometheus.Gauge
	lastUpdate         prometheus.Gauge

	deviceRequestSeconds *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *BridgeMetrics {
	m := &BridgeMetrics{
		updateCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shellypv_update_cycles_total",
			Help: "Completed update cycles",
		}),
		updateCycleErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shellypv_update_cycle_errors_total",
			Help: "Update cycles that failed and left the model unchanged",
		}),
		externalWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shellypv_external_writes_total",
			Help: "Path writes received from the bus",
		}),
		acPowerW: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "shellypv_ac_power_watts",
			Help: "Published total AC power in watts",
		}),
		acEnergyForwardKWh: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "shellypv_ac_energy_forward_kwh",
			Help: "Published total forwarded energy (kWh)",
		}),
		updateIndex: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "shellypv_update_index",
			Help: "Current update index (wraps at 256)",
		}),
		lastUpdate: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "shellypv_last_update_timestamp_seconds",
			Help: "Last successful update cycle timestamp (epoch seconds)",
		}),
		deviceRequestSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shellypv_device_request_duration_seconds",
			Help:    "Device HTTP request duration by endpoint path",
			Buckets: prometheus.DefBuckets,
		}, []string{"path"}),
	}
	reg.MustRegister(
		m.updateCycles,
		m.updateCycleErrors,
		m.externalWrites,
		m.acPowerW,
		m.acEnergyForwardKWh,
		m.updateIndex,
		m.lastUpdate,
		m.deviceRequestSeconds,
	)
	return m
}

func (m *BridgeMetrics) RecordCycle(model domain.InverterModel, updateIndex uint8, at time.Time) {
	if m == nil {
		return
	}
	m.updateCycles.Inc()
	m.acPowerW.Set(model.TotalPowerWatt)
	m.acEnergyForwardKWh.Set(model.TotalEnergyForwardKWh)
	m.updateIndex.Set(float64(updateIndex))
	m.lastUpdate.Set(float64(at.Unix()))
}

func (m *BridgeMetrics) RecordCycleError() {
	if m == nil {
		return
	}
	m.updateCycleErrors.Inc()
}

func (m *BridgeMetrics) RecordExternalWrite() {
	if m == nil {
		return
	}
	m.externalWrites.Inc()
}

// HTTPInstrument adapts the request histogram to the device client hook.
func (m *BridgeMetrics) HTTPInstrument() *shelly.HTTPInstrument {
	if m == nil {
		return nil
	}
	return &shelly.HTTPInstrument{
		RecordTime: func(path string, requestTime time.Duration) {
			m.deviceRequestSeconds.WithLabelValues(path).Observe(requestTime.Seconds())
		},
	}
}
