package shelly

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

const gen1StatusBody = `{
	"wifi_sta": {"connected": true, "ssid": "lorem", "ip": "192.168.1.54", "rssi": -62},
	"mac": "E09806A1B2C3",
	"relays": [{"ison": true, "has_timer": false, "overpower": false, "source": "http"}],
	"meters": [{"power": 460.0, "overpower": 0.0, "is_valid": true, "timestamp": 1723540923, "counters": [461.2, 459.8, 460.1], "total": 6000}],
	"temperature": 41.3,
	"uptime": 53234
}`

const gen2SysStatusBody = `{
	"mac": "A8032ABE54DC",
	"restart_required": false,
	"time": "11:22",
	"uptime": 1213,
	"ram_size": 254968,
	"fs_free": 45062
}`

const gen2SwitchStatusBody = `{
	"id": 0,
	"source": "http",
	"output": true,
	"apower": 460.0,
	"voltage": 231.2,
	"current": 1.99,
	"aenergy": {"total": 1000, "by_minute": [512.3, 499.2, 507.7], "minute_ts": 1723540980},
	"temperature": {"tC": 38.1, "tF": 100.6}
}`

func testLogger() *zap.Logger {
	return zap.Must(zap.NewDevelopment())
}

func accessTo(server *httptest.Server) AccessConfig {
	u := server.Listener.Addr().String()
	return AccessConfig{Host: u}
}

func TestGen1Snapshot(t *testing.T) {

	assert := assert.New(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal("/status", r.URL.Path)
		w.Write([]byte(gen1StatusBody))
	}))
	defer server.Close()

	reader, err := CreateGen1MeterReader(accessTo(server), 0, 1*time.Second, testLogger(), nil)
	if err != nil {
		t.Error(err)
		return
	}

	snap, err := reader.GetMeterSnapshot()
	if err != nil {
		t.Error(err)
		return
	}

	assert.Equal(460.0, snap.PowerWatt)
	assert.Equal(230.0, snap.VoltageVolt)
	assert.Equal(2.0, snap.CurrentAmp, "current derived from power at nominal voltage")
	assert.Equal(WattMinutes, snap.EnergyUnit)
	assert.InDelta(0.1, snap.EnergyForwardKWh(), 1e-9, "6000 watt-minutes is 0.1 kWh")
}

func TestGen1Info(t *testing.T) {

	assert := assert.New(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(gen1StatusBody))
	}))
	defer server.Close()

	reader, err := CreateGen1MeterReader(accessTo(server), 0, 1*time.Second, testLogger(), nil)
	if err != nil {
		t.Error(err)
		return
	}

	info, err := reader.GetInfo()
	if err != nil {
		t.Error(err)
		return
	}

	assert.Equal("E09806A1B2C3", info.Serial)
	assert.Equal(VariantGen1, info.Variant)
}

func TestGen1MeterInputNotPresent(t *testing.T) {

	assert := assert.New(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(gen1StatusBody))
	}))
	defer server.Close()

	reader, err := CreateGen1MeterReader(accessTo(server), 3, 1*time.Second, testLogger(), nil)
	if err != nil {
		t.Error(err)
		return
	}

	_, err = reader.GetMeterSnapshot()
	var decodeErr *DecodeError
	assert.True(errors.As(err, &decodeErr), "missing meter input is a decode error")
}

func TestGen2Snapshot(t *testing.T) {

	assert := assert.New(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal("/rpc/Switch.GetStatus", r.URL.Path)
		assert.Equal("2", r.URL.Query().Get("id"), "meter input selects the switch id")
		w.Write([]byte(gen2SwitchStatusBody))
	}))
	defer server.Close()

	reader, err := CreateGen2MeterReader(accessTo(server), 2, 1*time.Second, testLogger(), nil)
	if err != nil {
		t.Error(err)
		return
	}

	snap, err := reader.GetMeterSnapshot()
	if err != nil {
		t.Error(err)
		return
	}

	assert.Equal(460.0, snap.PowerWatt, "reported power is not negated")
	assert.Equal(231.2, snap.VoltageVolt)
	assert.Equal(1.99, snap.CurrentAmp)
	assert.Equal(WattHours, snap.EnergyUnit)
	assert.InDelta(1.0, snap.EnergyForwardKWh(), 1e-9, "1000 watt-hours is 1 kWh")
}

func TestGen2Info(t *testing.T) {

	assert := assert.New(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal("/rpc/Sys.GetStatus", r.URL.Path)
		w.Write([]byte(gen2SysStatusBody))
	}))
	defer server.Close()

	reader, err := CreateGen2MeterReader(accessTo(server), 0, 1*time.Second, testLogger(), nil)
	if err != nil {
		t.Error(err)
		return
	}

	info, err := reader.GetInfo()
	if err != nil {
		t.Error(err)
		return
	}

	assert.Equal("A8032ABE54DC", info.Serial)
	assert.Equal(VariantGen2, info.Variant)
}

func TestTransportErrorOnStatus(t *testing.T) {

	assert := assert.New(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "device busy", http.StatusInternalServerError)
	}))
	defer server.Close()

	reader, err := CreateGen1MeterReader(accessTo(server), 0, 1*time.Second, testLogger(), nil)
	if err != nil {
		t.Error(err)
		return
	}

	_, err = reader.GetMeterSnapshot()
	var transportErr *TransportError
	assert.True(errors.As(err, &transportErr), "non-2xx is a transport error")
	assert.Equal(http.StatusInternalServerError, transportErr.StatusCode)
}

func TestTransportErrorOnConnectionFailure(t *testing.T) {

	assert := assert.New(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	access := accessTo(server)
	server.Close()

	reader, err := CreateGen2MeterReader(access, 0, 1*time.Second, testLogger(), nil)
	if err != nil {
		t.Error(err)
		return
	}

	_, err = reader.GetMeterSnapshot()
	var transportErr *TransportError
	assert.True(errors.As(err, &transportErr), "unreachable device is a transport error")
}

func TestDecodeErrorOnUnusableBody(t *testing.T) {

	assert := assert.New(t)

	for _, body := range []string{"", "null", "{}", "<html>not json</html>"} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		}))

		reader, err := CreateGen1MeterReader(accessTo(server), 0, 1*time.Second, testLogger(), nil)
		if err != nil {
			t.Error(err)
			server.Close()
			return
		}

		_, err = reader.GetMeterSnapshot()
		var decodeErr *DecodeError
		assert.True(errors.As(err, &decodeErr), "body %q is a decode error", body)
		server.Close()
	}
}

func TestClientAuthRequiresBothCredentials(t *testing.T) {

	assert := assert.New(t)

	var gotAuth []bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _, ok := r.BasicAuth()
		gotAuth = append(gotAuth, ok)
		w.Write([]byte(gen2SysStatusBody))
	}))
	defer server.Close()

	host := server.Listener.Addr().String()

	both, err := NewClient(AccessConfig{Host: host, Username: "admin", Password: "secret"}, 1*time.Second, nil)
	if err != nil {
		t.Error(err)
		return
	}
	var dest gen2SysStatus
	if err := both.GetJSON("rpc/Sys.GetStatus", nil, &dest); err != nil {
		t.Error(err)
		return
	}

	userOnly, err := NewClient(AccessConfig{Host: host, Username: "admin"}, 1*time.Second, nil)
	if err != nil {
		t.Error(err)
		return
	}
	if err := userOnly.GetJSON("rpc/Sys.GetStatus", nil, &dest); err != nil {
		t.Error(err)
		return
	}

	assert.Equal([]bool{true, false}, gotAuth, "credentials sent only when both are set")
}

func TestCreateMeterReaderVariants(t *testing.T) {

	assert := assert.New(t)

	access := AccessConfig{Host: "192.168.1.54"}

	gen1, err := CreateMeterReader(VariantGen1, access, 0, 1*time.Second, testLogger(), nil)
	assert.NoError(err)
	assert.IsType(&Gen1MeterReader{}, gen1)

	gen2, err := CreateMeterReader(VariantGen2, access, 0, 1*time.Second, testLogger(), nil)
	assert.NoError(err)
	assert.IsType(&Gen2MeterReader{}, gen2)

	_, err = CreateMeterReader("shellyem3", access, 0, 1*time.Second, testLogger(), nil)
	var variantErr *UnsupportedVariantError
	assert.True(errors.As(err, &variantErr), "unknown variant fails at construction")
}
