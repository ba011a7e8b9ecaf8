package server

import (
	"net/http"
	"time"

	"github.com/wurmreem/dbus-shelly-2pmPlus-pvinverter/internal/core/domain"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	if s.httpLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())

	e.GET("/healthcheck", s.HealthCheckHandler)
	e.GET("/model", s.ModelHandler)
	if s.registry != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))
	}

	return e
}

func (s *Server) HealthCheckHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.ActorHealthRequest{}, 10*time.Second).Result()
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
	}
	if response, ok := res.(domain.ActorHealthResponse); ok && response.Healthy {
		return c.String(http.StatusOK, "health_check: OK")
	}
	return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
}

type phaseResponse struct {
	Voltage       float64 `json:"voltage"`
	Current       float64 `json:"current"`
	Power         float64 `json:"power"`
	EnergyForward float64 `json:"energy_forward"`
}

type modelResponse struct {
	Serial             string        `json:"serial"`
	UpdateIndex        uint8         `json:"update_index"`
	LastUpdate         time.Time     `json:"last_update"`
	L1                 phaseResponse `json:"l1"`
	L2                 phaseResponse `json:"l2"`
	L3                 phaseResponse `json:"l3"`
	TotalPower         float64       `json:"total_power"`
	TotalEnergyForward float64       `json:"total_energy_forward"`
}

func (s *Server) ModelHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.GetModelRequest{}, 2*time.Second).Result()
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "model: FAIL")
	}
	response, ok := res.(domain.GetModelResponse)
	if !ok {
		return c.String(http.StatusServiceUnavailable, "model: FAIL")
	}
	return c.JSON(http.StatusOK, toModelResponse(response))
}

func toModelResponse(res domain.GetModelResponse) modelResponse {
	return modelResponse{
		Serial:             res.Serial,
		UpdateIndex:        res.UpdateIndex,
		LastUpdate:         res.LastUpdate,
		L1:                 toPhaseResponse(res.Model.L1),
		L2:                 toPhaseResponse(res.Model.L2),
		L3:                 toPhaseResponse(res.Model.L3),
		TotalPower:         res.Model.TotalPowerWatt,
		TotalEnergyForward: res.Model.TotalEnergyForwardKWh,
	}
}

func toPhaseResponse(reading domain.PhaseReading) phaseResponse {
	return phaseResponse{
		Voltage:       reading.VoltageVolt,
		Current:       reading.CurrentAmp,
		Power:         reading.PowerWatt,
		EnergyForward: reading.EnergyForwardKWh,
	}
}
