package domain

import (
	"time"

	"github.com/wurmreem/dbus-shelly-2pmPlus-pvinverter/pkg/shelly"
)

const (
	ACTOR_ID_MASTER       = "master"
	ACTOR_ID_SHELLY       = "shelly"
	ACTOR_ID_UPDATER      = "updater"
	ACTOR_ID_MQTT         = "mqtt"
	ACTOR_ID_SIGN_OF_LIFE = "signoflife"
)

type GetDeviceInfoRequest struct {
	ActorRequestMixIn
}

type GetDeviceInfoResponse struct {
	ActorResponseMixIn
	Info *shelly.DeviceInfo
}

type GetMeterSnapshotRequest struct {
	ActorRequestMixIn
}

type GetMeterSnapshotResponse struct {
	ActorResponseMixIn
	Snapshot *shelly.MeterSnapshot
}

type GetModelRequest struct {
	ActorRequestMixIn
}

type GetModelResponse struct {
	ActorResponseMixIn
	Model       InverterModel
	UpdateIndex uint8
	LastUpdate  time.Time
	Serial      string
}

// RegisterPathsRequest asks the bus adapter to announce the full path tree
// of the service, initial values included.
type RegisterPathsRequest struct {
	ActorRequestMixIn
	Paths []PathSpec
}

// ExternalPathWrite is a value written to one of the service paths from
// the bus side.
type ExternalPathWrite struct {
	Path  string
	Value float64
}

type ActorHealthRequest struct {
	ActorRequestMixIn
}

type ActorHealthResponse struct {
	ActorResponseMixIn
	Id      string
	Healthy bool
	State   string
}
