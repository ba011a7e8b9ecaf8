package events

import (
	"strings"

	"github.com/wurmreem/dbus-shelly-2pmPlus-pvinverter/internal/core/domain"
)

// FormatForPath resolves the text rendering of a path from its suffix.
func FormatForPath(path string) domain.TextFormat {
	switch {
	case strings.HasSuffix(path, "/Energy/Forward"):
		return domain.FormatKWh
	case strings.HasSuffix(path, "/Power"):
		return domain.FormatWatt
	case strings.HasSuffix(path, "/Voltage"):
		return domain.FormatVolt
	case strings.HasSuffix(path, "/Current"):
		return domain.FormatAmp
	default:
		return domain.FormatNone
	}
}

func PathValueUpdate(path string, value float64) domain.PathValueUpdateEvent {
	return domain.PathValueUpdateEvent{
		PathUpdateEventMixIn: domain.PathUpdateEventMixIn{Path: path},
		Value:                value,
		Text:                 domain.FormatText(FormatForPath(path), value),
	}
}

// PathValueUpdates turns the changed model values of one update cycle into
// bus events.
func PathValueUpdates(changed []domain.PathValue) []domain.PathValueUpdateEvent {
	updates := make([]domain.PathValueUpdateEvent, 0, len(changed))
	for _, pv := range changed {
		updates = append(updates, PathValueUpdate(pv.Path, pv.Value))
	}
	return updates
}

func UpdateIndexEvent(index uint8) domain.PathValueUpdateEvent {
	return domain.PathValueUpdateEvent{
		PathUpdateEventMixIn: domain.PathUpdateEventMixIn{Path: domain.PathUpdateIndex},
		Value:                index,
		Text:                 domain.FormatText(domain.FormatNone, index),
	}
}
