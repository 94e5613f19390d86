//go:build !linux

package capture

import (
	"context"
	"log/slog"

	"github.com/nmurali/signbridge/internal/logging"
)

// DeviceEvent describes a camera being attached to or removed from the
// system.
type DeviceEvent struct {
	Action string
	Node   string
}

// Monitor is a no-op on platforms without udev.
type Monitor struct {
	logger *slog.Logger
}

// NewMonitor creates a hotplug monitor. The handler is never called on
// this platform.
func NewMonitor(logger *slog.Logger, _ func(DeviceEvent)) *Monitor {
	return &Monitor{logger: logging.WithComponent(logger, "hotplug")}
}

func (m *Monitor) Start(context.Context) error {
	m.logger.Debug("camera hotplug monitoring is unavailable on this platform")
	return nil
}

func (m *Monitor) Stop() {}

func (m *Monitor) Running() bool { return false }
