//go:build linux

package capture

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/pilebones/go-udev/netlink"

	"github.com/nmurali/signbridge/internal/logging"
)

// DeviceEvent describes a camera being attached to or removed from the
// system.
type DeviceEvent struct {
	Action string
	Node   string
}

// Monitor watches udev netlink for video4linux hotplug events so the
// dashboard can tell the user when a camera appears or disappears.
// Hotplug monitoring is best effort: a failed netlink connection is
// logged and the rest of the app keeps working.
type Monitor struct {
	logger  *slog.Logger
	handler func(DeviceEvent)

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
}

// NewMonitor creates a hotplug monitor delivering events to handler.
func NewMonitor(logger *slog.Logger, handler func(DeviceEvent)) *Monitor {
	return &Monitor{
		logger:  logging.WithComponent(logger, "hotplug"),
		handler: handler,
	}
}

// Start begins listening for udev events. A netlink connection failure
// is non-fatal; the monitor simply stays off.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		m.logger.Warn("failed to connect to netlink socket, camera hotplug events unavailable",
			logging.Err(err))
		return nil
	}

	m.conn = conn
	m.quit = make(chan struct{})
	m.running = true

	quit := m.quit
	go m.loop(ctx, quit)

	m.logger.Info("camera hotplug monitor started")
	return nil
}

// Stop shuts the monitor down.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	if m.quit != nil {
		close(m.quit)
		m.quit = nil
	}
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.running = false
	m.logger.Info("camera hotplug monitor stopped")
}

// Running reports whether the monitor is active.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Monitor) loop(ctx context.Context, quit <-chan struct{}) {
	queue := make(chan netlink.UEvent)
	errs := make(chan error)

	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return
	}

	monitorQuit := conn.Monitor(queue, errs, videoMatcher())

	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-queue:
			m.handleEvent(uevent)
		case err := <-errs:
			m.logger.Warn("hotplug monitor error", logging.Err(err))
		}
	}
}

// videoMatcher matches add and remove events for video4linux devices.
func videoMatcher() netlink.Matcher {
	action := "add|remove"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "video4linux",
		},
	})
	return rules
}

func (m *Monitor) handleEvent(uevent netlink.UEvent) {
	node := deviceNode(uevent)
	if node == "" {
		return
	}

	event := DeviceEvent{Action: string(uevent.Action), Node: node}
	m.logger.Info("camera hotplug event",
		slog.String("action", event.Action), slog.String("node", event.Node))

	if m.handler != nil {
		m.handler(event)
	}
}

// deviceNode extracts the device node from a uevent, falling back to
// the last DEVPATH segment when DEVNAME is absent.
func deviceNode(uevent netlink.UEvent) string {
	if devname := uevent.Env["DEVNAME"]; devname != "" {
		if strings.HasPrefix(devname, "/") {
			return devname
		}
		return "/dev/" + devname
	}

	devpath := uevent.Env["DEVPATH"]
	if devpath == "" {
		return ""
	}
	parts := strings.Split(devpath, "/")
	return "/dev/" + parts[len(parts)-1]
}
