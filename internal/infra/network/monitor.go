// Package network watches the host's network interfaces and reports the
// connection type.
package network

import (
	"bufio"
	"context"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/edumarques81/stellar-offline-player/internal/domain/engine"
)

// Connection types.
const (
	TypeNone     = "none"
	TypeEthernet = "ethernet"
	TypeWifi     = "wifi"
)

// DefaultInterval is how often interfaces are polled.
const DefaultInterval = 10 * time.Second

// Status represents the current network connection status.
type Status struct {
	Type      string `json:"type"`      // "wifi", "ethernet", "none"
	Interface string `json:"interface"` // e.g. eth0, wlan0
	Signal    int    `json:"signal"`    // WiFi signal strength 0-100 (if wifi)
	Strength  int    `json:"strength"`  // Signal strength level 0-3 (for icon)
}

// Probe reads interface state from sysfs and procfs.
type Probe struct {
	fs         afero.Fs
	ethernet   []string
	wireless   []string
	sysNetPath string
	wirelessFn string
}

// NewProbe returns a probe reading the standard locations on fs.
func NewProbe(fs afero.Fs) *Probe {
	return &Probe{
		fs:         fs,
		ethernet:   []string{"eth0", "end0"},
		wireless:   []string{"wlan0", "wlan1"},
		sysNetPath: "/sys/class/net",
		wirelessFn: "/proc/net/wireless",
	}
}

// Status returns the current network connection status. Ethernet wins
// over Wi-Fi when both are up.
func (p *Probe) Status() Status {
	status := Status{Type: TypeNone}

	for _, iface := range p.ethernet {
		if p.read(iface, "carrier") == "1" {
			status.Type = TypeEthernet
			status.Interface = iface
			status.Signal = 100
			status.Strength = 3
			return status
		}
	}

	for _, iface := range p.wireless {
		if p.read(iface, "operstate") == "up" {
			status.Type = TypeWifi
			status.Interface = iface
			status.Signal = p.wifiSignal(iface)
			switch {
			case status.Signal >= 70:
				status.Strength = 3
			case status.Signal >= 50:
				status.Strength = 2
			case status.Signal >= 30:
				status.Strength = 1
			}
			return status
		}
	}

	return status
}

func (p *Probe) read(iface, attr string) string {
	data, err := afero.ReadFile(p.fs, path.Join(p.sysNetPath, iface, attr))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// wifiSignal returns the signal strength (0-100) from /proc/net/wireless.
func (p *Probe) wifiSignal(iface string) int {
	file, err := p.fs.Open(p.wirelessFn)
	if err != nil {
		return 0
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.Contains(line, iface+":") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			return 0
		}

		// Link quality is 0-70 in iwconfig units or already a percentage.
		if q, err := strconv.Atoi(strings.TrimSuffix(fields[2], ".")); err == nil {
			switch {
			case q > 0 && q <= 70:
				return q * 100 / 70
			case q > 70 && q <= 100:
				return q
			}
		}

		if dbm, err := strconv.Atoi(strings.TrimSuffix(fields[3], ".")); err == nil && dbm < 0 {
			return min(100, max(0, 2*(dbm+100)))
		}
		return 0
	}
	return 0
}

// Monitor polls a Probe and notifies subscribers when the connection type
// changes. It implements the engine's NetworkMonitor.
type Monitor struct {
	probe    *Probe
	interval time.Duration

	mu     sync.Mutex
	last   Status
	nextID int
	subs   map[int]func(engine.Network)
}

// NewMonitor creates a monitor. Call Run to start polling.
func NewMonitor(probe *Probe, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Monitor{
		probe:    probe,
		interval: interval,
		last:     probe.Status(),
		subs:     make(map[int]func(engine.Network)),
	}
}

// Current implements engine.NetworkMonitor.
func (m *Monitor) Current() engine.Network {
	return toNetwork(m.Status())
}

// Status returns the last observed status.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// Subscribe implements engine.NetworkMonitor.
func (m *Monitor) Subscribe(fn func(engine.Network)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

// Run polls until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	log.Info().Dur("interval", m.interval).Msg("Network watcher started")
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Network watcher stopped")
			return
		case <-ticker.C:
			m.Poll()
		}
	}
}

// Poll probes once and notifies subscribers if the connection type changed.
// It reports whether it did.
func (m *Monitor) Poll() bool {
	current := m.probe.Status()

	m.mu.Lock()
	previous := m.last
	m.last = current
	if current.Type == previous.Type {
		m.mu.Unlock()
		return false
	}
	subs := make([]func(engine.Network), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	log.Debug().
		Str("oldType", previous.Type).
		Str("newType", current.Type).
		Str("interface", current.Interface).
		Msg("Network status changed")

	n := toNetwork(current)
	for _, fn := range subs {
		fn(n)
	}
	return true
}

func toNetwork(s Status) engine.Network {
	return engine.Network{
		Connected: s.Type != TypeNone,
		Wifi:      s.Type == TypeWifi,
	}
}
