package socketio

import (
	"os"
	"strings"

	"github.com/spf13/afero"

	"github.com/edumarques81/stellar-offline-player/internal/version"
)

// SystemInfo represents basic system information.
type SystemInfo struct {
	ID            string `json:"id"`            // Player ID
	Host          string `json:"host"`          // Hostname
	Name          string `json:"name"`          // Display name
	Type          string `json:"type"`          // Device type
	ServiceName   string `json:"serviceName"`   // Service name for mDNS
	SystemVersion string `json:"systemversion"` // System version
	BuildDate     string `json:"builddate"`     // Build date
	Hardware      string `json:"hardware"`      // Hardware model
}

// GetSystemInfo returns basic system information. The hardware model is
// read from /proc/cpuinfo on fs when present.
func GetSystemInfo(fs afero.Fs, playerID string) SystemInfo {
	v := version.GetInfo()
	info := SystemInfo{
		ID:            playerID,
		Type:          "audio_player",
		ServiceName:   "stellar",
		SystemVersion: v.Version,
		BuildDate:     v.BuildTime,
		Hardware:      "unknown",
	}

	if hostname, err := os.Hostname(); err == nil {
		info.Host = hostname
		info.Name = hostname
	}
	if info.ID == "" {
		info.ID = info.Host
	}

	if fs == nil {
		return info
	}
	data, err := afero.ReadFile(fs, "/proc/cpuinfo")
	if err != nil {
		return info
	}
	for _, line := range strings.Split(string(data), "\n") {
		if !strings.HasPrefix(line, "Model") {
			continue
		}
		if _, model, ok := strings.Cut(line, ":"); ok {
			info.Hardware = strings.TrimSpace(model)
			break
		}
	}
	return info
}
