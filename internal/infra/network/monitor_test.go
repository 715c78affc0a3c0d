package network_test

import (
	"testing"

	"github.com/spf13/afero"

	"github.com/edumarques81/stellar-offline-player/internal/domain/engine"
	"github.com/edumarques81/stellar-offline-player/internal/infra/network"
)

const wireless = `Inter-| sta-|   Quality        |   Discarded packets
 face | tus | link level noise |  nwid  crypt   frag  retry   misc | beacon | 22
 wlan0: 0000   56.  -54.  -256        0      0      0      0      0        0
`

func write(t *testing.T, fs afero.Fs, name, content string) {
	t.Helper()
	if err := afero.WriteFile(fs, name, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
}

func TestProbeStatus(t *testing.T) {
	tests := []struct {
		name         string
		files        map[string]string
		wantType     string
		wantStrength int
	}{
		{"nothing", nil, network.TypeNone, 0},
		{"ethernet", map[string]string{"/sys/class/net/eth0/carrier": "1\n"}, network.TypeEthernet, 3},
		{"ethernet down", map[string]string{"/sys/class/net/eth0/carrier": "0\n"}, network.TypeNone, 0},
		{"wifi", map[string]string{
			"/sys/class/net/wlan0/operstate": "up\n",
			"/proc/net/wireless":             wireless,
		}, network.TypeWifi, 3},
		{"ethernet wins", map[string]string{
			"/sys/class/net/end0/carrier":    "1",
			"/sys/class/net/wlan0/operstate": "up",
		}, network.TypeEthernet, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			for name, content := range tt.files {
				write(t, fs, name, content)
			}
			s := network.NewProbe(fs).Status()
			if s.Type != tt.wantType || s.Strength != tt.wantStrength {
				t.Errorf("expected %s/%d, got %s/%d", tt.wantType, tt.wantStrength, s.Type, s.Strength)
			}
		})
	}
}

func TestWifiSignal(t *testing.T) {
	fs := afero.NewMemMapFs()
	write(t, fs, "/sys/class/net/wlan0/operstate", "up")
	write(t, fs, "/proc/net/wireless", wireless)

	if s := network.NewProbe(fs).Status(); s.Signal != 80 {
		t.Errorf("expected signal 80, got %d", s.Signal)
	}
}

func TestMonitorNotifiesOnTypeChange(t *testing.T) {
	fs := afero.NewMemMapFs()
	m := network.NewMonitor(network.NewProbe(fs), 0)

	var got []engine.Network
	cancel := m.Subscribe(func(n engine.Network) { got = append(got, n) })

	if m.Poll() {
		t.Error("expected no change")
	}

	write(t, fs, "/sys/class/net/wlan0/operstate", "up")
	if !m.Poll() {
		t.Fatal("expected change to wifi")
	}
	if len(got) != 1 || !got[0].Connected || !got[0].Wifi {
		t.Errorf("expected wifi notification, got %+v", got)
	}
	if c := m.Current(); !c.Wifi {
		t.Errorf("expected current wifi, got %+v", c)
	}

	cancel()
	write(t, fs, "/sys/class/net/eth0/carrier", "1")
	if !m.Poll() {
		t.Fatal("expected change to ethernet")
	}
	if len(got) != 1 {
		t.Errorf("expected no notification after cancel, got %d", len(got))
	}
}
