package intc

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

const sampleRouting = `
events:
  - sysevt: 19
    channel: 2
  - sysevt: 21
    channel: 0
    enable: false
hosts:
  - channel: 2
    host: 2
  - channel: 0
    host: 0
    enable: false
`

func TestParseConfig(t *testing.T) {
	c, err := ParseConfig([]byte(sampleRouting))
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}

	wantEvts := []SysevtToChannel{
		{Sysevt19, Channel2},
		{Sysevt21, Channel0},
	}
	if !slices.Equal(c.sysevtToChannel, wantEvts) {
		t.Errorf("sysevtToChannel = %v, want %v", c.sysevtToChannel, wantEvts)
	}
	wantHosts := []ChannelToHost{
		{Channel2, HostEvtout0},
		{Channel0, HostPru0},
	}
	if !slices.Equal(c.channelToHost, wantHosts) {
		t.Errorf("channelToHost = %v, want %v", c.channelToHost, wantHosts)
	}

	// Entries marked enable: false are routed but not enabled.
	if want := []Sysevt{Sysevt19}; !slices.Equal(c.sysevtEnable, want) {
		t.Errorf("sysevtEnable = %v, want %v", c.sysevtEnable, want)
	}
	if want := []Host{HostEvtout0}; !slices.Equal(c.hostEnable, want) {
		t.Errorf("hostEnable = %v, want %v", c.hostEnable, want)
	}
}

func TestParseConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		routing string
		want    string
	}{
		{
			name:    "not yaml",
			routing: "events: {{",
			want:    "parse routing",
		},
		{
			name: "event out of range",
			routing: `
events:
  - sysevt: 64
    channel: 0
`,
			want: "system event 64 out of range",
		},
		{
			name: "channel out of range",
			routing: `
events:
  - sysevt: 1
    channel: 10
`,
			want: "channel 10 out of range",
		},
		{
			name: "event assigned twice",
			routing: `
events:
  - sysevt: 19
    channel: 0
  - sysevt: 19
    channel: 1
`,
			want: "system event 19 assigned twice",
		},
		{
			name: "channel assigned twice",
			routing: `
hosts:
  - channel: 3
    host: 0
  - channel: 3
    host: 1
`,
			want: "channel 3 assigned twice",
		},
		{
			name: "host out of range",
			routing: `
hosts:
  - channel: 0
    host: 10
`,
			want: "host interrupt 10 out of range",
		},
		{
			name: "host enabled twice",
			routing: `
hosts:
  - channel: 0
    host: 4
  - channel: 1
    host: 4
`,
			want: "host interrupt 4 enabled twice",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.routing))
			if err == nil {
				t.Fatal("ParseConfig() = nil error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("ParseConfig() error = %q, want substring %q", err, tt.want)
			}
		})
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routing.yaml")
	if err := os.WriteFile(path, []byte(sampleRouting), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile() error = %v", err)
	}
	if len(c.sysevtToChannel) != 2 || len(c.channelToHost) != 2 {
		t.Errorf("loaded %d event and %d host mappings, want 2 and 2", len(c.sysevtToChannel), len(c.channelToHost))
	}

	if _, err := LoadConfigFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("LoadConfigFile() on a missing file: want error")
	}
}
