package intc

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// routingFile is the YAML schema for a declarative interrupt routing.
//
//	events:
//	  - sysevt: 19
//	    channel: 2
//	hosts:
//	  - channel: 2
//	    host: 2
//
// Entries are enabled unless they carry "enable: false".
type routingFile struct {
	Events []routingEvent `yaml:"events"`
	Hosts  []routingHost  `yaml:"hosts"`
}

type routingEvent struct {
	Sysevt  uint8 `yaml:"sysevt"`
	Channel uint8 `yaml:"channel"`
	Enable  *bool `yaml:"enable,omitempty"`
}

type routingHost struct {
	Channel uint8 `yaml:"channel"`
	Host    uint8 `yaml:"host"`
	Enable  *bool `yaml:"enable,omitempty"`
}

// ParseConfig builds a Config from YAML routing data. File content is user
// input, so violations that panic in the Config setters are reported as
// errors here.
func ParseConfig(data []byte) (*Config, error) {
	var file routingFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse routing: %w", err)
	}

	evtMap := make([]SysevtToChannel, 0, len(file.Events))
	evtEnable := make([]Sysevt, 0, len(file.Events))
	seenEvts := bitfield{width: NumSysevts}
	for _, e := range file.Events {
		if e.Sysevt >= NumSysevts {
			return nil, fmt.Errorf("routing: system event %d out of range", e.Sysevt)
		}
		if e.Channel >= NumChannels {
			return nil, fmt.Errorf("routing: channel %d out of range", e.Channel)
		}
		if !seenEvts.trySet(e.Sysevt) {
			return nil, fmt.Errorf("routing: system event %d assigned twice", e.Sysevt)
		}
		evtMap = append(evtMap, SysevtToChannel{Sysevt(e.Sysevt), Channel(e.Channel)})
		if e.Enable == nil || *e.Enable {
			evtEnable = append(evtEnable, Sysevt(e.Sysevt))
		}
	}

	hostMap := make([]ChannelToHost, 0, len(file.Hosts))
	hostEnable := make([]Host, 0, len(file.Hosts))
	seenChans := bitfield{width: NumChannels}
	seenHosts := bitfield{width: NumHosts}
	for _, h := range file.Hosts {
		if h.Channel >= NumChannels {
			return nil, fmt.Errorf("routing: channel %d out of range", h.Channel)
		}
		if h.Host >= NumHosts {
			return nil, fmt.Errorf("routing: host interrupt %d out of range", h.Host)
		}
		if !seenChans.trySet(h.Channel) {
			return nil, fmt.Errorf("routing: channel %d assigned twice", h.Channel)
		}
		if h.Enable == nil || *h.Enable {
			if !seenHosts.trySet(h.Host) {
				return nil, fmt.Errorf("routing: host interrupt %d enabled twice", h.Host)
			}
			hostEnable = append(hostEnable, Host(h.Host))
		}
		hostMap = append(hostMap, ChannelToHost{Channel(h.Channel), Host(h.Host)})
	}

	c := NewConfig()
	c.MapSysevtsToChannels(evtMap)
	c.MapChannelsToHosts(hostMap)
	c.EnableSysevts(evtEnable)
	c.EnableHosts(hostEnable)
	return c, nil
}

// LoadConfigFile reads a YAML routing file.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read routing file: %w", err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}
