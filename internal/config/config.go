// Package config holds the client configuration: the coordinator endpoint
// and the ICE servers used when creating peer connections.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pion/webrtc/v4"
	"gopkg.in/yaml.v3"
)

// ICEServer describes one STUN or TURN server. TURN entries carry credentials.
type ICEServer struct {
	URLs       []string `yaml:"urls"`
	Username   string   `yaml:"username,omitempty"`
	Credential string   `yaml:"credential,omitempty"`
}

// Config stores all parameters consumed by the call client. Room and Name may
// also come from CLI flags or interactive prompts; the file only provides
// defaults.
type Config struct {
	ServerURL  string      `yaml:"serverURL"`
	Room       string      `yaml:"room,omitempty"`
	Name       string      `yaml:"name,omitempty"`
	ICEServers []ICEServer `yaml:"iceServers"`
}

// Default returns a configuration with public Google STUN servers and no
// coordinator endpoint.
func Default() *Config {
	return &Config{
		ICEServers: []ICEServer{
			{URLs: []string{
				"stun:stun.l.google.com:19302",
				"stun:stun1.l.google.com:19302",
			}},
		},
	}
}

// Load reads a YAML configuration file on top of the defaults and validates
// the result. A missing iceServers section keeps the default STUN entries.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the ICE server list: at least one STUN entry is required,
// and TURN entries must carry credentials.
func (c *Config) Validate() error {
	hasSTUN := false
	for _, srv := range c.ICEServers {
		if len(srv.URLs) == 0 {
			return fmt.Errorf("ICE server entry with no urls")
		}
		for _, u := range srv.URLs {
			switch {
			case strings.HasPrefix(u, "stun:"), strings.HasPrefix(u, "stuns:"):
				hasSTUN = true
			case strings.HasPrefix(u, "turn:"), strings.HasPrefix(u, "turns:"):
				if srv.Username == "" || srv.Credential == "" {
					return fmt.Errorf("TURN server %s requires username and credential", u)
				}
			default:
				return fmt.Errorf("unsupported ICE server URL %q", u)
			}
		}
	}
	if !hasSTUN {
		return fmt.Errorf("at least one STUN server is required")
	}
	return nil
}

// WebRTCConfig maps the ICE server list, in order, onto a pion Configuration.
func (c *Config) WebRTCConfig() webrtc.Configuration {
	servers := make([]webrtc.ICEServer, 0, len(c.ICEServers))
	for _, srv := range c.ICEServers {
		servers = append(servers, webrtc.ICEServer{
			URLs:       srv.URLs,
			Username:   srv.Username,
			Credential: srv.Credential,
		})
	}
	return webrtc.Configuration{ICEServers: servers}
}
