// Package config loads the receiver control plane's YAML configuration,
// grounded on the teacher's config.go: a nested struct tagged with yaml
// field names, loaded with gopkg.in/yaml.v3, with defaults filled in
// after unmarshalling and light validation before use.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cwsl/sdrctl/internal/sdrtype"
)

// Config is the top-level configuration document.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	DSP        DSPConfig        `yaml:"dsp"`
	Radiod     RadiodConfig     `yaml:"radiod"`
	Prometheus PrometheusConfig `yaml:"prometheus"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	MCP        MCPConfig        `yaml:"mcp"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig holds the gRPC listener settings.
type ServerConfig struct {
	Listen          string        `yaml:"listen"`            // e.g. "0.0.0.0:50050"
	WorkerQueueSize int           `yaml:"worker_queue_size"` // command queue depth, 0 = default; not read by the server (receiver.New always uses 256)
	ShutdownGrace   time.Duration `yaml:"shutdown_grace"`
}

// DSPConfig selects and configures the dsp.Receiver backend.
type DSPConfig struct {
	Driver           string `yaml:"driver"` // "sim" or "radiod"
	DefaultFftSize   uint32 `yaml:"default_fft_size"`
	DefaultFftWindow string `yaml:"default_fft_window"`
}

// RadiodConfig mirrors the teacher's RadiodConfig, reused verbatim by
// dsp/radiodriver to join the ka9q-radio multicast control/data groups.
type RadiodConfig struct {
	StatusGroup string `yaml:"status_group"`
	DataGroup   string `yaml:"data_group"`
	Interface   string `yaml:"interface"`
}

// PrometheusConfig controls the optional metrics endpoint.
type PrometheusConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
	Path    string `yaml:"path"`
}

// MQTTConfig controls the optional event-to-MQTT bridge.
type MQTTConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	QoS      byte   `yaml:"qos"`
}

// MCPConfig controls the optional MCP operator-tool server.
type MCPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// LoggingConfig controls the stdlib logger's verbosity and destination.
type LoggingConfig struct {
	Level string `yaml:"level"` // "debug", "info", "warn", "error"
	File  string `yaml:"file"`  // empty = stderr
}

// Load reads and parses filename, then fills in defaults the same way
// the teacher's LoadConfig does: only fields that unmarshal to their zero
// value get a default, since YAML can't distinguish "absent" from
// "explicitly zero" once decoded.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Listen == "" {
		c.Server.Listen = "0.0.0.0:50050"
	}
	if c.Server.WorkerQueueSize == 0 {
		c.Server.WorkerQueueSize = 256
	}
	if c.Server.ShutdownGrace == 0 {
		c.Server.ShutdownGrace = 5 * time.Second
	}
	if c.DSP.Driver == "" {
		c.DSP.Driver = "sim"
	}
	if c.DSP.DefaultFftSize == 0 {
		c.DSP.DefaultFftSize = 4096
	}
	if c.DSP.DefaultFftWindow == "" {
		c.DSP.DefaultFftWindow = "hann"
	}
	if c.Prometheus.Enabled && c.Prometheus.Listen == "" {
		c.Prometheus.Listen = ":9090"
	}
	if c.Prometheus.Enabled && c.Prometheus.Path == "" {
		c.Prometheus.Path = "/metrics"
	}
	if c.MCP.Enabled && c.MCP.Listen == "" {
		c.MCP.Listen = ":9091"
	}
	if c.MQTT.Enabled && c.MQTT.Topic == "" {
		c.MQTT.Topic = "sdrctl/events"
	}
	if c.MQTT.Enabled && c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "sdrctl-server"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate rejects configuration combinations the server cannot run with.
func (c *Config) Validate() error {
	if c.DSP.Driver != "sim" && c.DSP.Driver != "radiod" {
		return fmt.Errorf("dsp.driver must be \"sim\" or \"radiod\", got %q", c.DSP.Driver)
	}
	if c.DSP.Driver == "radiod" && c.Radiod.StatusGroup == "" {
		return fmt.Errorf("radiod.status_group is required when dsp.driver is \"radiod\"")
	}
	if _, err := FftWindowByName(c.DSP.DefaultFftWindow); err != nil {
		return err
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required when mqtt.enabled is true")
	}
	return nil
}

// fftWindowNames maps each accepted dsp.default_fft_window string to its
// sdrtype.WindowType; FftWindowByName looks names up here.
var fftWindowNames = map[string]sdrtype.WindowType{
	"rectangular":     sdrtype.WindowRectangular,
	"hamming":         sdrtype.WindowHamming,
	"hann":            sdrtype.WindowHann,
	"blackman":        sdrtype.WindowBlackman,
	"blackman_harris": sdrtype.WindowBlackmanHarris,
	"blackman_nuttall": sdrtype.WindowBlackmanNuttall,
	"nuttall":         sdrtype.WindowNuttall,
	"flattop":         sdrtype.WindowFlatTop,
	"bartlett":        sdrtype.WindowBartlett,
	"bartlett_hann":   sdrtype.WindowBartlettHann,
	"bohman":          sdrtype.WindowBohman,
	"cosine":          sdrtype.WindowCosine,
	"gaussian":        sdrtype.WindowGaussian,
	"kaiser":          sdrtype.WindowKaiser,
	"tukey":           sdrtype.WindowTukey,
	"welch":           sdrtype.WindowWelch,
}

// FftWindowByName resolves a config string to the matching WindowType.
func FftWindowByName(name string) (sdrtype.WindowType, error) {
	w, ok := fftWindowNames[name]
	if !ok {
		return 0, fmt.Errorf("unknown dsp.default_fft_window %q", name)
	}
	return w, nil
}
