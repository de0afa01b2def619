// Package config handles gatekit configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// searchPathsFunc is overridden in tests to avoid picking up real config
// files from the host running the test suite.
var searchPathsFunc = DefaultSearchPaths

// DefaultSearchPaths returns the config file search order: ./config.yaml,
// ~/.config/gatekit/config.yaml, /config/config.yaml, /etc/gatekit/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "gatekit", "config.yaml"))
	}

	paths = append(paths, "/config/config.yaml") // Container convention
	paths = append(paths, "/etc/gatekit/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must
// exist. Otherwise, searches searchPathsFunc() and returns the first path
// that exists.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	paths := searchPathsFunc()
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", paths)
}

// Config holds all gatekit configuration: spec.md §6's enumerated
// configuration surface, plus the snowflake and audit fields this
// expansion introduces.
type Config struct {
	ConnectHost string `yaml:"connect_host"`
	ConnectPort int    `yaml:"connect_port"`

	WorkQueueLen     int `yaml:"work_queue_len"`     // event queue size; action queue = 3x
	PriorityQueueLen int `yaml:"priority_queue_len"` // priority event queue size; action = 3x

	LogLevel string `yaml:"log_level"`

	TaskTimeoutSec   int `yaml:"task_timeout"`   // per-handler seconds
	CooldownTimeSec  int `yaml:"cooldown_time"`  // inter-action seconds
	WorkingTimeSec   int `yaml:"working_time"`   // total run seconds; <=0 means unbounded
	KernelTimeoutSec int `yaml:"kernel_timeout"` // bound on queue-put backpressure waits

	Owner          int64   `yaml:"owner"`
	SuperUser      []int64 `yaml:"super_user"`
	WhiteList      []int64 `yaml:"white_list"`
	BlackList      []int64 `yaml:"black_list"`
	WhiteGroupList []int64 `yaml:"white_group_list"`

	BotName      string   `yaml:"bot_name"`
	CommandStart []string `yaml:"command_start"`
	CommandSep   []string `yaml:"command_sep"`

	// PriorityCommandStart is the alternate start-prefix set that marks an
	// invocation as priority (spec.md §4.2's is_priority variant).
	PriorityCommandStart []string `yaml:"priority_command_start"`

	// SnowflakeDatacenterID / SnowflakeWorkerID seed the echo-id generator
	// (spec.md §6's snowflake bit layout).
	SnowflakeDatacenterID int64 `yaml:"snowflake_datacenter_id"`
	SnowflakeWorkerID     int64 `yaml:"snowflake_worker_id"`

	// AuditDBPath is where the diagnostic dispatch-decision log lives.
	AuditDBPath string `yaml:"audit_db_path"`

	// FuzzyDictPath, if set, points at a YAML file of keyword->answer
	// fuzzy-match rules loaded at startup (spec.md §4.7 step 4b).
	FuzzyDictPath string `yaml:"fuzzy_dict_path"`
}

// TaskTimeout returns the configured per-handler timeout as a Duration.
func (c *Config) TaskTimeout() time.Duration {
	return time.Duration(c.TaskTimeoutSec) * time.Second
}

// CooldownTime returns the configured inter-action send delay.
func (c *Config) CooldownTime() time.Duration {
	return time.Duration(c.CooldownTimeSec) * time.Second
}

// KernelTimeout returns the configured queue-put backpressure bound.
func (c *Config) KernelTimeout() time.Duration {
	return time.Duration(c.KernelTimeoutSec) * time.Second
}

// WorkingTime returns the configured total run duration, and ok=false
// when working_time <= 0 (spec.md §9's open question: unbounded).
func (c *Config) WorkingTime() (d time.Duration, ok bool) {
	if c.WorkingTimeSec <= 0 {
		return 0, false
	}
	return time.Duration(c.WorkingTimeSec) * time.Second, true
}

// ConnectURL builds the gateway websocket URL from host/port.
func (c *Config) ConnectURL() string {
	return fmt.Sprintf("ws://%s:%d", c.ConnectHost, c.ConnectPort)
}

// Load reads configuration from a YAML file, expands environment
// variables, applies defaults for any unset fields, and validates the
// result. After Load returns successfully, all fields are usable without
// additional nil/empty checks.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g. ${GATEKIT_OWNER_ID}). Convenience
	// for container deployments; values can also just live in the file.
	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// applyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) applyDefaults() {
	if c.ConnectHost == "" {
		c.ConnectHost = "127.0.0.1"
	}
	if c.ConnectPort == 0 {
		c.ConnectPort = 6700
	}
	if c.WorkQueueLen == 0 {
		c.WorkQueueLen = 100
	}
	if c.PriorityQueueLen == 0 {
		c.PriorityQueueLen = 20
	}
	if c.TaskTimeoutSec == 0 {
		c.TaskTimeoutSec = 30
	}
	if c.KernelTimeoutSec == 0 {
		c.KernelTimeoutSec = 5
	}
	if len(c.CommandStart) == 0 {
		c.CommandStart = []string{"/"}
	}
	if len(c.PriorityCommandStart) == 0 {
		c.PriorityCommandStart = []string{"//"}
	}
	if len(c.CommandSep) == 0 {
		// Whitespace is a forbidden separator character (parser.go), so
		// the default must be something else; spec.md's own worked
		// examples use "#".
		c.CommandSep = []string{"#"}
	}
	if c.BotName == "" {
		c.BotName = "gatekit"
	}
	if c.AuditDBPath == "" {
		c.AuditDBPath = "./data/audit.db"
	}
}

// Validate checks that the configuration is internally consistent. It
// runs after applyDefaults, so it can assume defaults are populated.
func (c *Config) Validate() error {
	if c.ConnectPort < 1 || c.ConnectPort > 65535 {
		return fmt.Errorf("connect_port %d out of range (1-65535)", c.ConnectPort)
	}
	if c.WorkQueueLen < 1 {
		return fmt.Errorf("work_queue_len must be >= 1, got %d", c.WorkQueueLen)
	}
	if c.PriorityQueueLen < 1 {
		return fmt.Errorf("priority_queue_len must be >= 1, got %d", c.PriorityQueueLen)
	}
	if c.TaskTimeoutSec <= 0 {
		return fmt.Errorf("task_timeout must be > 0, got %d", c.TaskTimeoutSec)
	}
	if len(c.CommandStart) == 0 {
		return fmt.Errorf("command_start must be non-empty")
	}
	if len(c.CommandSep) == 0 {
		return fmt.Errorf("command_sep must be non-empty")
	}
	if c.LogLevel != "" {
		if _, err := ParseLogLevel(c.LogLevel); err != nil {
			return err
		}
	}
	return nil
}

// Default returns a default configuration suitable for local development
// against a gateway listening on localhost. All defaults are applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}
