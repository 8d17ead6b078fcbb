// Package config loads the daemon's TOML configuration file, applying the
// documented default for every omitted key and merging the unit conversion
// table over the built-in defaults.
package config

import (
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/ProjectRunspace/xlatnagiosdata/internal/logwriter"
	"github.com/ProjectRunspace/xlatnagiosdata/internal/units"
)

// Package and path constants shared across the daemon.
const (
	PackageName          = "xlatnagiosdata"
	AppName              = PackageName + "d"
	DefaultConfigFile    = "/etc/" + PackageName + "/" + AppName + ".toml"
	LogRootPath          = "/var/log/" + PackageName
	DaemonLogFileName    = "daemon.log"
	DaemonLockFileName   = "daemon.lock"
	FailedWritesFileName = "failed_writes.log"
	LockRootPath         = "/var/run/" + PackageName
)

// Defaults for every optional key.
const (
	DefaultDataReadDelay        = 30
	DefaultLogLevel             = "info"
	DefaultInfluxHostName       = "localhost"
	DefaultInfluxPort           = 8086
	DefaultInfluxDatabaseName   = "nagiosrecords"
	DefaultInfluxMeasurement    = "perfdata"
	DefaultNagiosSpoolDirectory = "/usr/local/nagios/var/spool/" + PackageName
	DefaultMetricsListenAddress = "127.0.0.1:9106"
)

// Config is one fully resolved configuration. Load returns a fresh instance
// on every call; the daemon swaps its held pointer only after a successful
// parse, so a malformed reload leaves the previous configuration active.
type Config struct {
	DataReadDelay int

	LoggingEnabled   bool
	LogLevel         logwriter.Level
	SaveFailedWrites bool
	FallbackToSyslog bool

	InfluxHostName        string
	InfluxPort            int
	InfluxDatabaseName    string
	InfluxMeasurementName string

	NagiosSpoolDirectory string

	MetricsListenAddress string

	UnitConversionMap units.Map
}

// fileConfig mirrors the on-disk TOML shape; pointer fields distinguish an
// omitted key from an explicit zero value.
type fileConfig struct {
	Daemon struct {
		Delay *int `toml:"delay"`
	} `toml:"daemon"`
	Logging struct {
		Enabled              *bool  `toml:"enabled"`
		Level                string `toml:"level"`
		SaveFailedWrites     *bool  `toml:"save_failed_writes"`
		FailedWritesFallback *bool  `toml:"failed_writes_fallback"`
	} `toml:"logging"`
	Influx struct {
		Host        string `toml:"host"`
		Port        *int   `toml:"port"`
		Database    string `toml:"database"`
		Measurement string `toml:"measurement"`
	} `toml:"influx"`
	Nagios struct {
		SpoolDirectory string `toml:"spool_directory"`
	} `toml:"nagios"`
	Metrics struct {
		ListenAddress *string `toml:"listen_address"`
	} `toml:"metrics"`
	UnitConversionMap map[string]string `toml:"unit_conversion_map"`
}

// Default returns the configuration an absent file resolves to.
func Default() *Config {
	return &Config{
		DataReadDelay:         DefaultDataReadDelay,
		LoggingEnabled:        true,
		LogLevel:              logwriter.LevelInfo,
		SaveFailedWrites:      true,
		FallbackToSyslog:      true,
		InfluxHostName:        DefaultInfluxHostName,
		InfluxPort:            DefaultInfluxPort,
		InfluxDatabaseName:    DefaultInfluxDatabaseName,
		InfluxMeasurementName: DefaultInfluxMeasurement,
		NagiosSpoolDirectory:  DefaultNagiosSpoolDirectory,
		MetricsListenAddress:  DefaultMetricsListenAddress,
		UnitConversionMap:     units.Defaults(),
	}
}

// Load reads and resolves the configuration at path. A missing file yields
// the defaults; a present but unparsable file yields an error and no
// Config.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}

	var parsed fileConfig
	if err := toml.Unmarshal(raw, &parsed); err != nil {
		return nil, err
	}

	cfg := Default()
	if parsed.Daemon.Delay != nil && *parsed.Daemon.Delay > 0 {
		cfg.DataReadDelay = *parsed.Daemon.Delay
	}
	if parsed.Logging.Enabled != nil {
		cfg.LoggingEnabled = *parsed.Logging.Enabled
	}
	if level, ok := logwriter.ParseLevel(parsed.Logging.Level); ok {
		cfg.LogLevel = level
	}
	if parsed.Logging.SaveFailedWrites != nil {
		cfg.SaveFailedWrites = *parsed.Logging.SaveFailedWrites
	}
	if parsed.Logging.FailedWritesFallback != nil {
		cfg.FallbackToSyslog = *parsed.Logging.FailedWritesFallback
	}
	if parsed.Influx.Host != "" {
		cfg.InfluxHostName = parsed.Influx.Host
	}
	if parsed.Influx.Port != nil && *parsed.Influx.Port > 0 {
		cfg.InfluxPort = *parsed.Influx.Port
	}
	if parsed.Influx.Database != "" {
		cfg.InfluxDatabaseName = parsed.Influx.Database
	}
	if parsed.Influx.Measurement != "" {
		cfg.InfluxMeasurementName = parsed.Influx.Measurement
	}
	if parsed.Nagios.SpoolDirectory != "" {
		cfg.NagiosSpoolDirectory = parsed.Nagios.SpoolDirectory
	}
	if parsed.Metrics.ListenAddress != nil {
		cfg.MetricsListenAddress = *parsed.Metrics.ListenAddress
	}
	if len(parsed.UnitConversionMap) > 0 {
		cfg.UnitConversionMap = cfg.UnitConversionMap.Merge(parsed.UnitConversionMap)
	}
	return cfg, nil
}

// NewLogWriter builds the process log writer the configuration asks for: a
// passive writer when logging is disabled, otherwise an active writer with
// the upload-error sidecar enabled per save_failed_writes.
func NewLogWriter(cfg *Config) logwriter.Writer {
	if !cfg.LoggingEnabled {
		return logwriter.NewPassive()
	}
	failedWritesFileName := ""
	if cfg.SaveFailedWrites {
		failedWritesFileName = FailedWritesFileName
	}
	return logwriter.NewActive(cfg.LogLevel, LogRootPath, DaemonLogFileName, failedWritesFileName, cfg.FallbackToSyslog)
}
