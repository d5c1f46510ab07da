package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Elasticsearch ElasticsearchConfig `yaml:"elasticsearch"`
	Analysis      AnalysisConfig      `yaml:"analysis"`
	Export        ExportConfig        `yaml:"export"`
	Notify        NotifyConfig        `yaml:"notify"`
	Observability ObservabilityConfig `yaml:"observability"`
}

type ElasticsearchConfig struct {
	URL                string   `yaml:"url"`
	Username           string   `yaml:"username"`
	Password           string   `yaml:"password"`
	RequestTimeout     Duration `yaml:"request_timeout"`
	ProbeTimeout       Duration `yaml:"probe_timeout"`
	TimestampField     string   `yaml:"timestamp_field"`
	RestoredPrefix     string   `yaml:"restored_prefix"`
	InsecureSkipVerify bool     `yaml:"insecure_skip_verify"`
}

// ZeroSizePolicy values accepted by AnalysisConfig.ZeroSizePolicy.
const (
	ZeroSizeSkip          = "skip"
	ZeroSizeReportUnknown = "report-unknown"
)

type AnalysisConfig struct {
	MaxWorkers        int      `yaml:"max_workers"`
	MaxRetries        int      `yaml:"max_retries"`
	RetrySleep        Duration `yaml:"retry_sleep"`
	StagnantAfterDays float64  `yaml:"stagnant_after_days"`
	NewStreamDays     float64  `yaml:"new_stream_days"`
	IncludeStagnant   bool     `yaml:"include_stagnant"`
	ZeroSizePolicy    string   `yaml:"zero_size_policy"`
}

type ExportConfig struct {
	S3 S3ExportConfig `yaml:"s3"`
}

type S3ExportConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	ForcePathStyle  bool   `yaml:"force_path_style"`
}

type NotifyConfig struct {
	NATS NATSNotifyConfig `yaml:"nats"`
}

type NATSNotifyConfig struct {
	Enabled         bool      `yaml:"enabled"`
	URL             string    `yaml:"url"`
	Subject         string    `yaml:"subject"`
	CredentialsFile string    `yaml:"credentials_file"`
	TLS             TLSConfig `yaml:"tls"`
	ConnectionName  string    `yaml:"connection_name"`
	MaxReconnects   int       `yaml:"max_reconnects"`
	ReconnectWait   Duration  `yaml:"reconnect_wait"`
}

type TLSConfig struct {
	CAFile   string `yaml:"ca_file"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
	Path    string `yaml:"path"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	// elasticsearch.url, username and password may be empty here; the CLI
	// collects anything missing interactively before connecting.

	if c.Elasticsearch.RequestTimeout <= 0 {
		return fmt.Errorf("elasticsearch.request_timeout must be > 0")
	}
	if c.Elasticsearch.ProbeTimeout <= 0 {
		return fmt.Errorf("elasticsearch.probe_timeout must be > 0")
	}
	if c.Elasticsearch.TimestampField == "" {
		return fmt.Errorf("elasticsearch.timestamp_field is required")
	}

	if c.Analysis.MaxWorkers <= 0 {
		return fmt.Errorf("analysis.max_workers must be > 0")
	}
	if c.Analysis.MaxRetries < 0 {
		return fmt.Errorf("analysis.max_retries must be >= 0")
	}
	if c.Analysis.RetrySleep < 0 {
		return fmt.Errorf("analysis.retry_sleep must be >= 0")
	}
	if c.Analysis.StagnantAfterDays <= 0 {
		return fmt.Errorf("analysis.stagnant_after_days must be > 0")
	}
	if c.Analysis.NewStreamDays <= 0 {
		return fmt.Errorf("analysis.new_stream_days must be > 0")
	}
	switch c.Analysis.ZeroSizePolicy {
	case ZeroSizeSkip, ZeroSizeReportUnknown:
	default:
		return fmt.Errorf("analysis.zero_size_policy must be %q or %q, got %q",
			ZeroSizeSkip, ZeroSizeReportUnknown, c.Analysis.ZeroSizePolicy)
	}

	if c.Export.S3.Enabled {
		if c.Export.S3.Bucket == "" {
			return fmt.Errorf("export.s3 requires bucket")
		}
		if c.Export.S3.Region == "" && c.Export.S3.Endpoint == "" {
			return fmt.Errorf("export.s3 requires region or endpoint")
		}
	}

	if c.Notify.NATS.Enabled {
		if c.Notify.NATS.URL == "" {
			return fmt.Errorf("notify.nats requires url")
		}
		if c.Notify.NATS.Subject == "" {
			return fmt.Errorf("notify.nats requires subject")
		}
	}

	return nil
}

// Duration wraps time.Duration for YAML unmarshaling of strings like "30s", "2m".
type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}
