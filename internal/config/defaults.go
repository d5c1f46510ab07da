package config

import "time"

func DefaultConfig() *Config {
	return &Config{
		Elasticsearch: ElasticsearchConfig{
			RequestTimeout: Duration(30 * time.Second),
			ProbeTimeout:   Duration(10 * time.Second),
			TimestampField: "@timestamp",
			RestoredPrefix: "partial-restored-",
		},
		Analysis: AnalysisConfig{
			MaxWorkers:        5,
			MaxRetries:        2,
			RetrySleep:        Duration(time.Second),
			StagnantAfterDays: 3,
			NewStreamDays:     2,
			IncludeStagnant:   false,
			ZeroSizePolicy:    ZeroSizeSkip,
		},
		Notify: NotifyConfig{
			NATS: NATSNotifyConfig{
				Subject:        "streamlens.runs",
				ConnectionName: "streamlens",
				MaxReconnects:  -1,
				ReconnectWait:  Duration(2 * time.Second),
			},
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: false,
				Listen:  ":9090",
				Path:    "/metrics",
			},
			Logging: LoggingConfig{
				Level:  "info",
				Format: "console",
				Output: "stderr",
			},
		},
	}
}
