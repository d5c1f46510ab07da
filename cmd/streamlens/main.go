package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gftdcojp/streamlens/internal/analyze"
	"github.com/gftdcojp/streamlens/internal/config"
	"github.com/gftdcojp/streamlens/internal/esclient"
	"github.com/gftdcojp/streamlens/internal/export"
	"github.com/gftdcojp/streamlens/internal/metrics"
	"github.com/gftdcojp/streamlens/internal/notify"
	"github.com/gftdcojp/streamlens/internal/report"
	"github.com/gftdcojp/streamlens/pkg/natsutil"
	"github.com/gftdcojp/streamlens/pkg/s3util"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	clusterURL := flag.String("url", "", "Elasticsearch URL (overrides config)")
	showVersion := flag.Bool("version", false, "show version")
	flag.Parse()

	if *showVersion {
		fmt.Printf("streamlens %s\n", version)
		os.Exit(0)
	}

	cfg := config.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			os.Exit(1)
		}
	}

	logger, err := newLogger(cfg.Observability.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := resolveConnection(cfg, *clusterURL); err != nil {
		logger.Fatal("connection setup failed", zap.Error(err))
	}

	if err := run(cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("fatal error", zap.Error(err))
	}
}

// resolveConnection fills in any connection detail missing from config and
// flags by prompting the operator. The password prompt does not echo.
func resolveConnection(cfg *config.Config, urlFlag string) error {
	if urlFlag != "" {
		cfg.Elasticsearch.URL = urlFlag
	}

	reader := bufio.NewReader(os.Stdin)

	if cfg.Elasticsearch.URL == "" {
		v, err := prompt(reader, "Elasticsearch URL: ")
		if err != nil {
			return err
		}
		cfg.Elasticsearch.URL = v
	}
	if cfg.Elasticsearch.URL == "" {
		return errors.New("an Elasticsearch URL is required")
	}

	if cfg.Elasticsearch.Username == "" {
		v, err := prompt(reader, "Username: ")
		if err != nil {
			return err
		}
		cfg.Elasticsearch.Username = v
	}

	if cfg.Elasticsearch.Username != "" && cfg.Elasticsearch.Password == "" {
		fmt.Fprint(os.Stderr, "Password: ")
		if term.IsTerminal(int(os.Stdin.Fd())) {
			b, err := term.ReadPassword(int(os.Stdin.Fd()))
			fmt.Fprintln(os.Stderr)
			if err != nil {
				return fmt.Errorf("reading password: %w", err)
			}
			cfg.Elasticsearch.Password = string(b)
		} else {
			line, err := reader.ReadString('\n')
			if err != nil {
				return fmt.Errorf("reading password: %w", err)
			}
			cfg.Elasticsearch.Password = strings.TrimSpace(line)
		}
	}

	return nil
}

func prompt(reader *bufio.Reader, label string) (string, error) {
	fmt.Fprint(os.Stderr, label)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client := esclient.New(cfg.Elasticsearch, cfg.Analysis, logger.Named("esclient"))

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Observability.Metrics.Enabled {
		g.Go(func() error { return metrics.RunServer(gctx, cfg.Observability.Metrics) })
	}

	logger.Info("streamlens started",
		zap.String("version", version),
		zap.String("cluster_url", cfg.Elasticsearch.URL),
		zap.Int("max_workers", cfg.Analysis.MaxWorkers),
	)

	start := time.Now().UTC()
	orch := analyze.NewOrchestrator(client, cfg.Analysis, logger.Named("analyze"))
	results, stats, err := orch.Run(ctx)
	if err != nil {
		cancel()
		g.Wait()
		return err
	}

	ranked, summary := analyze.Aggregate(results, cfg.Analysis)
	rep := report.New(cfg.Elasticsearch.URL, start, ranked, summary, stats)

	if err := rep.WriteTable(os.Stdout); err != nil {
		return fmt.Errorf("rendering report: %w", err)
	}

	// The printed report already reached the operator; the sinks below are
	// best-effort and never fail the run.
	if cfg.Export.S3.Enabled {
		exportReport(ctx, cfg.Export.S3, rep, logger)
	}
	if cfg.Notify.NATS.Enabled {
		publishSummary(cfg.Notify.NATS, rep, logger)
	}

	cancel()
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func exportReport(ctx context.Context, cfg config.S3ExportConfig, rep report.Report, logger *zap.Logger) {
	s3c, err := s3util.NewClient(ctx, cfg)
	if err != nil {
		logger.Error("S3 export skipped", zap.Error(err))
		return
	}
	uploader := export.NewUploader(s3c.S3, s3c.Bucket, s3c.Prefix, logger.Named("export"))
	if err := uploader.Upload(ctx, rep); err != nil {
		logger.Error("S3 export failed", zap.Error(err))
	}
}

func publishSummary(cfg config.NATSNotifyConfig, rep report.Report, logger *zap.Logger) {
	nc, err := natsutil.Connect(cfg, logger.Named("nats"))
	if err != nil {
		logger.Error("NATS notification skipped", zap.Error(err))
		return
	}
	defer nc.Close()

	pub := notify.NewPublisher(nc, cfg.Subject, logger.Named("notify"))
	err = pub.Publish(notify.RunEvent{
		GeneratedAt: rep.GeneratedAt,
		ClusterURL:  rep.ClusterURL,
		Summary:     rep.Summary,
		Stats:       rep.Stats,
	})
	if err != nil {
		logger.Error("NATS notification failed", zap.Error(err))
	}
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level.SetLevel(zap.DebugLevel)
	case "info":
		zapCfg.Level.SetLevel(zap.InfoLevel)
	case "warn":
		zapCfg.Level.SetLevel(zap.WarnLevel)
	case "error":
		zapCfg.Level.SetLevel(zap.ErrorLevel)
	}

	if cfg.Output != "" {
		zapCfg.OutputPaths = []string{cfg.Output}
	}

	return zapCfg.Build()
}
