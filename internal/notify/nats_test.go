package notify

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/gftdcojp/streamlens/internal/analyze"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// startEmbeddedNATS starts an embedded nats-server on a random port.
func startEmbeddedNATS(t *testing.T) string {
	t.Helper()

	opts := &server.Options{
		Host:   "127.0.0.1",
		Port:   -1, // random port
		NoLog:  true,
		NoSigs: true,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		t.Fatalf("failed to create nats-server: %v", err)
	}

	go ns.Start()
	if !ns.ReadyForConnections(5 * time.Second) {
		t.Fatal("nats-server failed to start")
	}

	t.Cleanup(func() { ns.Shutdown() })
	return fmt.Sprintf("nats://127.0.0.1:%d", opts.Port)
}

func TestPublishRoundTrip(t *testing.T) {
	url := startEmbeddedNATS(t)

	nc, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("connect to NATS: %v", err)
	}
	defer nc.Close()

	sub, err := nc.SubscribeSync("streamlens.runs")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	event := RunEvent{
		GeneratedAt: time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC),
		ClusterURL:  "https://es.internal:9200",
		Summary: analyze.Summary{
			TotalSizeBytes:          2 * 1024 * 1024 * 1024,
			ActiveIngestBytesPerDay: 1024 * 1024 * 1024,
			Reported:                1,
		},
		Stats: analyze.RunStats{Total: 3, Analyzed: 1, Skipped: 2},
	}

	p := NewPublisher(nc, "streamlens.runs", zap.NewNop())
	if err := p.Publish(event); err != nil {
		t.Fatalf("publish: %v", err)
	}

	msg, err := sub.NextMsg(5 * time.Second)
	if err != nil {
		t.Fatalf("message not received: %v", err)
	}

	var decoded RunEvent
	if err := json.Unmarshal(msg.Data, &decoded); err != nil {
		t.Fatalf("decoding event: %v", err)
	}
	if decoded.Summary.Reported != 1 || decoded.Stats.Skipped != 2 {
		t.Errorf("unexpected event: %+v", decoded)
	}
	if !decoded.GeneratedAt.Equal(event.GeneratedAt) {
		t.Errorf("timestamp mangled: %v", decoded.GeneratedAt)
	}
}
