package export

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gftdcojp/streamlens/internal/analyze"
	"github.com/gftdcojp/streamlens/internal/report"
	"go.uber.org/zap"
)

// mockS3 is an in-memory S3 implementation for testing.
type mockS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	buckets map[string]string
	putErr  error
}

func newMockS3() *mockS3 {
	return &mockS3{objects: make(map[string][]byte), buckets: make(map[string]string)}
}

func (m *mockS3) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	data, _ := io.ReadAll(params.Body)
	m.mu.Lock()
	m.objects[*params.Key] = data
	m.buckets[*params.Key] = *params.Bucket
	m.mu.Unlock()
	return &s3.PutObjectOutput{}, nil
}

func sampleReport() report.Report {
	return report.New("https://es.internal:9200",
		time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC),
		[]analyze.Result{{Name: "logs-app", Status: analyze.StatusActive, SizeBytes: 1024}},
		analyze.Summary{TotalSizeBytes: 1024, Reported: 1},
		analyze.RunStats{Total: 1, Analyzed: 1},
	)
}

func TestUpload(t *testing.T) {
	m := newMockS3()
	u := NewUploader(m, "capacity-reports", "streamlens", zap.NewNop())

	if err := u.Upload(context.Background(), sampleReport()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	key := u.ObjectKey(time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC))
	if !strings.HasPrefix(key, "streamlens/streamlens-2024-01-03T12:00:00Z") {
		t.Errorf("unexpected object key: %s", key)
	}

	data, ok := m.objects[key]
	if !ok {
		t.Fatalf("object not stored under %s; stored keys: %v", key, keys(m.objects))
	}
	if m.buckets[key] != "capacity-reports" {
		t.Errorf("wrong bucket: %s", m.buckets[key])
	}

	var decoded report.Report
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("stored object is not valid JSON: %v", err)
	}
	if len(decoded.Results) != 1 || decoded.Results[0].Name != "logs-app" {
		t.Errorf("unexpected stored report: %+v", decoded)
	}
}

func TestUploadKeyWithoutPrefix(t *testing.T) {
	u := NewUploader(newMockS3(), "capacity-reports", "", zap.NewNop())
	key := u.ObjectKey(time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC))
	if key != "streamlens-2024-01-03T12:00:00Z.json" {
		t.Errorf("unexpected object key: %s", key)
	}
}

func TestUploadSurfacesPutFailure(t *testing.T) {
	m := newMockS3()
	m.putErr = errors.New("access denied")
	u := NewUploader(m, "capacity-reports", "", zap.NewNop())

	if err := u.Upload(context.Background(), sampleReport()); err == nil {
		t.Fatal("expected error from failed put")
	}
}

func keys(m map[string][]byte) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
