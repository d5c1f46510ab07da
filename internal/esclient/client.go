// Package esclient talks to the Elasticsearch data-stream, search, and cat
// APIs needed to analyze one data stream. Every call runs under its own
// timeout and a bounded linear-backoff retry.
package esclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gftdcojp/streamlens/internal/config"
	"github.com/gftdcojp/streamlens/internal/metrics"
	"github.com/gftdcojp/streamlens/internal/units"
	"go.uber.org/zap"
)

// ErrUnavailable marks a deterministic data gap: the cluster answered, but
// the answer carries nothing usable (missing aggregations, implausible
// timestamps, non-retryable error status). Not retried.
var ErrUnavailable = errors.New("data unavailable")

// Client issues the per-stream analysis calls against one cluster.
// Safe for concurrent use; the underlying http.Client pools connections.
type Client struct {
	http           *http.Client
	baseURL        string
	tsField        string
	restoredPrefix string
	requestTimeout time.Duration
	probeTimeout   time.Duration
	maxRetries     int
	retrySleep     time.Duration
	logger         *zap.Logger
}

// New builds a Client from the connection and analysis configuration.
// Credentials are attached to every outgoing request via the transport.
func New(es config.ElasticsearchConfig, an config.AnalysisConfig, logger *zap.Logger) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if es.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &Client{
		http: &http.Client{
			Transport: &basicAuthTransport{
				base:     transport,
				username: es.Username,
				password: es.Password,
			},
		},
		baseURL:        strings.TrimRight(es.URL, "/"),
		tsField:        es.TimestampField,
		restoredPrefix: es.RestoredPrefix,
		requestTimeout: es.RequestTimeout.Duration(),
		probeTimeout:   es.ProbeTimeout.Duration(),
		maxRetries:     an.MaxRetries,
		retrySleep:     an.RetrySleep.Duration(),
		logger:         logger,
	}
}

// basicAuthTransport injects basic-auth credentials into every request.
type basicAuthTransport struct {
	base     http.RoundTripper
	username string
	password string
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.username != "" {
		req = req.Clone(req.Context())
		req.SetBasicAuth(t.username, t.password)
	}
	return t.base.RoundTrip(req)
}

// ListDataStreams returns the names of all data streams in the cluster.
// A failure here is fatal to the run; the caller does not degrade it.
func (c *Client) ListDataStreams(ctx context.Context) ([]string, error) {
	resp, err := c.do(ctx, "list_data_streams", c.requestTimeout, func(rctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(rctx, http.MethodGet, c.baseURL+"/_data_stream", nil)
	})
	if err != nil {
		return nil, fmt.Errorf("listing data streams: %w", err)
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("listing data streams: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		DataStreams []struct {
			Name string `json:"name"`
		} `json:"data_streams"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding data stream list: %w", err)
	}

	names := make([]string, 0, len(body.DataStreams))
	for _, ds := range body.DataStreams {
		names = append(names, ds.Name)
	}
	return names, nil
}

// FetchTimeRange runs a zero-hit min/max aggregation over the write-time
// field and returns the oldest and newest observed instants in UTC.
// Returns ErrUnavailable when the stream has no usable range.
func (c *Client) FetchTimeRange(ctx context.Context, stream string) (oldest, newest time.Time, err error) {
	query := map[string]interface{}{
		"size": 0,
		"aggs": map[string]interface{}{
			"oldest": map[string]interface{}{"min": map[string]interface{}{"field": c.tsField}},
			"newest": map[string]interface{}{"max": map[string]interface{}{"field": c.tsField}},
		},
	}
	payload, err := json.Marshal(query)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("encoding time range query: %w", err)
	}

	resp, err := c.do(ctx, "search", c.requestTimeout, func(rctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(rctx, http.MethodPost,
			c.baseURL+"/"+url.PathEscape(stream)+"/_search", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("time range query for %s: %w", stream, err)
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return time.Time{}, time.Time{}, fmt.Errorf("time range query for %s: status %d: %w",
			stream, resp.StatusCode, ErrUnavailable)
	}

	var body struct {
		Aggregations struct {
			Oldest struct {
				ValueAsString string `json:"value_as_string"`
			} `json:"oldest"`
			Newest struct {
				ValueAsString string `json:"value_as_string"`
			} `json:"newest"`
		} `json:"aggregations"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("decoding aggregations for %s: %w", stream, err)
	}

	oldest, okOld := units.ParseTimestamp(body.Aggregations.Oldest.ValueAsString)
	newest, okNew := units.ParseTimestamp(body.Aggregations.Newest.ValueAsString)
	if !okOld || !okNew {
		return time.Time{}, time.Time{}, fmt.Errorf("time range for %s: %w", stream, ErrUnavailable)
	}
	return oldest, newest, nil
}

// ListBackingIndices resolves the physical indices currently backing a stream.
func (c *Client) ListBackingIndices(ctx context.Context, stream string) ([]string, error) {
	resp, err := c.do(ctx, "backing_indices", c.requestTimeout, func(rctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(rctx, http.MethodGet,
			c.baseURL+"/_data_stream/"+url.PathEscape(stream), nil)
	})
	if err != nil {
		return nil, fmt.Errorf("resolving backing indices for %s: %w", stream, err)
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("resolving backing indices for %s: status %d: %w",
			stream, resp.StatusCode, ErrUnavailable)
	}

	var body struct {
		DataStreams []struct {
			Indices []struct {
				IndexName string `json:"index_name"`
			} `json:"indices"`
		} `json:"data_streams"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding backing indices for %s: %w", stream, err)
	}
	if len(body.DataStreams) == 0 {
		return nil, fmt.Errorf("backing indices for %s: %w", stream, ErrUnavailable)
	}

	indices := make([]string, 0, len(body.DataStreams[0].Indices))
	for _, idx := range body.DataStreams[0].Indices {
		indices = append(indices, idx.IndexName)
	}
	return indices, nil
}

// FetchIndexSize looks up the stored size of one index in bytes. Not-found,
// empty, or malformed responses yield 0 rather than an error; only transport
// failures that survive the retries are reported.
func (c *Client) FetchIndexSize(ctx context.Context, index string) (float64, error) {
	resp, err := c.do(ctx, "index_size", c.requestTimeout, func(rctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(rctx, http.MethodGet,
			c.baseURL+"/_cat/indices/"+url.PathEscape(index)+"?format=json&h=dataset.size", nil)
	})
	if err != nil {
		return 0, fmt.Errorf("size lookup for %s: %w", index, err)
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return 0, nil
	}

	var rows []struct {
		DatasetSize string `json:"dataset.size"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil || len(rows) == 0 {
		return 0, nil
	}
	return units.ParseSize(rows[0].DatasetSize), nil
}

// RestoredName returns the conventional name of the partially-restored
// shadow copy of an index.
func (c *Client) RestoredName(index string) string {
	return c.restoredPrefix + index
}

// RestoredIndexExists probes whether a partially-restored shadow copy of the
// index is present. The probe runs under the shorter probe timeout.
func (c *Client) RestoredIndexExists(ctx context.Context, index string) (bool, error) {
	resp, err := c.do(ctx, "restored_probe", c.probeTimeout, func(rctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(rctx, http.MethodHead,
			c.baseURL+"/"+url.PathEscape(c.RestoredName(index)), nil)
	})
	if err != nil {
		return false, fmt.Errorf("restored probe for %s: %w", index, err)
	}
	defer drain(resp)

	return resp.StatusCode == http.StatusOK, nil
}

// do issues a request with per-attempt timeout and bounded linear-backoff
// retry. Transient failures (transport errors, HTTP 429/5xx) are retried up
// to maxRetries times, sleeping retrySleep*attempt between attempts. The
// final transient response, if any, is surfaced as an error.
func (c *Client) do(ctx context.Context, op string, timeout time.Duration,
	build func(context.Context) (*http.Request, error)) (*http.Response, error) {

	start := time.Now()
	defer func() {
		metrics.RequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}()

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries+1; attempt++ {
		rctx, cancel := context.WithTimeout(ctx, timeout)
		req, err := build(rctx)
		if err != nil {
			cancel()
			return nil, err
		}

		resp, err := c.http.Do(req)
		if err == nil && !retryableStatus(resp.StatusCode) {
			// cancel must outlive body consumption; tie it to the body.
			resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
			return resp, nil
		}

		if err != nil {
			lastErr = err
		} else {
			drain(resp)
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
		}
		cancel()

		if attempt > c.maxRetries {
			break
		}

		metrics.RequestRetries.WithLabelValues(op).Inc()
		c.logger.Debug("retrying request",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Error(lastErr),
		)

		select {
		case <-ctx.Done():
			metrics.RequestErrors.WithLabelValues(op).Inc()
			return nil, ctx.Err()
		case <-time.After(c.retrySleep * time.Duration(attempt)):
		}
	}

	metrics.RequestErrors.WithLabelValues(op).Inc()
	return nil, fmt.Errorf("%s failed after %d attempts: %w", op, c.maxRetries+1, lastErr)
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// cancelOnClose defers a context cancel until the response body is closed.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
}
