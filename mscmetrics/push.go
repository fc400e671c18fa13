package mscmetrics

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/golang/snappy"
	"github.com/prometheus/prometheus/prompb"
)

// Sample is a single metric data point to push.
type Sample struct {
	Name      string
	Value     float64
	Labels    map[string]string
	Timestamp time.Time
}

// PushClient sends samples to a VictoriaMetrics/Prometheus remote-write
// endpoint: protobuf-encode, snappy-compress, POST.
type PushClient struct {
	url        string
	httpClient *http.Client
	prefix     string
}

// NewPushClient builds a PushClient posting to url+"/api/v1/write", with
// every sample's name prefixed by prefix (if non-empty).
func NewPushClient(url, prefix string) *PushClient {
	return &PushClient{
		url:        url + "/api/v1/write",
		httpClient: &http.Client{Timeout: 30 * time.Second},
		prefix:     prefix,
	}
}

// Push encodes and POSTs samples as a single remote-write request. A nil
// or empty slice is a no-op.
func (c *PushClient) Push(ctx context.Context, samples []Sample) error {
	if len(samples) == 0 {
		return nil
	}

	timeseries := make([]prompb.TimeSeries, 0, len(samples))
	for _, s := range samples {
		timeseries = append(timeseries, c.sampleToTimeSeries(s))
	}

	req := &prompb.WriteRequest{Timeseries: timeseries}

	data, err := proto.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshaling write request: %w", err)
	}
	compressed := snappy.Encode(nil, data)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(compressed))
	if err != nil {
		return fmt.Errorf("creating HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Encoding", "snappy")
	httpReq.Header.Set("Content-Type", "application/x-protobuf")
	httpReq.Header.Set("X-Prometheus-Remote-Write-Version", "0.1.0")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

func (c *PushClient) sampleToTimeSeries(s Sample) prompb.TimeSeries {
	name := s.Name
	if c.prefix != "" {
		name = c.prefix + "_" + name
	}

	labels := make([]prompb.Label, 0, len(s.Labels)+1)
	labels = append(labels, prompb.Label{Name: "__name__", Value: name})
	for k, v := range s.Labels {
		labels = append(labels, prompb.Label{Name: k, Value: v})
	}

	ts := s.Timestamp.UnixMilli()
	if ts == 0 {
		ts = time.Now().UnixMilli()
	}

	return prompb.TimeSeries{
		Labels:  labels,
		Samples: []prompb.Sample{{Value: s.Value, Timestamp: ts}},
	}
}
