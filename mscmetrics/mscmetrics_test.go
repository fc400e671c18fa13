package mscmetrics_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/golang/snappy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/prometheus/prometheus/prompb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nomis52/msc/mscmetrics"
	"github.com/nomis52/msc/name"
	"github.com/nomis52/msc/service"
)

func TestScrapeRegistryGaugeRoundTrip(t *testing.T) {
	reg, err := mscmetrics.NewScrapeRegistry()
	require.NoError(t, err)

	g, err := reg.NewGauge(prometheus.GaugeOpts{Name: "msc_test_gauge", Help: "test"})
	require.NoError(t, err)
	g.Set(7)

	same, err := reg.NewGauge(prometheus.GaugeOpts{Name: "msc_test_gauge", Help: "test"})
	require.NoError(t, err)
	same.Set(9)

	assert.NotNil(t, reg.Handler())
}

func TestPushClientSendsSnappyEncodedRequest(t *testing.T) {
	received := make(chan []prompb.TimeSeries, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "snappy", r.Header.Get("Content-Encoding"))
		assert.Equal(t, "application/x-protobuf", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		decoded, err := snappy.Decode(nil, body)
		require.NoError(t, err)

		var req prompb.WriteRequest
		require.NoError(t, proto.Unmarshal(decoded, &req))
		received <- req.Timeseries
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := mscmetrics.NewPushClient(server.URL, "test")
	now := time.Now()
	err := client.Push(context.Background(), []mscmetrics.Sample{
		{Name: "services_up", Value: 3, Labels: map[string]string{"registry": "r1"}, Timestamp: now},
	})
	require.NoError(t, err)

	select {
	case ts := <-received:
		require.Len(t, ts, 1)
		var gotName string
		for _, l := range ts[0].Labels {
			if l.Name == "__name__" {
				gotName = l.Value
			}
		}
		assert.Equal(t, "test_services_up", gotName)
	case <-time.After(2 * time.Second):
		t.Fatal("server never received the push")
	}
}

func TestPushClientNoopOnEmptySamples(t *testing.T) {
	client := mscmetrics.NewPushClient("http://unreachable.invalid", "")
	require.NoError(t, client.Push(context.Background(), nil))
}

type fakeService struct{}

func (fakeService) Start(ctx context.Context, sc *service.StartContext) { sc.Complete() }
func (fakeService) Stop(ctx context.Context, sc *service.StopContext)   { sc.Complete() }

type listerFunc func() []*service.Controller

func (f listerFunc) Controllers() []*service.Controller { return f() }

func TestControllerCollectorExposesAllThreeGauges(t *testing.T) {
	up := service.NewController(name.Of("up"), fakeService{}, service.ModeOnDemand, nil)
	collector := mscmetrics.NewControllerCollector(listerFunc(func() []*service.Controller {
		return []*service.Controller{up}
	}))

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(collector))

	count, err := testutil.GatherAndCount(reg, "msc_services_up", "msc_services_failed", "msc_unsatisfied_dependencies_total")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}
