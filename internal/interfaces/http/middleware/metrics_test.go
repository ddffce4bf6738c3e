package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestHTTPMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	mw, err := HTTPMetrics(provider.Meter("test"))
	require.NoError(t, err)

	router := gin.New()
	router.Use(mw)
	router.GET("/orders/:id", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	router.POST("/orders/:id/approve", func(c *gin.Context) {
		c.Status(http.StatusUnprocessableEntity)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/orders/1", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/orders/2", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/orders/2/approve", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	byRoute := map[string]int64{}
	var active int64 = -1
	var histogramCount uint64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch m.Name {
			case "http_server_request_total":
				for _, dp := range m.Data.(metricdata.Sum[int64]).DataPoints {
					route, _ := dp.Attributes.Value("http.route")
					status, _ := dp.Attributes.Value("http.status_code")
					byRoute[route.AsString()+" "+status.AsString()] += dp.Value
				}
			case "http_server_active_requests":
				active = 0
				for _, dp := range m.Data.(metricdata.Sum[int64]).DataPoints {
					active += dp.Value
				}
			case "http_server_request_duration_seconds":
				for _, dp := range m.Data.(metricdata.Histogram[float64]).DataPoints {
					histogramCount += dp.Count
				}
			}
		}
	}

	assert.Equal(t, int64(2), byRoute["/orders/:id 200"])
	assert.Equal(t, int64(1), byRoute["/orders/:id/approve 422"])
	assert.Equal(t, int64(1), byRoute["unknown 404"])
	assert.Equal(t, int64(0), active)
	assert.Equal(t, uint64(4), histogramCount)
}
