package prometheus

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsMiddlewareCountsByRoute(t *testing.T) {
	e := echo.New()
	e.Use(MetricsMiddleware())
	e.GET("/api/shops/:slug", func(c echo.Context) error {
		return c.NoContent(http.StatusTeapot)
	})

	counter := HTTPRequestCounter.WithLabelValues("/api/shops/:slug", http.MethodGet, "418")
	before := testutil.ToFloat64(counter)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/shops/acme", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestStatusCategory(t *testing.T) {
	assert.Equal(t, "2xx", statusCategory(201))
	assert.Equal(t, "4xx", statusCategory(404))
	assert.Equal(t, "5xx", statusCategory(500))
	assert.Equal(t, "", statusCategory(0))
}

func TestRecordLowStockAlert(t *testing.T) {
	sent := LowStockAlertCounter.WithLabelValues("sent")
	failed := LowStockAlertCounter.WithLabelValues("failed")
	sentBefore, failedBefore := testutil.ToFloat64(sent), testutil.ToFloat64(failed)

	RecordLowStockAlert(nil)
	RecordLowStockAlert(errors.New("fcm unavailable"))

	assert.Equal(t, sentBefore+1, testutil.ToFloat64(sent))
	assert.Equal(t, failedBefore+1, testutil.ToFloat64(failed))
}

func histogramSum(t *testing.T, operation string) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, DBOperationDuration.WithLabelValues(operation).(prometheus.Metric).Write(&m))
	return m.GetHistogram().GetSampleSum()
}

func TestTrackDBOperationMeasuresDeferredWork(t *testing.T) {
	before := histogramSum(t, "timed_query")

	func() {
		defer TrackDBOperation("timed_query")()
		time.Sleep(50 * time.Millisecond)
	}()

	assert.GreaterOrEqual(t, histogramSum(t, "timed_query")-before, 0.05)
	assert.GreaterOrEqual(t, testutil.CollectAndCount(DBOperationDuration, "backoffice_db_operation_duration_seconds"), 1)
}

func TestInitMetricsUsesPrefix(t *testing.T) {
	t.Cleanup(func() { InitMetrics(DefaultPrefix) })

	InitMetrics("shop-api")
	RecordLogin("account")

	assert.Equal(t, 1, testutil.CollectAndCount(LoginCounter, "shop_api_login_total"))
	assert.Equal(t, 0, testutil.CollectAndCount(LoginCounter, "backoffice_login_total"))
	assert.Equal(t, "backoffice", sanitizePrefix(""))
}
