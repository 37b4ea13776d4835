package adminapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/talkbase/wadash/internal/webserver"
	"github.com/talkbase/wadash/pkg/metrics"
)

func registerMetricsRoutes() {
	webserver.ApiGET("/metrics/dispatch", dispatchMetrics)
	webserver.ApiGET("/metrics/system", systemMetrics)
	webserver.ApiGET("/metrics/queue", queueMetrics)
}

// dispatchMetrics returns counts and latency percentiles over the requested
// range (defaults to the last hour).
func dispatchMetrics(c echo.Context) error {
	end := time.Now().Unix()
	start := end - 3600
	if v := c.QueryParam("start"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			start = n
		}
	}
	if v := c.QueryParam("end"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			end = n
		}
	}
	summary, err := metrics.Summary(start, end)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "METRICS_ERROR", "Failed to query metrics", err.Error())
	}
	return ok(c, summary)
}

func systemMetrics(c echo.Context) error {
	return ok(c, metrics.CollectSystem())
}

func queueMetrics(c echo.Context) error {
	broadcast, scheduled := GetEngine(c).Queue.Pending()
	return ok(c, map[string]interface{}{
		"broadcast_pending": broadcast,
		"scheduled_pending": scheduled,
	})
}
