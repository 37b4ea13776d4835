package adminapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/talkbase/wadash/internal/app"
	"github.com/talkbase/wadash/internal/engine"
	"github.com/talkbase/wadash/internal/webserver"
	"gorm.io/gorm"
)

// RegisterRoutes wires every admin API route group. Call after webserver.Init.
func RegisterRoutes() {
	registerSessionRoutes()
	registerUserRoutes()
	registerSecurityRoutes()
	registerBroadcastRoutes()
	registerScheduleRoutes()
	registerLogRoutes()
	registerMetricsRoutes()
}

// GetAppContext returns the application context injected by the webserver.
func GetAppContext(c echo.Context) app.AppContext {
	return c.Get(webserver.ContextAppKey).(app.AppContext)
}

// GetEngine returns the dispatch engine injected by the webserver.
func GetEngine(c echo.Context) *engine.Engine {
	return c.Get(webserver.ContextEngineKey).(*engine.Engine)
}

// GetDB returns the request database handle.
func GetDB(c echo.Context) *gorm.DB {
	return GetAppContext(c).DB()
}

func ok(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, map[string]interface{}{"data": data})
}

func fail(c echo.Context, status int, code, message string, detail interface{}) error {
	return c.JSON(status, map[string]interface{}{
		"code":    code,
		"message": message,
		"detail":  detail,
	})
}

func paged(c echo.Context, items interface{}, total int64, page, pageSize int) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"data":     items,
		"total":    total,
		"page":     page,
		"per_page": pageSize,
	})
}

func parsePagination(c echo.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(c.QueryParam("page"))
	pageSize, _ = strconv.Atoi(c.QueryParam("perPage"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}
	return page, pageSize
}

func parseIDParam(c echo.Context, name string) (int64, error) {
	return strconv.ParseInt(c.Param(name), 10, 64)
}
