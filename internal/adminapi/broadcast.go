package adminapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/talkbase/wadash/internal/webserver"
)

func registerBroadcastRoutes() {
	webserver.ApiPOST("/broadcast", startBroadcast)
	webserver.ApiGET("/broadcast/:id", broadcastStatus)
	webserver.ApiPOST("/broadcast/:id/stop", stopBroadcast)
}

// startBroadcast snapshots the non-blocked cohort and starts the run. The
// call returns immediately; progress is polled via broadcastStatus.
func startBroadcast(c echo.Context) error {
	var payload struct {
		Body string `json:"body"`
	}
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request", nil)
	}
	if strings.TrimSpace(payload.Body) == "" {
		return fail(c, http.StatusBadRequest, "MISSING_BODY", "Broadcast body is required", nil)
	}

	runID, err := GetEngine(c).Broadcasts.Start(payload.Body)
	if err != nil {
		return fail(c, http.StatusConflict, "BROADCAST_FAILED", "Failed to start broadcast", err.Error())
	}
	return ok(c, map[string]interface{}{"run_id": runID})
}

func broadcastStatus(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid run ID", nil)
	}
	status, found := GetEngine(c).Broadcasts.Status(id)
	if !found {
		return fail(c, http.StatusNotFound, "RUN_NOT_FOUND", "Broadcast run not found", nil)
	}
	return ok(c, status)
}

// stopBroadcast cancels the remaining items of a run; the in-flight item
// finishes naturally.
func stopBroadcast(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid run ID", nil)
	}
	removed, err := GetEngine(c).Broadcasts.Stop(id)
	if err != nil {
		return fail(c, http.StatusNotFound, "RUN_NOT_FOUND", "Broadcast run not found", err.Error())
	}
	return ok(c, map[string]interface{}{"run_id": id, "cancelled_items": removed})
}
