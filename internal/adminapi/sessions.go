package adminapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/talkbase/wadash/internal/engine"
	"github.com/talkbase/wadash/internal/webserver"
	"github.com/talkbase/wadash/pkg/common"
	"go.uber.org/zap"
)

func registerSessionRoutes() {
	webserver.ApiGET("/sessions", listSessions)
	webserver.ApiPOST("/sessions", createSession)
	webserver.ApiDELETE("/sessions/:id", removeSession)
	webserver.ApiPOST("/sessions/:id/suspend", suspendSession)
	webserver.ApiPOST("/sessions/:id/resume", resumeSession)
	webserver.ApiPOST("/sessions/:id/connected", setSessionConnected)
}

// listSessions returns the live registry view, available ones first.
func listSessions(c echo.Context) error {
	eng := GetEngine(c)
	return ok(c, map[string]interface{}{
		"sessions":  eng.Registry.List(),
		"available": eng.Registry.ListAvailable(),
	})
}

type sessionPayload struct {
	Phone    string `json:"phone"`
	Name     string `json:"name"`
	Priority int    `json:"priority"`
	MaxLoad  int    `json:"max_load"`
}

func createSession(c echo.Context) error {
	var payload sessionPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse session parameters", nil)
	}
	if strings.TrimSpace(payload.Phone) == "" {
		return fail(c, http.StatusBadRequest, "MISSING_PHONE", "Session phone is required", nil)
	}
	if payload.MaxLoad <= 0 {
		payload.MaxLoad = 10
	}

	s := engine.Session{
		ID:       common.UUIDint64(),
		Phone:    common.NormalizePhone(payload.Phone),
		Name:     payload.Name,
		Priority: payload.Priority,
		MaxLoad:  payload.MaxLoad,
	}
	GetEngine(c).Registry.Register(s)
	return ok(c, map[string]interface{}{"id": s.ID})
}

func removeSession(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid session ID", nil)
	}
	GetEngine(c).Registry.Unregister(id)
	return c.NoContent(http.StatusNoContent)
}

func suspendSession(c echo.Context) error {
	return setSuspended(c, true)
}

func resumeSession(c echo.Context) error {
	return setSuspended(c, false)
}

func setSuspended(c echo.Context, suspended bool) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid session ID", nil)
	}
	if err := GetEngine(c).Registry.SetSuspended(id, suspended); err != nil {
		return fail(c, http.StatusNotFound, "SESSION_NOT_FOUND", "Session not found", nil)
	}
	zap.L().Info("session suspension changed", zap.Int64("session_id", id), zap.Bool("suspended", suspended))
	return ok(c, map[string]interface{}{"id": id, "suspended": suspended})
}

// setSessionConnected records a connectivity signal from the client layer.
func setSessionConnected(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid session ID", nil)
	}
	var payload struct {
		Connected bool `json:"connected"`
	}
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request", nil)
	}
	if err := GetEngine(c).Registry.SetConnected(id, payload.Connected); err != nil {
		return fail(c, http.StatusNotFound, "SESSION_NOT_FOUND", "Session not found", nil)
	}
	return ok(c, map[string]interface{}{"id": id, "connected": payload.Connected})
}
