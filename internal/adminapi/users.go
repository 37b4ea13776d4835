package adminapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/talkbase/wadash/internal/domain"
	"github.com/talkbase/wadash/internal/store"
	"github.com/talkbase/wadash/internal/webserver"
)

func registerUserRoutes() {
	webserver.ApiGET("/users", listUsers)
	webserver.ApiGET("/users/:phone", getUser)
	webserver.ApiPOST("/users/:phone/classify", classifyUser)
	webserver.ApiPOST("/users/:phone/block", blockUser)
	webserver.ApiPOST("/users/:phone/unblock", unblockUser)
}

func listUsers(c echo.Context) error {
	page, pageSize := parsePagination(c)
	users, total, err := store.NewUsers(GetDB(c)).List((page-1)*pageSize, pageSize)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query users", err.Error())
	}
	return paged(c, users, total, page, pageSize)
}

func getUser(c echo.Context) error {
	phone := strings.TrimSpace(c.Param("phone"))
	if phone == "" {
		return fail(c, http.StatusBadRequest, "MISSING_PHONE", "Phone is required", nil)
	}
	u, err := store.NewUsers(GetDB(c)).GetOrCreate(phone)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query user", err.Error())
	}
	resp := map[string]interface{}{"user": u}
	if w, found := GetEngine(c).Limiter.Window(u.Phone); found {
		resp["rate_window"] = w
	}
	return ok(c, resp)
}

func classifyUser(c echo.Context) error {
	phone := strings.TrimSpace(c.Param("phone"))
	var payload struct {
		Classification string `json:"classification"`
	}
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request", nil)
	}
	switch payload.Classification {
	case domain.ClassNormal, domain.ClassTest, domain.ClassSpam:
	default:
		return fail(c, http.StatusBadRequest, "INVALID_CLASSIFICATION", "Classification must be normal, test or spam", nil)
	}
	if err := GetEngine(c).Classifier.Classify(phone, payload.Classification); err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to classify user", err.Error())
	}
	return ok(c, map[string]interface{}{"phone": phone, "classification": payload.Classification})
}

func blockUser(c echo.Context) error {
	phone := strings.TrimSpace(c.Param("phone"))
	var payload struct {
		Reason string `json:"reason"`
	}
	_ = c.Bind(&payload)
	if payload.Reason == "" {
		payload.Reason = "manual_block"
	}
	if err := GetEngine(c).Classifier.Block(phone, payload.Reason); err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to block user", err.Error())
	}
	return ok(c, map[string]interface{}{"phone": phone, "blocked": true})
}

// unblockUser lifts the block, clears error counters and resets the rate
// window. This is the only path that resets a user's error count.
func unblockUser(c echo.Context) error {
	phone := strings.TrimSpace(c.Param("phone"))
	eng := GetEngine(c)
	if err := eng.Classifier.Unblock(phone); err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to unblock user", err.Error())
	}
	eng.Limiter.Unblock(phone)
	return ok(c, map[string]interface{}{"phone": phone, "blocked": false})
}
