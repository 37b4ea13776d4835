package adminapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/talkbase/wadash/internal/webserver"
)

func registerSecurityRoutes() {
	webserver.ApiGET("/security/settings", getSecuritySettings)
	webserver.ApiPUT("/security/settings", updateSecuritySettings)
}

func getSecuritySettings(c echo.Context) error {
	return ok(c, GetAppContext(c).ConfigMgr().SecurityForm())
}

// updateSecuritySettings accepts a partial settings map; unknown values are
// merged over the current form, validated as a whole and only then persisted.
// Invalid configuration never reaches the dispatch engine.
func updateSecuritySettings(c echo.Context) error {
	var values map[string]interface{}
	if err := c.Bind(&values); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse settings", err.Error())
	}
	mgr := GetAppContext(c).ConfigMgr()
	if err := mgr.SaveSecuritySettings(values); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_SETTINGS", "Settings rejected", err.Error())
	}
	return ok(c, mgr.SecurityForm())
}
