package webserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/talkbase/wadash/internal/app"
	"github.com/talkbase/wadash/internal/domain"
	"github.com/talkbase/wadash/pkg/common"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const tokenTTL = 12 * time.Hour

type loginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func loginHandler(c echo.Context) error {
	var payload loginPayload
	if err := c.Bind(&payload); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{"code": "INVALID_REQUEST"})
	}
	username := strings.TrimSpace(payload.Username)
	if username == "" || payload.Password == "" {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{"code": "MISSING_CREDENTIALS"})
	}

	appCtx := c.Get(ContextAppKey).(app.AppContext)
	var opr domain.SysOpr
	err := appCtx.DB().Where("username = ? AND status = ?", username, common.ENABLED).First(&opr).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !common.CheckPassword(opr.Password, payload.Password)) {
		zap.L().Warn("login rejected", zap.String("username", username), zap.String("ip", c.RealIP()))
		return c.JSON(http.StatusUnauthorized, map[string]interface{}{"code": "INVALID_CREDENTIALS"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{"code": "DATABASE_ERROR"})
	}

	claims := jwt.MapClaims{
		"sub":   opr.Username,
		"level": opr.Level,
		"exp":   time.Now().Add(tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(appCtx.Config().Web.Secret))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{"code": "TOKEN_SIGN_FAILED"})
	}

	appCtx.DB().Model(&domain.SysOpr{}).Where("id = ?", opr.ID).Update("last_login", time.Now())
	zap.L().Info("operator login", zap.String("username", username), zap.String("ip", c.RealIP()))
	return c.JSON(http.StatusOK, map[string]interface{}{
		"token":    signed,
		"username": opr.Username,
		"level":    opr.Level,
	})
}
