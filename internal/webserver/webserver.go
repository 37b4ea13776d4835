package webserver

import (
	"fmt"
	"net/http"
	"time"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/talkbase/wadash/internal/app"
	"github.com/talkbase/wadash/internal/engine"
	"go.uber.org/zap"
)

// Context keys set by the injection middleware.
const (
	ContextAppKey    = "wadash_app"
	ContextEngineKey = "wadash_engine"
)

type WebServer struct {
	root   *echo.Echo
	api    *echo.Group
	appCtx app.AppContext
	eng    *engine.Engine
}

var server *WebServer

// Init builds the echo server: open login route plus a JWT-protected /api/v1
// group with the application context and engine injected per request.
func Init(appCtx app.AppContext, eng *engine.Engine) *WebServer {
	e := echo.New()
	e.HideBanner = true
	e.JSONSerializer = jsonSerializer{}
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI: true, LogStatus: true, LogMethod: true, LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			zap.L().Debug("http request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency))
			return nil
		},
	}))

	inject := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(ContextAppKey, appCtx)
			c.Set(ContextEngineKey, eng)
			return next(c)
		}
	}
	e.Use(inject)

	e.POST("/api/v1/login", loginHandler)

	api := e.Group("/api/v1")
	api.Use(echojwt.WithConfig(echojwt.Config{
		SigningKey: []byte(appCtx.Config().Web.Secret),
	}))

	server = &WebServer{root: e, api: api, appCtx: appCtx, eng: eng}
	return server
}

// Listen starts serving; it blocks until the server stops.
func (s *WebServer) Listen() error {
	addr := fmt.Sprintf("%s:%d", s.appCtx.Config().Web.Host, s.appCtx.Config().Web.Port)
	zap.L().Info("admin api listening", zap.String("addr", addr))
	s.root.Server.ReadTimeout = 30 * time.Second
	s.root.Server.WriteTimeout = 60 * time.Second
	err := s.root.Start(addr)
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *WebServer) Shutdown() {
	_ = s.root.Close()
}

// Route registration helpers used by the adminapi package.

func ApiGET(path string, h echo.HandlerFunc) {
	server.api.GET(path, h)
}

func ApiPOST(path string, h echo.HandlerFunc) {
	server.api.POST(path, h)
}

func ApiPUT(path string, h echo.HandlerFunc) {
	server.api.PUT(path, h)
}

func ApiDELETE(path string, h echo.HandlerFunc) {
	server.api.DELETE(path, h)
}
