package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/talkbase/wadash/config"
	"github.com/talkbase/wadash/internal/adminapi"
	"github.com/talkbase/wadash/internal/app"
	"github.com/talkbase/wadash/internal/engine"
	"github.com/talkbase/wadash/internal/store"
	"github.com/talkbase/wadash/internal/webserver"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	h        = flag.Bool("h", false, "display help")
	x        = flag.Bool("x", false, "debug mode")
	initdb   = flag.Bool("initdb", false, "drop and recreate the database schema")
	cfile    = flag.String("c", "/etc/wadash.yml", "config file")
	showVer  = flag.Bool("v", false, "display version")
	buildVer = "dev"
)

func main() {
	flag.Parse()
	if *h {
		flag.Usage()
		return
	}
	if *showVer {
		fmt.Println("wadash", buildVer)
		return
	}

	cfg := config.LoadConfig(*cfile)
	if *x {
		cfg.System.Debug = true
		cfg.Database.Debug = true
	}

	application := app.NewApplication(cfg)
	application.Init(cfg)
	defer application.Release()

	if *initdb {
		application.InitDb()
		zap.S().Info("database initialized")
		return
	}

	db := application.DB()
	users := store.NewUsers(db)
	windows := store.NewWindows(db)
	sessions := store.NewSessions(db)
	schedules := store.NewSchedules(db)
	logs := store.NewLogs(db)

	var client engine.WaClient = engine.LoopbackClient{}
	if cfg.Gateway.URL != "" {
		client = engine.NewGatewayClient(cfg.Gateway.URL, cfg.Gateway.Token)
	} else {
		zap.L().Warn("no gateway configured, sends are loopback only")
	}

	eng, err := engine.New(engine.Deps{
		Settings:  engine.SettingsFunc(application.ConfigMgr().SecuritySettings),
		Users:     users,
		Windows:   windows,
		Sessions:  sessions,
		Schedules: schedules,
		Logs:      logs,
		Client:    client,
	})
	if err != nil {
		zap.S().Fatal(err)
	}
	defer eng.Release()

	if cfg.Gateway.WebhookURL != "" {
		eng.Broadcasts.SetNotifier(engine.NewWebhookNotifier(cfg.Gateway.WebhookURL))
	}
	application.SubscribeMetrics(eng.Bus())
	application.SubscribeAlerts(eng.Bus())
	application.InitJob(users, logs)

	ws := webserver.Init(application, eng)
	adminapi.RegisterRoutes()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := eng.Start(ctx); err != nil {
		zap.S().Fatal(err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(ws.Listen)
	g.Go(func() error {
		<-gctx.Done()
		ws.Shutdown()
		return nil
	})
	if err := g.Wait(); err != nil {
		zap.S().Fatal(err)
	}
}
