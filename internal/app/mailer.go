package app

import (
	"fmt"

	"github.com/asaskevich/EventBus"
	"github.com/talkbase/wadash/internal/domain"
	"github.com/talkbase/wadash/internal/engine"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// SubscribeAlerts sends an email to the configured operator address whenever
// a user is auto-blocked as spam. No-op when mail is disabled.
func (a *Application) SubscribeAlerts(bus EventBus.Bus) {
	mcfg := a.appConfig.Mail
	if !mcfg.Enabled || mcfg.AlertTo == "" {
		return
	}
	err := bus.SubscribeAsync(engine.TopicUserAutoBlocked, func(u *domain.WaUser) {
		m := gomail.NewMessage()
		m.SetHeader("From", mcfg.Sender)
		m.SetHeader("To", mcfg.AlertTo)
		m.SetHeader("Subject", fmt.Sprintf("[wadash] user auto-blocked: %s", u.Phone))
		m.SetBody("text/plain", fmt.Sprintf(
			"User %s was auto-blocked as spam.\n\nError count: %d\nLast error: %s\n",
			u.Phone, u.ErrorCount, u.LastError))

		d := gomail.NewDialer(mcfg.SmtpHost, mcfg.SmtpPort, mcfg.Sender, mcfg.Passwd)
		if err := d.DialAndSend(m); err != nil {
			zap.L().Error("auto-block alert mail failed", zap.String("phone", u.Phone), zap.Error(err))
			return
		}
		zap.L().Info("auto-block alert mail sent", zap.String("phone", u.Phone))
	}, false)
	if err != nil {
		zap.L().Error("failed to subscribe alert mailer", zap.Error(err))
	}
}
