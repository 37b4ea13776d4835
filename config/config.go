package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

type SysConfig struct {
	Appid    string `yaml:"appid" json:"appid"`
	Location string `yaml:"location" json:"location"`
	Workdir  string `yaml:"workdir" json:"workdir"`
	Debug    bool   `yaml:"debug" json:"debug"`
}

type WebConfig struct {
	Host   string `yaml:"host" json:"host"`
	Port   int    `yaml:"port" json:"port"`
	Secret string `yaml:"secret" json:"secret"`
}

type DBConfig struct {
	Type     string `yaml:"type" json:"type"`
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	Name     string `yaml:"name" json:"name"`
	User     string `yaml:"user" json:"user"`
	Passwd   string `yaml:"passwd" json:"passwd"`
	MaxConn  int    `yaml:"max_conn" json:"max_conn"`
	IdleConn int    `yaml:"idle_conn" json:"idle_conn"`
	Debug    bool   `yaml:"debug" json:"debug"`
}

type LogConfig struct {
	Mode       string `yaml:"mode" json:"mode"`
	FileEnable bool   `yaml:"file_enable" json:"file_enable"`
	Filename   string `yaml:"filename" json:"filename"`
}

type MailConfig struct {
	Enabled  bool   `yaml:"enabled" json:"enabled"`
	SmtpHost string `yaml:"smtp_host" json:"smtp_host"`
	SmtpPort int    `yaml:"smtp_port" json:"smtp_port"`
	Sender   string `yaml:"sender" json:"sender"`
	Passwd   string `yaml:"passwd" json:"passwd"`
	AlertTo  string `yaml:"alert_to" json:"alert_to"`
}

// GatewayConfig points at the WhatsApp provider gateway. An empty URL runs
// the dispatcher against a loopback client that only logs.
type GatewayConfig struct {
	URL        string `yaml:"url" json:"url"`
	Token      string `yaml:"token" json:"token"`
	WebhookURL string `yaml:"webhook_url" json:"webhook_url"`
}

type AppConfig struct {
	System   SysConfig     `yaml:"system" json:"system"`
	Web      WebConfig     `yaml:"web" json:"web"`
	Database DBConfig      `yaml:"database" json:"database"`
	Logger   LogConfig     `yaml:"logger" json:"logger"`
	Mail     MailConfig    `yaml:"mail" json:"mail"`
	Gateway  GatewayConfig `yaml:"gateway" json:"gateway"`
}

var DefaultAppConfig = &AppConfig{
	System: SysConfig{
		Appid:    "wadash",
		Location: "Asia/Jakarta",
		Workdir:  "/var/wadash",
		Debug:    true,
	},
	Web: WebConfig{
		Host:   "0.0.0.0",
		Port:   1850,
		Secret: "9b6de5cc-wadash-1850-secret",
	},
	Database: DBConfig{
		Type:     "postgres",
		Host:     "127.0.0.1",
		Port:     5432,
		Name:     "wadash",
		User:     "postgres",
		MaxConn:  100,
		IdleConn: 10,
	},
	Logger: LogConfig{
		Mode:       "development",
		FileEnable: true,
		Filename:   "/var/wadash/wadash.log",
	},
}

func setEnvValue(name string, f func(v string)) {
	var evalue = os.Getenv(name)
	if evalue != "" {
		f(evalue)
	}
}

func setEnvInt64Value(name string, f func(v int64)) {
	var evalue = os.Getenv(name)
	if evalue == "" {
		return
	}
	p, err := cast.ToInt64E(evalue)
	if err == nil {
		f(p)
	}
}

func setEnvBoolValue(name string, f func(v bool)) {
	var evalue = os.Getenv(name)
	if evalue == "" {
		return
	}
	p, err := cast.ToBoolE(evalue)
	if err == nil {
		f(p)
	}
}

// LoadConfig reads the yaml configuration file and applies environment
// variable overrides. A missing file yields the default configuration.
func LoadConfig(cfile string) *AppConfig {
	cfg := new(AppConfig)
	*cfg = *DefaultAppConfig

	if cfile != "" {
		if data, err := os.ReadFile(cfile); err == nil {
			_ = yaml.Unmarshal(data, cfg)
		}
	}

	setEnvValue("WADASH_SYSTEM_WORKDIR", func(v string) { cfg.System.Workdir = v })
	setEnvValue("WADASH_SYSTEM_LOCATION", func(v string) { cfg.System.Location = v })
	setEnvBoolValue("WADASH_SYSTEM_DEBUG", func(v bool) { cfg.System.Debug = v })

	setEnvValue("WADASH_WEB_HOST", func(v string) { cfg.Web.Host = v })
	setEnvInt64Value("WADASH_WEB_PORT", func(v int64) { cfg.Web.Port = int(v) })
	setEnvValue("WADASH_WEB_SECRET", func(v string) { cfg.Web.Secret = v })

	setEnvValue("WADASH_DB_HOST", func(v string) { cfg.Database.Host = v })
	setEnvInt64Value("WADASH_DB_PORT", func(v int64) { cfg.Database.Port = int(v) })
	setEnvValue("WADASH_DB_NAME", func(v string) { cfg.Database.Name = v })
	setEnvValue("WADASH_DB_USER", func(v string) { cfg.Database.User = v })
	setEnvValue("WADASH_DB_PWD", func(v string) { cfg.Database.Passwd = v })
	setEnvBoolValue("WADASH_DB_DEBUG", func(v bool) { cfg.Database.Debug = v })

	setEnvValue("WADASH_LOGGER_MODE", func(v string) { cfg.Logger.Mode = v })

	setEnvValue("WADASH_GATEWAY_URL", func(v string) { cfg.Gateway.URL = v })
	setEnvValue("WADASH_GATEWAY_TOKEN", func(v string) { cfg.Gateway.Token = v })
	setEnvValue("WADASH_GATEWAY_WEBHOOK", func(v string) { cfg.Gateway.WebhookURL = v })

	if cfg.Logger.Filename == "" {
		cfg.Logger.Filename = filepath.Join(cfg.System.Workdir, "wadash.log")
	}

	return cfg
}
