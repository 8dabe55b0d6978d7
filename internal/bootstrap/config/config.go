package config

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"qcflow/internal/bootstrap/logging"
	"qcflow/internal/errs"
)

type Config struct {
	App      AppConfig      `mapstructure:"app" yaml:"app"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Workflow WorkflowConfig `mapstructure:"workflow" yaml:"workflow"`
	Identity IdentityConfig `mapstructure:"identity" yaml:"identity"`
	Events   EventsConfig   `mapstructure:"events" yaml:"events"`
	HTTP     HTTPConfig     `mapstructure:"http" yaml:"http"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
}

type AppConfig struct {
	Name string `mapstructure:"name" yaml:"name"`
	Env  string `mapstructure:"env" yaml:"env"`
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver" yaml:"driver"`
	DSN          string `mapstructure:"dsn" yaml:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns" yaml:"max_open_conns"`
	AutoMigrate  bool   `mapstructure:"auto_migrate" yaml:"auto_migrate"`
}

type WorkflowConfig struct {
	OperationTimeout time.Duration `mapstructure:"operation_timeout" yaml:"operation_timeout"`
	RequestTTL       time.Duration `mapstructure:"request_ttl" yaml:"request_ttl"`
	MaxCommentLength int           `mapstructure:"max_comment_length" yaml:"max_comment_length"`
	CommentPageSize  int           `mapstructure:"comment_page_size" yaml:"comment_page_size"`
}

type IdentityConfig struct {
	RosterFile string        `mapstructure:"roster_file" yaml:"roster_file"`
	Watch      bool          `mapstructure:"watch" yaml:"watch"`
	CacheTTL   time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`
}

type EventsConfig struct {
	NATSURL       string `mapstructure:"nats_url" yaml:"nats_url"`
	SubjectPrefix string `mapstructure:"subject_prefix" yaml:"subject_prefix"`
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr" yaml:"addr"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

func Load(ctx context.Context, configFile string) (Config, error) {
	if ctx == nil {
		return Config{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return Config{}, errs.Wrap(err, "check context")
	}

	logCtx := logging.WithComponent(ctx, "bootstrap.config")

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("QC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile == "" && errors.As(err, &notFound) {
			logging.Warn(logCtx, "config file not found, fallback to defaults and env")
		} else {
			return Config{}, errs.Wrap(err, "read config")
		}
	} else {
		logging.Info(logCtx, "using config file", slog.String("path", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errs.Wrap(err, "unmarshal config")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	logging.Info(
		logCtx,
		"config loaded",
		slog.String("app", cfg.App.Name),
		slog.String("env", cfg.App.Env),
		slog.String("database_driver", cfg.Database.Driver),
	)

	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("database.dsn is required")
	}
	if c.Workflow.OperationTimeout < 0 {
		return errors.New("workflow.operation_timeout must be >= 0")
	}
	if c.Workflow.RequestTTL <= 0 {
		return errors.New("workflow.request_ttl must be > 0")
	}
	if c.Workflow.MaxCommentLength <= 0 {
		return errors.New("workflow.max_comment_length must be > 0")
	}
	if c.Workflow.CommentPageSize <= 0 {
		return errors.New("workflow.comment_page_size must be > 0")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "qcflow")
	v.SetDefault("app.env", "local")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", ".qcflow/state/qcflow.sqlite")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("workflow.operation_timeout", 5*time.Second)
	v.SetDefault("workflow.request_ttl", 24*time.Hour)
	v.SetDefault("workflow.max_comment_length", 5000)
	v.SetDefault("workflow.comment_page_size", 100)

	v.SetDefault("identity.roster_file", "configs/roster.toml")
	v.SetDefault("identity.watch", true)
	v.SetDefault("identity.cache_ttl", 30*time.Second)

	v.SetDefault("events.nats_url", "")
	v.SetDefault("events.subject_prefix", "qc.issues")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("http.shutdown_timeout", 15*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}
