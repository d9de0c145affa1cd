package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Chrome    ChromeConfig
	Log       LogConfig
	Recorder  RecorderConfig
	Retention RetentionConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Mode         string
	ReadTimeout  int
	WriteTimeout int
}

type DatabaseConfig struct {
	Driver   string // mysql or memory
	Host     string
	Port     string
	Username string
	Password string
	Database string
	Charset  string
}

type JWTConfig struct {
	Enabled    bool
	Secret     string
	ExpireTime int
}

type ChromeConfig struct {
	ExecPath     string
	HeadlessMode bool
	DebugPort    int
	UserAgent    string
}

type LogConfig struct {
	Level  string
	Format string // console or json
	File   string
}

type RecorderConfig struct {
	ScreenshotTimeout  time.Duration
	ScreencastInterval time.Duration
	RecordingsDir      string
}

type RetentionConfig struct {
	Days     int
	Schedule string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_MODE", "debug")
	v.SetDefault("SERVER_READ_TIMEOUT", 30)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 30)

	v.SetDefault("STORE_DRIVER", "memory")
	v.SetDefault("DB_HOST", "127.0.0.1")
	v.SetDefault("DB_PORT", "3306")
	v.SetDefault("DB_USERNAME", "root")
	v.SetDefault("DB_PASSWORD", "root")
	v.SetDefault("DB_NAME", "steprecorder")
	v.SetDefault("DB_CHARSET", "utf8mb4")

	v.SetDefault("AUTH_ENABLED", false)
	v.SetDefault("JWT_SECRET", "steprecorder-secret-key")
	v.SetDefault("JWT_EXPIRE_TIME", 24*3600)

	v.SetDefault("CHROME_PATH", "")
	v.SetDefault("CHROME_HEADLESS", false)
	v.SetDefault("CHROME_DEBUG_PORT", 0)
	v.SetDefault("CHROME_USER_AGENT", "")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("LOG_FILE", "")

	v.SetDefault("RECORDER_SCREENSHOT_TIMEOUT", "3s")
	v.SetDefault("SCREENCAST_INTERVAL", "500ms")
	v.SetDefault("RECORDINGS_DIR", "./recordings")

	v.SetDefault("RECORDING_RETENTION_DAYS", 7)
	v.SetDefault("RETENTION_CRON", "0 0 3 * * *")
}

// LoadConfig reads configuration from the environment, after loading a
// .env file from the working directory when one exists.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	config := &Config{
		Server: ServerConfig{
			Port:         v.GetString("SERVER_PORT"),
			Host:         v.GetString("SERVER_HOST"),
			Mode:         v.GetString("SERVER_MODE"),
			ReadTimeout:  v.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout: v.GetInt("SERVER_WRITE_TIMEOUT"),
		},
		Database: DatabaseConfig{
			Driver:   strings.ToLower(v.GetString("STORE_DRIVER")),
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			Username: v.GetString("DB_USERNAME"),
			Password: v.GetString("DB_PASSWORD"),
			Database: v.GetString("DB_NAME"),
			Charset:  v.GetString("DB_CHARSET"),
		},
		JWT: JWTConfig{
			Enabled:    v.GetBool("AUTH_ENABLED"),
			Secret:     v.GetString("JWT_SECRET"),
			ExpireTime: v.GetInt("JWT_EXPIRE_TIME"),
		},
		Chrome: ChromeConfig{
			ExecPath:     v.GetString("CHROME_PATH"),
			HeadlessMode: v.GetBool("CHROME_HEADLESS"),
			DebugPort:    v.GetInt("CHROME_DEBUG_PORT"),
			UserAgent:    v.GetString("CHROME_USER_AGENT"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
			File:   v.GetString("LOG_FILE"),
		},
		Recorder: RecorderConfig{
			ScreenshotTimeout:  v.GetDuration("RECORDER_SCREENSHOT_TIMEOUT"),
			ScreencastInterval: v.GetDuration("SCREENCAST_INTERVAL"),
			RecordingsDir:      v.GetString("RECORDINGS_DIR"),
		},
		Retention: RetentionConfig{
			Days:     v.GetInt("RECORDING_RETENTION_DAYS"),
			Schedule: v.GetString("RETENTION_CRON"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "mysql", "memory":
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q (want mysql or memory)", c.Database.Driver)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("unsupported LOG_FORMAT %q (want console or json)", c.Log.Format)
	}
	if c.Recorder.ScreenshotTimeout <= 0 {
		return fmt.Errorf("RECORDER_SCREENSHOT_TIMEOUT must be positive")
	}
	if c.Recorder.ScreencastInterval <= 0 {
		return fmt.Errorf("SCREENCAST_INTERVAL must be positive")
	}
	if c.JWT.Enabled && c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required when AUTH_ENABLED is set")
	}
	return nil
}

func (c *Config) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=%s&parseTime=True&loc=Local",
		c.Database.Username,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.Charset,
	)
}
