package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config holds the server settings.
type Config struct {
	Server struct {
		Host            string
		Port            int
		LogLevel        string
		StaticDir       string
		ShutdownTimeout time.Duration
	}
	WebSocket struct {
		ReadBufferSize  int
		WriteBufferSize int
		MaxMessageSize  int64
		SendBuffer      int
		WriteWait       time.Duration
		PongWait        time.Duration
		PingPeriod      time.Duration
		AllowedOrigins  []string
	}
	Ngrok struct {
		Enabled   bool
		AuthToken string
		Domain    string
	}
}

// Load reads defaults, then the optional config file at path, then the
// environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.static_dir", "")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("websocket.read_buffer_size", 1024)
	v.SetDefault("websocket.write_buffer_size", 1024)
	v.SetDefault("websocket.max_message_size", 64*1024)
	v.SetDefault("websocket.send_buffer", 256)
	v.SetDefault("websocket.write_wait", "10s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.ping_period", "54s")
	v.SetDefault("websocket.allowed_origins", []string{})

	v.SetDefault("ngrok.enabled", false)

	// Map envs
	v.BindEnv("server.host", "HOST")
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.log_level", "LOG_LEVEL")
	v.BindEnv("server.static_dir", "STATIC_DIR")
	v.BindEnv("server.shutdown_timeout", "SHUTDOWN_TIMEOUT")

	v.BindEnv("websocket.max_message_size", "WS_MAX_MESSAGE_SIZE")
	v.BindEnv("websocket.send_buffer", "WS_SEND_BUFFER")
	v.BindEnv("websocket.pong_wait", "WS_PONG_WAIT")
	v.BindEnv("websocket.ping_period", "WS_PING_PERIOD")
	v.BindEnv("websocket.allowed_origins", "WS_ALLOWED_ORIGINS")

	v.BindEnv("ngrok.enabled", "NGROK_ENABLED")
	v.BindEnv("ngrok.auth_token", "NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN")
	v.BindEnv("ngrok.domain", "NGROK_DOMAIN")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var c Config
	c.Server.Host = v.GetString("server.host")
	c.Server.Port = v.GetInt("server.port")
	c.Server.LogLevel = v.GetString("server.log_level")
	c.Server.StaticDir = v.GetString("server.static_dir")
	c.Server.ShutdownTimeout = v.GetDuration("server.shutdown_timeout")

	c.WebSocket.ReadBufferSize = v.GetInt("websocket.read_buffer_size")
	c.WebSocket.WriteBufferSize = v.GetInt("websocket.write_buffer_size")
	c.WebSocket.MaxMessageSize = v.GetInt64("websocket.max_message_size")
	c.WebSocket.SendBuffer = v.GetInt("websocket.send_buffer")
	c.WebSocket.WriteWait = v.GetDuration("websocket.write_wait")
	c.WebSocket.PongWait = v.GetDuration("websocket.pong_wait")
	c.WebSocket.PingPeriod = v.GetDuration("websocket.ping_period")
	c.WebSocket.AllowedOrigins = splitList(v.GetStringSlice("websocket.allowed_origins"))

	c.Ngrok.Enabled = v.GetBool("ngrok.enabled")
	c.Ngrok.AuthToken = v.GetString("ngrok.auth_token")
	c.Ngrok.Domain = v.GetString("ngrok.domain")

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks settings that would otherwise fail at runtime.
func (c Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Server.Port)
	}
	if _, err := parseLevel(c.Server.LogLevel); err != nil {
		return err
	}
	if c.WebSocket.MaxMessageSize <= 0 {
		return fmt.Errorf("%w: websocket max message size must be positive", ErrInvalidConfig)
	}
	if c.WebSocket.SendBuffer <= 0 {
		return fmt.Errorf("%w: websocket send buffer must be positive", ErrInvalidConfig)
	}
	if c.WebSocket.PingPeriod <= 0 || c.WebSocket.PingPeriod >= c.WebSocket.PongWait {
		return fmt.Errorf("%w: websocket ping period %v must be positive and less than pong wait %v",
			ErrInvalidConfig, c.WebSocket.PingPeriod, c.WebSocket.PongWait)
	}
	return nil
}

// Addr returns the host:port the HTTP server listens on.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// Level returns the configured log level.
func (c Config) Level() zapcore.Level {
	level, _ := parseLevel(c.Server.LogLevel)
	return level
}

func parseLevel(s string) (zapcore.Level, error) {
	level, err := zapcore.ParseLevel(s)
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("%w: log level %q", ErrInvalidConfig, s)
	}
	return level, nil
}

// splitList accepts both list values and comma separated strings.
func splitList(values []string) []string {
	var result []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				result = append(result, part)
			}
		}
	}
	return result
}
