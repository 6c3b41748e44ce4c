package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel    string      `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	Connection  Connection  `yaml:"connection"`
	Gameplay    Gameplay    `yaml:"gameplay"`
	Matchmaking Matchmaking `yaml:"matchmaking"`
	Redis       Redis       `yaml:"redis"`
}

type Connection struct {
	Endpoint             string        `yaml:"endpoint" env:"GAME_SERVER_ENDPOINT" env-default:""`
	ProductionURL        string        `yaml:"production-url" env-default:"wss://connect4.rocketscience.games/ws"`
	BaseURL              string        `yaml:"base-url" env:"GAME_SERVER_BASE_URL" env-default:""`
	LocalURL             string        `yaml:"local-url" env-default:"ws://localhost:8080/ws"`
	DialTimeout          time.Duration `yaml:"dial-timeout" env-default:"10s"`
	WriteTimeout         time.Duration `yaml:"write-timeout" env-default:"10s"`
	PingInterval         time.Duration `yaml:"ping-interval" env-default:"30s"`
	InitialRetryDelay    time.Duration `yaml:"initial-retry-delay" env-default:"1s"`
	MaxReconnectAttempts int           `yaml:"max-reconnect-attempts" env-default:"5"`
}

type Gameplay struct {
	PendingMoveTimeout time.Duration `yaml:"pending-move-timeout" env-default:"2s"`
}

type Matchmaking struct {
	WaitTimeout time.Duration `yaml:"wait-timeout" env-default:"10s"`
	RejoinDelay time.Duration `yaml:"rejoin-delay" env-default:"500ms"`
}

type Redis struct {
	Host string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		panic(fmt.Errorf("unable to load config file: %w", err))
	}

	return config
}

// Candidates - builds the ordered endpoint list tried in rotation across
// connection attempts: explicit override, production address, an address
// derived from the HTTP base URL, local development fallback.
func (that *Connection) Candidates() []string {
	candidates := make([]string, 0, 4)

	if that.Endpoint != "" {
		candidates = append(candidates, that.Endpoint)
	}

	if that.ProductionURL != "" {
		candidates = append(candidates, that.ProductionURL)
	}

	if derived := deriveEndpoint(that.BaseURL); derived != "" {
		candidates = append(candidates, derived)
	}

	if that.LocalURL != "" {
		candidates = append(candidates, that.LocalURL)
	}

	return candidates
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}

// deriveEndpoint - maps an HTTP origin onto its WebSocket endpoint.
func deriveEndpoint(baseURL string) string {
	if baseURL == "" {
		return ""
	}

	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Host == "" {
		return ""
	}

	scheme := "ws"
	if parsed.Scheme == "https" || parsed.Scheme == "wss" {
		scheme = "wss"
	}

	path := strings.TrimSuffix(parsed.Path, "/")
	if !strings.HasSuffix(path, "/ws") {
		path += "/ws"
	}

	return fmt.Sprintf("%s://%s%s", scheme, parsed.Host, path)
}
