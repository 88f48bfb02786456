package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel  string    `yaml:"log-level" env:"SEABATTLE_LOG_LEVEL" env-default:"info"`
	LogFormat string    `yaml:"log-format" env-default:"json"`
	Server    Server    `yaml:"server"`
	Player    Player    `yaml:"player"`
	Reconnect Reconnect `yaml:"reconnect"`
	Metrics   Metrics   `yaml:"metrics"`
	DevServer DevServer `yaml:"dev-server"`
	Redis     Redis     `yaml:"redis"`
}

// Server is the game server endpoint the client connects to.
type Server struct {
	Scheme           string        `yaml:"scheme" env-default:"ws"`
	Host             string        `yaml:"host" env:"SEABATTLE_SERVER_HOST" env-default:"localhost:8000"`
	Path             string        `yaml:"path" env-default:"/ws/game/"`
	HandshakeTimeout time.Duration `yaml:"handshake-timeout" env-default:"10s"`
}

type Player struct {
	Username string `yaml:"username" env:"SEABATTLE_USERNAME"`
	UserHash string `yaml:"user-hash" env:"SEABATTLE_USER_HASH"`
}

type Reconnect struct {
	MaxAttempts         int           `yaml:"max-attempts" env-default:"5"`
	InitialInterval     time.Duration `yaml:"initial-interval" env-default:"500ms"`
	MaxInterval         time.Duration `yaml:"max-interval" env-default:"10s"`
	Multiplier          float64       `yaml:"multiplier" env-default:"2"`
	RandomizationFactor float64       `yaml:"randomization-factor" env-default:"0.5"`
}

type Metrics struct {
	Addr string `yaml:"addr" env-default:""`
}

type DevServer struct {
	Port       string        `yaml:"port" env-default:"8000"`
	AuthSecret string        `yaml:"auth-secret" env:"SEABATTLE_AUTH_SECRET" env-default:""`
	RoomTTL    time.Duration `yaml:"room-ttl" env-default:"1h"`
}

type Redis struct {
	Host string `yaml:"host" env-default:"localhost"`
	Port string `yaml:"port" env-default:"6379"`
}

// Load reads path when it is set, otherwise only the environment and defaults.
func Load(path string) (*Config, error) {
	config := &Config{}

	if path == "" {
		if err := cleanenv.ReadEnv(config); err != nil {
			return nil, fmt.Errorf("unable to load config from environment: %w", err)
		}

		return config, nil
	}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		return nil, fmt.Errorf("unable to load config file: %w", err)
	}

	return config, nil
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}

// GetEndpoint builds the game socket URL for a player.
func (that *Server) GetEndpoint(username, userHash string) string {
	query := url.Values{}
	query.Set("username", username)
	query.Set("user_hash", userHash)

	endpoint := url.URL{
		Scheme:   that.Scheme,
		Host:     that.Host,
		Path:     that.Path,
		RawQuery: query.Encode(),
	}

	return endpoint.String()
}
