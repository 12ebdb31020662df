package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Bloque app (opcional en YAML). Si no está, queda vacío.
	App struct {
		// dev | staging | prod
		Env      string `yaml:"env"`
		LogLevel string `yaml:"log_level"`
	} `yaml:"app"`

	Server struct {
		Addr        string `yaml:"addr"`
		MetricsAddr string `yaml:"metrics_addr"`
		// BaseURL se usa para armar callback URLs relativas (callback sin esquema).
		BaseURL string `yaml:"base_url"`
		// StateSecret firma el parámetro `state` (JWT HS256) del flujo OAuth2.
		StateSecret string `yaml:"state_secret"`
		// SessionCookie es el nombre de la cookie que identifica el handshake en curso.
		SessionCookie string `yaml:"session_cookie"`
	} `yaml:"server"`

	Storage struct {
		// driver: postgres | memory
		Driver   string `yaml:"driver"`
		DSN      string `yaml:"dsn"`
		Postgres struct {
			MaxConns int `yaml:"max_conns"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	State struct {
		// kind: memory | redis
		Kind string `yaml:"kind"`
		// TTL en formato Go ("10m", "90s"). Ver StateTTL().
		TTL   string `yaml:"ttl"`
		Redis struct {
			Addr   string `yaml:"addr"`
			DB     int    `yaml:"db"`
			Prefix string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"state"`

	// Providers es la tabla anidada service → {keys, endpoints, ...}.
	Providers Settings `yaml:"providers"`
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	c.applyDefaults()
	c.applyEnvOverrides()
	return &c, nil
}

// Default retorna una configuración usable sin archivo (memory everything).
func Default() *Config {
	var c Config
	c.applyDefaults()
	c.applyEnvOverrides()
	return &c
}

func (c *Config) applyDefaults() {
	// sane defaults
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.MetricsAddr == "" {
		c.Server.MetricsAddr = ":9090"
	}
	if c.Server.SessionCookie == "" {
		c.Server.SessionCookie = "oauthbridge_sid"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.State.Kind == "" {
		c.State.Kind = "memory"
	}
	if c.State.TTL == "" {
		c.State.TTL = "10m"
	}
}

// StateTTL parsea State.TTL; un valor inválido cae al default de 10 minutos.
func (c *Config) StateTTL() time.Duration {
	if d, err := time.ParseDuration(c.State.TTL); err == nil && d > 0 {
		return d
	}
	return 10 * time.Minute
}

func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = v
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.App.LogLevel = v
	}
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvStr("METRICS_ADDR"); ok {
		c.Server.MetricsAddr = v
	}
	if v, ok := getEnvStr("BASE_URL"); ok {
		c.Server.BaseURL = v
	}
	if v, ok := getEnvStr("STATE_SECRET"); ok {
		c.Server.StateSecret = v
	}
	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = strings.ToLower(v)
	}
	if v, ok := getEnvStr("STORAGE_DSN"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvStr("STATE_KIND"); ok {
		c.State.Kind = strings.ToLower(v)
	}
	if v, ok := getEnvStr("STATE_TTL"); ok {
		if _, err := time.ParseDuration(v); err == nil {
			c.State.TTL = v
		}
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.State.Redis.Addr = v
	}
	if n, ok := getEnvInt("REDIS_DB"); ok {
		c.State.Redis.DB = n
	}
}

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

func getEnvInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	return n, err == nil
}
