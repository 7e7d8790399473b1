// Package config carga el YAML del servicio con overrides por env.
// Los secretos NUNCA se leen del YAML: viajan solo por variables de entorno.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type ProviderConfig struct {
	Enabled      bool     `yaml:"enabled"`
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"` // override por env SOCIALVAULT_<PROVIDER>_CLIENT_SECRET
	RedirectURI  string   `yaml:"redirect_uri"`  // si vacío => <server.public_url>/v1/connect/<provider>/callback
	Scopes       []string `yaml:"scopes"`
}

type RouteRate struct {
	Limit  int    `yaml:"limit"`
	Window string `yaml:"window"`
}

type Config struct {
	App struct {
		// dev | staging | prod
		Env string `yaml:"app_env"`
	} `yaml:"app"`

	Server struct {
		Addr           string   `yaml:"addr"`
		PublicURL      string   `yaml:"public_url"` // base para autogenerar redirect URIs
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`

	Storage struct {
		// postgres | memory (memory solo para dev/tests)
		Driver string `yaml:"driver"`
		DSN    string `yaml:"dsn"`
	} `yaml:"storage"`

	Cache struct {
		// redis | memory; redis habilita limiter y nonce store compartidos
		Kind  string `yaml:"kind"`
		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	Security struct {
		// HS256 del state de connect; env SOCIALVAULT_STATE_SECRET
		StateSecret string `yaml:"-"`
		// HS256 de los service tokens hacia el workflow; env SOCIALVAULT_SERVICE_SECRET
		ServiceSecret string `yaml:"-"`
		// verificación de bearer tokens del frontend; env SOCIALVAULT_IDENTITY_SECRET
		IdentitySecret string `yaml:"-"`
		IdentityIssuer string `yaml:"identity_issuer"`
	} `yaml:"security"`

	Rate struct {
		Enabled      bool      `yaml:"enabled"`
		ConnectStart RouteRate `yaml:"connect_start"`
		KeysSave     RouteRate `yaml:"keys_save"`
		KeysValidate RouteRate `yaml:"keys_validate"`
		Refresh      RouteRate `yaml:"refresh"`
	} `yaml:"rate"`

	Providers map[string]ProviderConfig `yaml:"providers"`

	Workflow struct {
		BaseURL string `yaml:"base_url"`
	} `yaml:"workflow"`
}

// WindowDuration parsea la ventana del bucket; cero si está vacía o inválida.
func (r RouteRate) WindowDuration() time.Duration {
	if r.Window == "" {
		return 0
	}
	d, err := time.ParseDuration(r.Window)
	if err != nil {
		return 0
	}
	return d
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	// pre-seed: yaml solo pisa lo que el documento trae, así un `enabled`
	// ausente queda en true y un `enabled: false` explícito gana
	c.Rate.Enabled = true
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	// sane defaults
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "postgres"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.Redis.Prefix == "" {
		c.Cache.Redis.Prefix = "sv"
	}
	if c.Rate.ConnectStart.Limit == 0 {
		c.Rate.ConnectStart.Limit = 20
	}
	if c.Rate.KeysSave.Limit == 0 {
		c.Rate.KeysSave.Limit = 20
	}
	if c.Rate.KeysValidate.Limit == 0 {
		c.Rate.KeysValidate.Limit = 10
	}
	if c.Rate.Refresh.Limit == 0 {
		c.Rate.Refresh.Limit = 30
	}
	// ventana default de 15m para todos los buckets
	for _, rr := range []*RouteRate{&c.Rate.ConnectStart, &c.Rate.KeysSave, &c.Rate.KeysValidate, &c.Rate.Refresh} {
		if rr.Window == "" {
			rr.Window = "15m"
		}
		if _, err := time.ParseDuration(rr.Window); err != nil {
			return nil, fmt.Errorf("rate window inválida %q: %w", rr.Window, err)
		}
	}
	if c.Providers == nil {
		c.Providers = map[string]ProviderConfig{}
	}

	c.applyEnvOverrides()

	// redirect URIs autogeneradas desde public_url
	if base := strings.TrimRight(c.Server.PublicURL, "/"); base != "" {
		for name, p := range c.Providers {
			if p.Enabled && strings.TrimSpace(p.RedirectURI) == "" {
				p.RedirectURI = base + "/v1/connect/" + name + "/callback"
				c.Providers[name] = p
			}
		}
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// applyEnvOverrides pisa config con el entorno. Los secretos SOLO viven acá.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SOCIALVAULT_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("SOCIALVAULT_DSN"); v != "" {
		c.Storage.DSN = v
	}
	if v := os.Getenv("SOCIALVAULT_REDIS_ADDR"); v != "" {
		c.Cache.Kind = "redis"
		c.Cache.Redis.Addr = v
	}
	if v := os.Getenv("SOCIALVAULT_REDIS_PASSWORD"); v != "" {
		c.Cache.Redis.Password = v
	}
	c.Security.StateSecret = os.Getenv("SOCIALVAULT_STATE_SECRET")
	c.Security.ServiceSecret = os.Getenv("SOCIALVAULT_SERVICE_SECRET")
	c.Security.IdentitySecret = os.Getenv("SOCIALVAULT_IDENTITY_SECRET")
	if v := os.Getenv("SOCIALVAULT_WORKFLOW_URL"); v != "" {
		c.Workflow.BaseURL = v
	}

	// client secrets por provider: SOCIALVAULT_TWITTER_CLIENT_SECRET, etc.
	for name, p := range c.Providers {
		env := "SOCIALVAULT_" + strings.ToUpper(name) + "_CLIENT_SECRET"
		if v := os.Getenv(env); v != "" {
			p.ClientSecret = v
			c.Providers[name] = p
		}
	}
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case "postgres":
		if strings.TrimSpace(c.Storage.DSN) == "" {
			return fmt.Errorf("storage.dsn requerido con driver postgres")
		}
	case "memory":
		// dev/tests
	default:
		return fmt.Errorf("storage.driver desconocido: %q", c.Storage.Driver)
	}
	if c.Cache.Kind == "redis" && strings.TrimSpace(c.Cache.Redis.Addr) == "" {
		return fmt.Errorf("cache.redis.addr requerido con kind redis")
	}
	if len(c.Security.StateSecret) < 16 {
		return fmt.Errorf("SOCIALVAULT_STATE_SECRET requiere al menos 16 caracteres")
	}
	if len(c.Security.IdentitySecret) < 16 {
		return fmt.Errorf("SOCIALVAULT_IDENTITY_SECRET requiere al menos 16 caracteres")
	}
	// el service secret solo es obligatorio si hay workflow configurado
	if c.Workflow.BaseURL != "" && len(c.Security.ServiceSecret) < 16 {
		return fmt.Errorf("SOCIALVAULT_SERVICE_SECRET requiere al menos 16 caracteres")
	}
	return nil
}
