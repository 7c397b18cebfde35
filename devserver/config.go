package devserver

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is the default environment prefix read by LoadConfig.
const EnvPrefix = "AUTHD"

// Config configures the development auth server.
type Config struct {
	Addr       string        `envconfig:"ADDR" default:":8080"`
	DSN        string        `envconfig:"DSN" default:"file:authd.db?cache=shared"`
	SigningKey string        `envconfig:"SIGNING_KEY" required:"true"`
	Issuer     string        `envconfig:"ISSUER" default:"storefront-authd"`
	TokenTTL   time.Duration `envconfig:"TOKEN_TTL" default:"15m"`
	RefreshTTL time.Duration `envconfig:"REFRESH_TTL" default:"168h"`
	BcryptCost int           `envconfig:"BCRYPT_COST" default:"12"`

	CookieName   string `envconfig:"COOKIE_NAME" default:"refresh_token"`
	CookiePath   string `envconfig:"COOKIE_PATH" default:"/api/auth"`
	CookieSecure bool   `envconfig:"COOKIE_SECURE"`

	SeedAdminUsername string `envconfig:"SEED_ADMIN_USERNAME"`
	SeedAdminPassword string `envconfig:"SEED_ADMIN_PASSWORD"`
	SeedAdminEmail    string `envconfig:"SEED_ADMIN_EMAIL"`
}

// LoadConfig reads a Config from the environment. An empty prefix uses
// EnvPrefix, so AUTHD_SIGNING_KEY is required.
func LoadConfig(prefix string) (Config, error) {
	if prefix == "" {
		prefix = EnvPrefix
	}
	c := Config{}
	err := envconfig.Process(prefix, &c)
	return c, err
}

func (c Config) withDefaults() Config {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.Issuer == "" {
		c.Issuer = "storefront-authd"
	}
	if c.TokenTTL <= 0 {
		c.TokenTTL = 15 * time.Minute
	}
	if c.RefreshTTL <= 0 {
		c.RefreshTTL = 7 * 24 * time.Hour
	}
	if c.BcryptCost <= 0 {
		c.BcryptCost = 12
	}
	if c.CookieName == "" {
		c.CookieName = "refresh_token"
	}
	if c.CookiePath == "" {
		c.CookiePath = "/api/auth"
	}
	return c
}
