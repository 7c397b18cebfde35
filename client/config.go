package client

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is the default environment prefix read by LoadConfig.
const EnvPrefix = "STOREFRONT"

// Config locates the storefront auth endpoints.
type Config struct {
	BaseURL       string        `envconfig:"BASE_URL" required:"true"`
	LoginPath     string        `envconfig:"LOGIN_PATH" default:"/api/auth/login"`
	RefreshPath   string        `envconfig:"REFRESH_PATH" default:"/api/auth/refresh"`
	RegisterPath  string        `envconfig:"REGISTER_PATH" default:"/api/auth/register"`
	LogoutPath    string        `envconfig:"LOGOUT_PATH" default:"/api/auth/logout"`
	Timeout       time.Duration `envconfig:"TIMEOUT" default:"10s"`
	AllowInsecure bool          `envconfig:"ALLOW_INSECURE"`
}

// DefaultConfig returns the default endpoint layout rooted at baseURL.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:      baseURL,
		LoginPath:    "/api/auth/login",
		RefreshPath:  "/api/auth/refresh",
		RegisterPath: "/api/auth/register",
		LogoutPath:   "/api/auth/logout",
		Timeout:      10 * time.Second,
	}
}

// LoadConfig reads a Config from the environment. An empty prefix uses
// EnvPrefix, so STOREFRONT_BASE_URL is required.
func LoadConfig(prefix string) (Config, error) {
	if prefix == "" {
		prefix = EnvPrefix
	}
	c := Config{}
	err := envconfig.Process(prefix, &c)
	return c, err
}
