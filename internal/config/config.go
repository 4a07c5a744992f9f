package config

import (
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	AppPort string `env:"APP_PORT" envDefault:"8080"`

	DatabaseDSN string `env:"DATABASE_DSN"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	// GitLab is the primary provider. Server may point at a self-hosted
	// instance; Project names the repository whose membership grants
	// admin rights.
	GitLabAppID       string `env:"GITLAB_APP_ID"`
	GitLabAppSecret   string `env:"GITLAB_APP_SECRET"`
	GitLabServer      string `env:"GITLAB_SERVER" envDefault:"https://gitlab.com"`
	GitLabRedirectURL string `env:"GITLAB_REDIRECT_URL"`
	GitLabProject     string `env:"GITLAB_PROJECT"`

	GitHubClientID     string `env:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string `env:"GITHUB_CLIENT_SECRET"`
	GitHubRedirectURL  string `env:"GITHUB_REDIRECT_URL"`
	GitHubAdminOrg     string `env:"GITHUB_ADMIN_ORG"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `env:"GOOGLE_REDIRECT_URL"`
	GoogleAdminDomain  string `env:"GOOGLE_ADMIN_DOMAIN"`
}

func Load() (Config, error) {
	// .env is optional; real deployments inject the environment directly.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
