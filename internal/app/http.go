package app

import (
	"context"

	"github.com/maikschneider/oauth2/internal/auth/credentials"
	"github.com/maikschneider/oauth2/internal/auth/handler"
	"github.com/maikschneider/oauth2/internal/auth/login"
	"github.com/maikschneider/oauth2/internal/auth/provider"
	"github.com/maikschneider/oauth2/internal/auth/provider/github"
	"github.com/maikschneider/oauth2/internal/auth/provider/gitlab"
	"github.com/maikschneider/oauth2/internal/auth/provider/google"
	"github.com/maikschneider/oauth2/internal/auth/resolver"
	"github.com/maikschneider/oauth2/internal/auth/state"
	"github.com/maikschneider/oauth2/internal/config"
	"github.com/maikschneider/oauth2/internal/logger"
	"github.com/maikschneider/oauth2/internal/middleware"
	"github.com/maikschneider/oauth2/internal/user"

	"github.com/gin-gonic/gin"
)

func setupHTTP(ctx context.Context, cfg config.Config) (*gin.Engine, func() error, error) {

	infra, err := setupInfra(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	// ----------------------------
	// Dependencies
	// ----------------------------

	userStore := user.NewPostgresStore(infra.db)
	guard := state.NewGuard(infra.sessions)
	accountResolver := resolver.NewStoreResolver(userStore)

	registry, err := setupProviders(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	flow := login.NewService(registry, guard, accountResolver)
	creds := credentials.NewService(userStore)

	authHandler := handler.NewHandler(flow, creds, infra.sessions)
	authMiddleware := middleware.NewAuthMiddleware(infra.sessions)

	// ----------------------------
	// Router
	// ----------------------------

	router := gin.New()
	router.Use(gin.Recovery())

	authHandler.RegisterRoutes(router)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	api.Use(authMiddleware.RequireAuth())

	api.GET("/me", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"user_id": c.GetInt64(middleware.ContextUserID),
		})
	})

	return router, func() error {
		return infra.db.Close()
	}, nil
}

// setupProviders registers every provider whose credentials are
// configured. GitLab is required; the others are optional.
func setupProviders(ctx context.Context, cfg config.Config) (*provider.Registry, error) {

	var providers []provider.Provider

	gitlabProvider, err := gitlab.New(
		cfg.GitLabAppID,
		cfg.GitLabAppSecret,
		cfg.GitLabServer,
		cfg.GitLabRedirectURL,
		cfg.GitLabProject,
	)
	if err != nil {
		return nil, err
	}
	providers = append(providers, gitlabProvider)

	if cfg.GitHubClientID != "" {
		githubProvider, err := github.New(
			cfg.GitHubClientID,
			cfg.GitHubClientSecret,
			cfg.GitHubRedirectURL,
			cfg.GitHubAdminOrg,
		)
		if err != nil {
			return nil, err
		}
		providers = append(providers, githubProvider)
	}

	if cfg.GoogleClientID != "" {
		googleProvider, err := google.New(
			ctx,
			cfg.GoogleClientID,
			cfg.GoogleClientSecret,
			cfg.GoogleRedirectURL,
			cfg.GoogleAdminDomain,
		)
		if err != nil {
			return nil, err
		}
		providers = append(providers, googleProvider)
	}

	registry := provider.NewRegistry(providers...)

	logger.Info("oauth providers registered", map[string]any{
		"providers": registry.Names(),
	})

	return registry, nil
}
