package handlers

import (
	"github.com/SscSPs/book_lending_app/cmd/docs"
	portsrepo "github.com/SscSPs/book_lending_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/book_lending_app/internal/core/ports/services"
	"github.com/SscSPs/book_lending_app/internal/middleware"
	"github.com/SscSPs/book_lending_app/internal/platform/config"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// RegisterRoutes sets up all application routes, injecting dependencies using interfaces.
// idempotency may be nil, in which case Idempotency-Key headers are ignored.
func RegisterRoutes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
	idempotency portsrepo.IdempotencyStore,
) error {
	r.GET("/health", getHealth)

	if err := registerAuthRoutes(r, cfg, services.Directory); err != nil {
		return err
	}

	if err := setupAPIV1Routes(r, cfg, services, idempotency); err != nil {
		return err
	}

	setupSwaggerRoutes(r, cfg)
	return nil
}

// setupAPIV1Routes configures the /api/v1 group and delegates to specific route registrations
func setupAPIV1Routes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
	idempotency portsrepo.IdempotencyStore,
) error {
	apiLimiter, err := middleware.NewRateLimiter(cfg.RateLimit)
	if err != nil {
		return err
	}

	v1 := r.Group("/api/v1",
		middleware.RateLimit(apiLimiter),
		middleware.AuthMiddleware(cfg.JWTSecret),
		middleware.RequestCache(),
	)

	RegisterBorrowingRoutes(v1, services.Ledger, idempotency, cfg.TxRetryAttempts)
	RegisterReturnRoutes(v1, services.Returns, services.Ledger, cfg.TxRetryAttempts)
	RegisterFinePolicyRoutes(v1, services.Policy)
	return nil
}

// setupSwaggerRoutes configures the swagger documentation routes
func setupSwaggerRoutes(r *gin.Engine, cfg *config.Config) {
	if cfg.IsProduction {
		//no swagger in prod
		return
	}
	docs.SwaggerInfo.BasePath = "/api/v1"
	swagger := r.Group("/swagger")
	swagger.GET("/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}
