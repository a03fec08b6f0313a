package server

import (
	"fmt"
	"net/http"
	"time"

	"catalogo-api/internal/client"
	"catalogo-api/internal/config"
	"catalogo-api/internal/database"
	custommiddleware "catalogo-api/internal/middleware"
	"catalogo-api/internal/proxy"
	"catalogo-api/internal/repository"
	"catalogo-api/internal/service"
	"catalogo-api/internal/storage"
	"catalogo-api/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	logger *zap.Logger
}

// NewAPIServer wires the server tier: Mongo-backed repositories, the disk
// photo store and the product orchestrator behind the /api/v2 routes.
func NewAPIServer(cfg *config.Config, logger *zap.Logger, db *mongo.Database, redisClient *redis.Client) (*Server, error) {
	router := newRouter(cfg, logger, redisClient)

	photoStore, err := storage.NewDiskPhotoStore(cfg.Upload.Path)
	if err != nil {
		return nil, err
	}

	productRepo := repository.NewProductRepository(db.Collection(database.ProductsCollection))
	categoryRepo := repository.NewCategoryRepository(db.Collection(database.CategoriesCollection))
	productService := service.NewProductService(productRepo, photoStore, service.NewValidator())

	transport.NewProductHandler(productService, logger).RegisterRoutes(router)
	transport.NewCategoryHandler(categoryRepo, logger).RegisterRoutes(router)

	return newServer(cfg.Server.Port, router, logger), nil
}

// NewProxyServer wires the client tier: a downstream product client behind
// the /api/client routes.
func NewProxyServer(cfg *config.Config, logger *zap.Logger, redisClient *redis.Client) *Server {
	router := newRouter(cfg, logger, redisClient)

	productClient := client.NewProductClient(cfg.Backend.ProductsURL, &http.Client{}, logger)
	proxy.NewProductHandler(productClient, logger).RegisterRoutes(router)

	return newServer(cfg.Proxy.Port, router, logger)
}

func newRouter(cfg *config.Config, logger *zap.Logger, redisClient *redis.Client) chi.Router {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(custommiddleware.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.Server.Env == "development"))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))

	if cfg.RateLimit.Enabled && redisClient != nil {
		router.Use(custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimit.RequestsPerWindow,
			Window:            time.Duration(cfg.RateLimit.WindowSeconds) * time.Second,
			KeyPrefix:         "ratelimit",
		}, logger))
	}

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	return router
}

func newServer(port string, router chi.Router, logger *zap.Logger) *Server {
	return &Server{
		Server: &http.Server{
			Addr:        fmt.Sprintf(":%s", port),
			Handler:     router,
			IdleTimeout: time.Minute,
			ReadTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")
	s.logger.Sync()
	return nil
}
