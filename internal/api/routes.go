// routes.go - Route registration helpers
// This file provides a clean way to register all API routes
package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/invoice-intake/backend/internal/query"
	"github.com/invoice-intake/backend/internal/storage"
	"github.com/invoice-intake/backend/internal/store"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Store         store.Store
	Files         storage.Store
	Ingester      Ingester
	Hub           *InvoiceHub
	QueryDefaults query.Defaults
	Version       string
	Logger        *slog.Logger
}

// Handlers holds all handler instances
type Handlers struct {
	Health  HealthHandler
	Invoice InvoiceHandler
	Upload  UploadHandler
	Feed    FeedHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	h := &Handlers{
		Health:  NewHealthHandler(deps.Version),
		Invoice: NewInvoiceHandler(deps.Store, deps.Files, deps.QueryDefaults),
		Upload:  NewUploadHandler(deps.Ingester, deps.Logger),
	}
	if deps.Hub != nil {
		h.Feed = deps.Hub
	}
	return h
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	apiGroup := e.Group("/api")
	apiGroup.GET("/health", handlers.Health.HandleHealth)

	invoiceGroup := apiGroup.Group("/invoices")
	invoiceGroup.GET("", handlers.Invoice.HandleListInvoices)
	invoiceGroup.GET("/msgpack", handlers.Invoice.HandleListInvoicesMsgpack)
	invoiceGroup.POST("/upload", handlers.Upload.HandleUploadInvoices)
	invoiceGroup.GET("/:id", handlers.Invoice.HandleGetInvoice)
	invoiceGroup.GET("/:id/file", handlers.Invoice.HandleGetInvoiceFile)

	if handlers.Feed != nil {
		apiGroup.GET("/ws/invoices", handlers.Feed.HandleInvoiceFeed)
	}
}

// MiddlewareConfig selects the optional middleware
type MiddlewareConfig struct {
	Logger           *slog.Logger
	RequestLogging   bool
	BodyLimit        string
	EnableCORS       bool
	AllowOrigins     string
	Compression      bool
	CompressionLevel int
}

// SetupMiddleware configures common middleware
func SetupMiddleware(e *echo.Echo, cfg MiddlewareConfig) {
	e.HTTPErrorHandler = ErrorHandler

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 * 1024,
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			slog.Error("Recovered from panic",
				slog.String("path", c.Request().URL.Path),
				slog.Any("error", err),
				slog.String("stack", string(stack)),
			)
			return err
		},
	}))

	if cfg.RequestLogging {
		logger := cfg.Logger
		if logger == nil {
			logger = slog.Default()
		}
		e.Use(RequestLogger(logger.With(slog.String("component", "http"))))
	}

	e.Use(Metrics())

	if cfg.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.BodyLimit))
	}

	if cfg.EnableCORS {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: splitOrigins(cfg.AllowOrigins),
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}

	if cfg.Compression {
		e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
			Level: cfg.CompressionLevel,
			Skipper: func(c echo.Context) bool {
				// websocket upgrades and file downloads are not compressed
				path := c.Request().URL.Path
				return strings.HasPrefix(path, "/api/ws/") || strings.HasSuffix(path, "/file")
			},
		}))
	}
}

func splitOrigins(s string) []string {
	var origins []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return origins
}
