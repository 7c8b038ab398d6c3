// Package handler exposes the warehouse services over the local HTTP API
// and the cloud RPC endpoint.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/api"
	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/service"
	"github.com/craftandculture/Craft-Culture-sub006/pkg/actor"
	"github.com/craftandculture/Craft-Culture-sub006/pkg/httputil"
	"github.com/craftandculture/Craft-Culture-sub006/pkg/logger"
	"github.com/craftandculture/Craft-Culture-sub006/pkg/messaging"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Services groups the warehouse services behind both APIs
type Services struct {
	Directory *service.DirectoryService
	Ledger    *service.LedgerService
	PickLists *service.PickListService
}

// RouterConfig configures NewRouter
type RouterConfig struct {
	ServiceName string
	// Role is reported by /health ("edge" or "cloud")
	Role        string
	CORSOrigins []string
	// Health adds dependency status to /health. Optional.
	Health func(ctx context.Context) map[string]interface{}
}

// NewRouter builds the HTTP router serving the local API, the RPC endpoint
// and the health check.
func NewRouter(svc Services, cfg RouterConfig, log *logger.Logger) http.Handler {
	locationHandler := NewLocationHandler(svc.Directory, log)
	stockHandler := NewStockHandler(svc.Ledger, log)
	pickListHandler := NewPickListHandler(svc.PickLists, log)
	rpcHandler := NewRPCHandler(svc, log)

	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(actor.Middleware)
	r.Use(correlate)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(middleware.Timeout(60 * time.Second))

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID", actor.HeaderUserID, actor.HeaderUserName},
		ExposedHeaders: []string{"X-Request-ID", "Content-Disposition"},
		MaxAge:         300,
	}))

	r.Get(api.HealthPath, func(w http.ResponseWriter, r *http.Request) {
		status := map[string]interface{}{
			"status":  "healthy",
			"service": cfg.ServiceName,
			"role":    cfg.Role,
		}
		if cfg.Health != nil {
			for k, v := range cfg.Health(r.Context()) {
				status[k] = v
			}
		}
		httputil.JSON(w, http.StatusOK, status)
	})

	r.Route(api.PathPrefix, func(r chi.Router) {
		// Handheld operations
		r.Post("/scan-location", locationHandler.ScanLocation)
		r.Post("/scan-case", stockHandler.ScanCase)
		r.Post("/transfer", stockHandler.Transfer)
		r.Post("/putaway", stockHandler.Putaway)
		r.Post("/receive", stockHandler.Receive)
		r.Post("/pick-item", pickListHandler.PickItem)
		r.Post("/pick-complete", pickListHandler.Complete)

		// Pick lists
		r.Get("/pick-lists", pickListHandler.List)
		r.Post("/pick-lists", pickListHandler.Create)
		r.Route("/pick-list/{id}", func(r chi.Router) {
			r.Get("/", pickListHandler.Get)
			r.Post("/cancel", pickListHandler.Cancel)
			r.Post("/dispatch", pickListHandler.Dispatch)
		})

		// Location directory
		r.Route("/locations", func(r chi.Router) {
			r.Get("/", locationHandler.List)
			r.Post("/", locationHandler.Create)
			r.Post("/import", locationHandler.Import)
			r.Get("/{id}", locationHandler.Get)
		})
		r.Get("/labels.xlsx", locationHandler.LabelSheet)
		r.Get("/labels/totems", locationHandler.Totems)

		// Ledger
		r.Get("/stock/{lwin18}/movements", stockHandler.Movements)
		r.Get("/stock/{lwin18}/reconcile", stockHandler.Reconcile)
		r.Get("/shipments/{id}/receipts", stockHandler.Receipts)
	})

	r.Post(api.RPCPath, rpcHandler.Call)

	return r
}

// correlate tags events published while serving a request with its request ID
func correlate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := messaging.WithCorrelationID(r.Context(), httputil.GetRequestID(r.Context()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
