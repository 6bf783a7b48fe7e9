package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/maschat/masscoin-ledger/internal/api/handler"
	"github.com/maschat/masscoin-ledger/internal/api/middleware"
	"github.com/maschat/masscoin-ledger/internal/api/spec"
	"github.com/maschat/masscoin-ledger/internal/config"
	"github.com/maschat/masscoin-ledger/internal/service"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
)

type Router struct {
	cfg            *config.Config
	logger         *zap.Logger
	db             *pgxpool.Pool
	redis          redis.Cmdable
	ledger         *service.Ledger
	reconciliation *service.ReconciliationService
}

func NewRouter(cfg *config.Config, logger *zap.Logger, db *pgxpool.Pool, redisClient redis.Cmdable, ledger *service.Ledger, reconciliation *service.ReconciliationService) *Router {
	return &Router{
		cfg:            cfg,
		logger:         logger,
		db:             db,
		redis:          redisClient,
		ledger:         ledger,
		reconciliation: reconciliation,
	}
}

func (api *Router) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RecoverMiddleware(api.logger))
	r.Use(middleware.TraceMiddleware)
	r.Use(middleware.LoggingMiddleware(api.logger))
	r.Use(middleware.MetricsMiddleware)

	healthHandler := handler.NewHealthHandler(api.db, api.redis)
	walletHandler := handler.NewWalletHandler(api.ledger.Wallets)
	transferHandler := handler.NewTransferHandler(api.ledger.Transfers)
	requestHandler := handler.NewTransferRequestHandler(api.ledger.Requests)
	withdrawalHandler := handler.NewWithdrawalHandler(api.ledger.Withdrawals)
	statsHandler := handler.NewStatsHandler(api.ledger)
	adminHandler := handler.NewAdminHandler(api.ledger, api.reconciliation)

	// Public routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.PublicRateLimiter(api.cfg.PublicRateLimitRPS))

		r.Get("/healthz", healthHandler.Live)
		r.Get("/readyz", healthHandler.Ready)
		r.Get("/openapi.yaml", spec.OpenAPIHandler())
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/openapi.yaml"),
		))
	})

	r.Handle("/metrics", promhttp.Handler())

	// Authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware)
		r.Use(middleware.AuthRateLimiter(api.cfg.AuthRateLimitRPS))

		r.Route("/v1/wallet", func(r chi.Router) {
			r.Get("/", walletHandler.GetWallet)
			r.Put("/address", walletHandler.UpdateAddress)
			r.Post("/stake", walletHandler.Stake)
			r.Post("/unstake", walletHandler.Unstake)
		})

		r.Post("/v1/transfers", transferHandler.SendDirect)
		r.Post("/v1/tips", transferHandler.Tip)

		r.Route("/v1/transfer-requests", func(r chi.Router) {
			r.Post("/", requestHandler.Create)
			r.Get("/pending", requestHandler.ListPending)
			r.Get("/pending/count", requestHandler.CountPending)
			r.Post("/{requestID}/approve", requestHandler.Approve)
			r.Post("/{requestID}/reject", requestHandler.Reject)
		})

		r.Route("/v1/withdrawals", func(r chi.Router) {
			r.Post("/", withdrawalHandler.Request)
			r.Get("/", withdrawalHandler.List)
		})

		r.Get("/v1/transactions", statsHandler.ListTransactions)
		r.Get("/v1/transactions/{transactionID}", statsHandler.GetTransaction)
		r.Get("/v1/stats", statsHandler.UserStats)

		// Operator endpoints
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole("admin"))

			r.Post("/v1/admin/rewards", transferHandler.Reward)
			r.Post("/v1/admin/transactions/{transactionID}/confirm", adminHandler.ConfirmTransaction)
			r.Post("/v1/admin/transactions/{transactionID}/fail", adminHandler.FailTransaction)
			r.Get("/v1/admin/reconciliation", adminHandler.Reconcile)
		})
	})

	return r
}
