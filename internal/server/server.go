package server

import (
	"context"
	"net/http"

	"educore/internal/auth"
	"educore/internal/config"
	"educore/internal/finance"
	"educore/internal/invoice"
	"educore/internal/notify"
	"educore/internal/payment"
	"educore/internal/user"
	"educore/internal/wallet"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

type Server struct {
	router  *gin.Engine
	httpSrv *http.Server
	db      *sqlx.DB
	config  *config.Config
	notify  *notify.Service
}

func New(db *sqlx.DB, cfg *config.Config, notifier *notify.Service, payments payment.Client) *Server {
	router := gin.Default()
	router.Use(corsMiddleware())
	router.Use(RequestLoggingMiddleware())
	router.Use(MetricsMiddleware())

	userRepo := user.NewRepository(db)
	walletRepo := wallet.NewRepository(db, invoice.NewRepository(db), finance.NewRepository(db))
	walletService := wallet.NewService(walletRepo, payments, userRepo, notifier)

	userHandler := user.NewHandler(db, cfg.JWTSecret)
	walletHandler := wallet.NewHandler(walletService)
	invoiceHandler := invoice.NewHandler(db)
	financeHandler := finance.NewHandler(db)

	public := router.Group("/auth")
	public.Use(RateLimitMiddleware(5, 10))
	{
		public.POST("/register", userHandler.Register)
		public.POST("/login", userHandler.Login)
		public.POST("/refresh", userHandler.Refresh)
	}

	authMiddleware := auth.AuthMiddleware(cfg.JWTSecret)
	protected := router.Group("/")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", userHandler.GetMe)

		protected.GET("/wallet", walletHandler.GetWallet)
		protected.POST("/wallet/fund-intent", walletHandler.CreateFundIntent)
		protected.POST("/wallet/fund", walletHandler.Fund)
		protected.POST("/wallet/spend", walletHandler.Spend)
		protected.POST("/wallet/transfer", walletHandler.Transfer)
		protected.GET("/wallet/transactions", walletHandler.ListTransactions)

		protected.GET("/invoices", invoiceHandler.ListInvoices)
		protected.GET("/invoices/:invoiceID", invoiceHandler.GetInvoice)
	}

	adminMiddleware := auth.RequireRole("admin")
	admin := router.Group("/admin")
	admin.Use(authMiddleware, adminMiddleware)
	{
		admin.POST("/invoices", invoiceHandler.CreateInvoice)
		admin.GET("/invoices", invoiceHandler.ListInvoices)
		admin.GET("/finance/transactions", financeHandler.ListTransactions)
		admin.GET("/finance/summary/daily", financeHandler.DailySummary)
		admin.GET("/finance/summary/methods", financeHandler.MethodSummary)
		admin.GET("/notifications/queue", NotificationQueue(notifier))
	}

	router.GET("/health", Health)
	router.GET("/metrics", Metrics())
	SetupSwagger(router)

	return &Server{
		router: router,
		db:     db,
		config: cfg,
		notify: notifier,
	}
}

func (s *Server) Start(port string) error {
	s.httpSrv = &http.Server{
		Addr:    ":" + port,
		Handler: s.router,
	}
	return s.httpSrv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}
