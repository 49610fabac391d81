package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-pen-inventory/internal/cache"
	"go-pen-inventory/internal/config"
	"go-pen-inventory/internal/handler"
	"go-pen-inventory/internal/middleware"
	"go-pen-inventory/internal/model"
	"go-pen-inventory/internal/repository"
	"go-pen-inventory/internal/service"
	"go-pen-inventory/pkg/database"
	"go-pen-inventory/pkg/jwt"
	"go-pen-inventory/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	// 2. Setup Database
	db, err := database.ConnectDB(database.Options{
		DSN:             cfg.Database.DSN(),
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		Debug:           !cfg.IsProduction(),
	}, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		log.WithError(err).Fatal("Failed to migrate database")
	}

	// 3. Seed default privileges, roles, admin user and categories
	ctx := context.Background()
	seedDefaults(ctx, db, log)

	// 4. Optional redis cache
	var respCache *cache.Cache
	var pinger handler.Pinger
	if cfg.Redis.Enabled() {
		client, err := cache.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.WithError(err).Warn("Redis unavailable, caching disabled")
		} else {
			defer client.Close()
			respCache = cache.New(client, cfg.Redis.CacheTTL)
			pinger = respCache
			log.WithField("addr", cfg.Redis.Addr).Info("Redis cache enabled")
		}
	}

	// 5. Dependency Injection (Wiring Layers)
	paging := service.PageDefaults{Default: cfg.Server.DefaultPageSize, Max: cfg.Server.MaxPageSize}
	tokens := jwt.NewManager(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiration)

	stockStore := repository.NewStockStore(db, cfg.Stock.LockTimeout)
	txRepo := repository.NewTransactionRepo(db)
	brandRepo := repository.NewBrandRepo(db)
	categoryRepo := repository.NewCategoryRepo(db)
	itemRepo := repository.NewItemRepo(db)
	variantRepo := repository.NewVariantRepo(db)
	memoRepo := repository.NewMemoRepo(db)
	userRepo := repository.NewUserRepo(db)
	privilegeRepo := repository.NewPrivilegeRepo(db)
	roleRepo := repository.NewRoleRepo(db)

	stockService := service.NewStockService(stockStore, txRepo, respCache, log, paging)
	catalogService := service.NewCatalogService(brandRepo, categoryRepo, itemRepo, variantRepo, respCache, log, paging)
	dashService := service.NewDashboardService(txRepo)
	memoService := service.NewMemoService(memoRepo)
	authService := service.NewAuthService(userRepo, tokens)

	stockHandler := handler.NewStockHandler(stockService, log)
	txHandler := handler.NewTransactionHandler(stockService, log)
	catalogHandler := handler.NewCatalogHandler(catalogService, log)
	dashHandler := handler.NewDashboardHandler(dashService, log)
	memoHandler := handler.NewMemoHandler(memoService, log)
	authHandler := handler.NewAuthHandler(authService)
	roleHandler := handler.NewRoleHandler(roleRepo, privilegeRepo)
	healthHandler := handler.NewHealthHandler(db, pinger)

	// 6. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName: "Pen Inventory v1.0",
	})

	// Middleware
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
		Output: log.Writer(),
	}))
	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(middleware.Metrics())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// 7. Routes
	api := app.Group("/api/v1")
	api.Get("/ping", healthHandler.Ping)

	// ============ PUBLIC ROUTES ============
	auth := api.Group("/auth")
	auth.Post("/login", authHandler.Login)
	auth.Post("/reset-password", authHandler.ResetPassword)
	auth.Post("/validate-token", authHandler.ValidateToken)

	// ============ PROTECTED ROUTES ============
	protected := api.Group("", middleware.RequireAuth(tokens, userRepo))
	view := middleware.RequirePrivilege(model.PrivCatalogView)
	manage := middleware.RequirePrivilege(model.PrivCatalogManage)

	// Stock engine
	protected.Post("/stock/bulk-update", middleware.RequirePrivilege(model.PrivStockUpdate), stockHandler.BulkUpdate)

	// Ledger (export is registered before :id)
	protected.Get("/transactions", middleware.RequirePrivilege(model.PrivTransactionView), txHandler.GetTransactions)
	protected.Get("/transactions/export", middleware.RequirePrivilege(model.PrivTransactionExport), txHandler.ExportTransactions)
	protected.Get("/transactions/:id", middleware.RequirePrivilege(model.PrivTransactionView), txHandler.GetTransaction)

	// Catalog
	protected.Get("/brands", view, catalogHandler.GetBrands)
	protected.Get("/brands/:id", view, catalogHandler.GetBrand)
	protected.Post("/brands", manage, catalogHandler.CreateBrand)
	protected.Put("/brands/:id", manage, catalogHandler.UpdateBrand)
	protected.Delete("/brands/:id", manage, catalogHandler.DeleteBrand)

	protected.Get("/categories", view, catalogHandler.GetCategories)
	protected.Get("/categories/:id", view, catalogHandler.GetCategory)
	protected.Post("/categories", manage, catalogHandler.CreateCategory)
	protected.Put("/categories/:id", manage, catalogHandler.UpdateCategory)
	protected.Delete("/categories/:id", manage, catalogHandler.DeleteCategory)

	protected.Get("/items", view, catalogHandler.GetItems)
	protected.Get("/items/:id", view, catalogHandler.GetItem)
	protected.Post("/items", manage, catalogHandler.CreateItem)
	protected.Put("/items/:id", manage, catalogHandler.UpdateItem)
	protected.Delete("/items/:id", manage, catalogHandler.DeleteItem)

	protected.Get("/variants", view, catalogHandler.GetVariants)
	protected.Get("/variants/summary", view, catalogHandler.Summary)
	protected.Get("/variants/:id", view, catalogHandler.GetVariant)
	protected.Post("/variants", manage, catalogHandler.CreateVariant)
	protected.Put("/variants/:id", manage, catalogHandler.UpdateVariant)
	protected.Patch("/variants/:id", manage, catalogHandler.UpdateVariant)
	protected.Delete("/variants/:id", manage, catalogHandler.DeleteVariant)

	// Memos: any authenticated user may read, writes need memo:manage
	protected.Get("/memos", memoHandler.GetMemos)
	protected.Get("/memos/:id", memoHandler.GetMemo)
	protected.Post("/memos", middleware.RequirePrivilege(model.PrivMemoManage), memoHandler.CreateMemo)
	protected.Put("/memos/:id", middleware.RequirePrivilege(model.PrivMemoManage), memoHandler.UpdateMemo)
	protected.Delete("/memos/:id", middleware.RequirePrivilege(model.PrivMemoManage), memoHandler.DeleteMemo)

	// Dashboard
	dashboard := protected.Group("/dashboard", middleware.RequirePrivilege(model.PrivDashboardView))
	dashboard.Get("/stats", dashHandler.GetDashboardStats)
	dashboard.Get("/stock-movement", dashHandler.GetStockMovement)

	// Roles and privileges
	protected.Get("/roles", roleHandler.GetRoles)
	protected.Get("/privileges", roleHandler.GetPrivileges)

	// 8. Graceful Shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		log.WithField("addr", addr).Info("HTTP server listening")
		if err := app.Listen(addr); err != nil {
			log.WithError(err).Panic("HTTP server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.WithError(err).Fatal("Server forced to shutdown")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info("Server exited")
}

const (
	defaultAdminEmail    = "admin@example.com"
	defaultAdminPassword = "admin123"
)

// seedDefaults creates default privileges, roles, categories and the admin
// user if they don't exist. Failures are logged, not fatal.
func seedDefaults(ctx context.Context, db *gorm.DB, log *logrus.Logger) {
	privilegeRepo := repository.NewPrivilegeRepo(db)
	roleRepo := repository.NewRoleRepo(db)
	userRepo := repository.NewUserRepo(db)
	categoryRepo := repository.NewCategoryRepo(db)

	if err := privilegeRepo.SeedDefaults(ctx); err != nil {
		log.WithError(err).Warn("Failed to seed privileges")
	}
	if err := roleRepo.SeedDefaults(ctx); err != nil {
		log.WithError(err).Warn("Failed to seed roles")
	}
	if err := categoryRepo.SeedDefaults(ctx); err != nil {
		log.WithError(err).Warn("Failed to seed categories")
	}

	_, err := userRepo.FindByEmail(ctx, defaultAdminEmail)
	if err == nil {
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.WithError(err).Warn("Failed to look up admin user")
		return
	}

	masterRole, err := roleRepo.FindByCode(ctx, model.RoleMasterAdmin)
	if err != nil {
		log.WithError(err).Warn("MASTER_ADMIN role missing, admin user not created")
		return
	}
	admin := &model.User{
		Email:    defaultAdminEmail,
		FullName: "Master Administrator",
		RoleID:   &masterRole.ID,
		IsActive: true,
	}
	admin.CreatedBy = "system"
	admin.UpdatedBy = "system"
	if err := admin.SetPassword(defaultAdminPassword); err != nil {
		log.WithError(err).Warn("Failed to hash admin password")
		return
	}
	if err := userRepo.Create(ctx, admin); err != nil {
		log.WithError(err).Warn("Failed to create admin user")
		return
	}
	log.WithField("email", defaultAdminEmail).Info("Admin user created (MASTER_ADMIN)")
}
