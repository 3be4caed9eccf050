package main

import (
	"context"
	"log"
	"os"
	"strconv"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/random"

	"edumart2/internal/caching"
	"edumart2/internal/database"
	"edumart2/internal/handlers"
	"edumart2/internal/jobs/background"
	"edumart2/internal/middleware"
	"edumart2/internal/repositories"
	"edumart2/internal/services"
)

const version = "1.0.0"

func main() {
	// Database connection
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	pool, err := pgxpool.New(context.Background(), databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	migrationsDir := os.Getenv("MIGRATIONS_DIR")
	if migrationsDir == "" {
		migrationsDir = "migrations"
	}
	if err := database.RunMigrations(context.Background(), pool, migrationsDir); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// JWT configuration
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = random.String(32) // Generate random secret for development
		log.Printf("WARNING: Using generated JWT secret, tokens will not survive a restart")
	}

	// Redis configuration
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	redisPassword := os.Getenv("REDIS_PASSWORD")
	redisDB := 0
	if redisDBStr := os.Getenv("REDIS_DB"); redisDBStr != "" {
		if db, err := strconv.Atoi(redisDBStr); err == nil {
			redisDB = db
		}
	}

	assignTenantSecret := os.Getenv("ASSIGN_TENANT_SECRET")
	if assignTenantSecret == "" {
		log.Printf("WARNING: ASSIGN_TENANT_SECRET is not set, /api/assignTenant will reject all requests")
	}

	acceptBaseURL := os.Getenv("ACCEPT_BASE_URL")
	if acceptBaseURL == "" {
		acceptBaseURL = "http://localhost:8080"
	}

	tokenTTL := envInt("TOKEN_TTL_SECONDS", 900)
	refreshTTL := envInt("REFRESH_TTL_SECONDS", 7*24*3600)

	// Caching
	cacheSvc := caching.NewRedisCacheService(redisAddr, redisPassword, redisDB)

	// Task queue client
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       redisDB,
	})
	defer asynqClient.Close()

	// Repositories
	tenantRepo := repositories.NewTenantRepo(pool)
	userRepo := repositories.NewUserRepo(pool)
	invitationRepo := repositories.NewInvitationRepo(pool)
	credentialRepo := repositories.NewCredentialRepo(pool)
	studentRepo := repositories.NewStudentRepo(pool)
	teacherRepo := repositories.NewTeacherRepo(pool)
	staffRepo := repositories.NewStaffRepo(pool)
	auditRepo := repositories.NewAuditLogsRepo(pool)

	// Services
	auditSvc := services.NewAuditLogsService(auditRepo)
	tenantSvc := services.NewTenantService(tenantRepo, cacheSvc)
	credSvc := services.NewCredentialService(credentialRepo)
	tokenSvc := services.NewTokenService(cacheSvc, credSvc, jwtSecret, tokenTTL, refreshTTL)
	invitationSvc := services.NewInvitationService(invitationRepo, userRepo, tenantRepo, credSvc, auditSvc)
	provisioningSvc := services.NewProvisioningService(userRepo, studentRepo, teacherRepo, staffRepo, tenantSvc, auditSvc, asynqClient)

	// Background housekeeping
	scheduler := background.NewJobScheduler(invitationRepo, userRepo, asynqClient)
	if err := scheduler.Start(); err != nil {
		log.Fatalf("Failed to start job scheduler: %v", err)
	}
	defer scheduler.Stop()

	// Handlers
	authHandlers := handlers.NewAuthHandlers(userRepo, credentialRepo, tokenSvc)
	invitationHandlers := handlers.NewInvitationHandlers(invitationSvc, tenantSvc, userRepo, cacheSvc, acceptBaseURL)
	provisioningHandlers := handlers.NewProvisioningHandlers(provisioningSvc, credentialRepo, userRepo)
	assignTenantHandlers := handlers.NewAssignTenantHandlers(userRepo, tenantRepo, auditSvc, cacheSvc, assignTenantSecret)
	tenantHandlers := handlers.NewTenantHandlers(tenantSvc)
	auditHandlers := handlers.NewAuditLogsHandlers(auditSvc)
	healthHandlers := handlers.NewHealthHandlers(pool)

	// Middleware
	rbacMw := middleware.NewRBACMiddleware(userRepo, cacheSvc)
	auditMw := middleware.NewAuditMiddleware(auditSvc)
	versionMw := middleware.NewVersionMiddleware()

	e := echo.New()
	e.HideBanner = true

	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.RequestID())
	e.Use(echoMiddleware.RemoveTrailingSlash())
	e.Use(echoMiddleware.CORS())
	e.Use(versionMw.VersionHeader("v1"))

	// Health probes
	e.GET("/health", healthHandlers.Live)
	e.GET("/health/ready", healthHandlers.Ready)

	// Public auth endpoints
	e.POST("/v1/auth/login", authHandlers.Login)
	e.POST("/v1/auth/refresh", authHandlers.Refresh)
	e.POST("/v1/auth/logout", authHandlers.Logout)

	// Invitation accept is public but resolves a token when present.
	e.POST("/v1/invitations/accept", invitationHandlers.Accept, middleware.OptionalAuth(tokenSvc))

	// Trusted server-to-server tenant assignment, shared-secret auth.
	assignGroup := e.Group("/api")
	assignGroup.Use(echoMiddleware.CORSWithConfig(echoMiddleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{echo.POST, echo.OPTIONS},
		AllowHeaders: []string{echo.HeaderContentType, "x-assign-tenant-secret"},
	}))
	assignGroup.POST("/assignTenant", assignTenantHandlers.AssignTenant)

	// Authenticated API
	api := e.Group("/v1")
	api.Use(echojwt.WithConfig(middleware.JWTConfig(jwtSecret)))
	api.Use(auditMw.AuditRequest())

	api.GET("/auth/me", authHandlers.Me)
	api.POST("/auth/change-password", authHandlers.ChangePassword)

	api.POST("/orgs/:orgId/invitations", invitationHandlers.Create, rbacMw.RequirePermission("member.invite"))
	api.GET("/orgs/:orgId/invitations", invitationHandlers.List)
	api.DELETE("/orgs/:orgId/invitations/:id", invitationHandlers.Revoke, rbacMw.RequirePermission("invitation.revoke"))

	api.POST("/admin/students", provisioningHandlers.CreateStudent, rbacMw.RequirePermission("student.create"))
	api.POST("/admin/teachers", provisioningHandlers.CreateTeacher, rbacMw.RequirePermission("teacher.create"))
	api.POST("/admin/staff", provisioningHandlers.CreateStaff, rbacMw.RequirePermission("staff.create"))
	api.POST("/admin/organizations", provisioningHandlers.CreateOrganization)
	api.GET("/users/:id/credentials", provisioningHandlers.GetCredentials, rbacMw.RequirePermission("credential.read"))

	api.GET("/orgs/:id", tenantHandlers.GetTenant)
	api.PUT("/orgs/:id", tenantHandlers.UpdateTenant)
	api.GET("/orgs", tenantHandlers.ListTenants)

	api.GET("/orgs/:orgId/audit-logs", auditHandlers.List)
	api.GET("/orgs/:orgId/audit-logs/:targetType/:targetId", auditHandlers.GetTargetHistory)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting edumart2 API %s on port %s", version, port)
	if err := e.Start(":" + port); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}

func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
