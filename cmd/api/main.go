package main

import (
	"log"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"bakehouse-backend/internal/accounts"
	"bakehouse-backend/internal/auth"
	"bakehouse-backend/internal/broker"
	"bakehouse-backend/internal/builds"
	"bakehouse-backend/internal/cascade"
	"bakehouse-backend/internal/config"
	"bakehouse-backend/internal/database"
	"bakehouse-backend/internal/deployments"
	"bakehouse-backend/internal/health"
	"bakehouse-backend/internal/keys"
	"bakehouse-backend/internal/membership"
	"bakehouse-backend/internal/middleware"
	"bakehouse-backend/internal/models"
	"bakehouse-backend/internal/organizations"
	"bakehouse-backend/internal/projects"
	"bakehouse-backend/internal/quotas"
	"bakehouse-backend/internal/rpcclient"
	"bakehouse-backend/internal/vpcs"
)

func main() {
	log.Println("🚀 Starting Bakehouse API Server")

	// Initialize Sentry before other subsystems so we capture initialization errors
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		env := os.Getenv("SENTRY_ENVIRONMENT")
		release := os.Getenv("SENTRY_RELEASE")
		if release == "" {
			release = os.Getenv("GIT_COMMIT")
		}
		host, _ := os.Hostname()

		opts := sentry.ClientOptions{
			Dsn:         dsn,
			Environment: env,
			Release:     release,
		}
		if host != "" {
			opts.ServerName = host
		}

		if err := sentry.Init(opts); err != nil {
			log.Printf("Sentry initialization failed: %v", err)
		} else {
			sentry.ConfigureScope(func(scope *sentry.Scope) {
				scope.SetTag("service", "bakehouse-backend")
			})
			defer sentry.Flush(2 * time.Second)
		}
	}

	cfg := config.Load()

	// Initialize database
	if err := database.InitDatabase(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	if err := database.RunMigrations(models.All()...); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	auth.InitJWT()

	// Broker connection for provisioning events
	notifier := broker.NewKafkaNotifier(cfg.Broker)
	defer notifier.Close()

	// Wire the shared components into the handler packages
	authority := membership.New(database.DB)
	enforcer := quotas.New(database.DB)
	provisioner := cascade.New(database.DB, notifier, cfg.Quotas)

	accounts.Init(provisioner)
	organizations.Init(authority, enforcer, provisioner)
	quotas.Init(authority)
	keys.Init(enforcer, provisioner)
	vpcs.Init(authority, enforcer, provisioner)
	projects.Init(authority, enforcer, provisioner, cfg.ProjectURITemplate)
	builds.Init(authority, rpcclient.New(cfg.RPC.BuildsURL))
	deployments.Init(authority, rpcclient.New(cfg.RPC.DeploymentsURL))

	// Start background tasks
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			auth.CleanupTokenBlacklist(database.DB)
		}
	}()

	// Set up router
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(sentrygin.New(sentrygin.Options{
		Repanic:         true,
		WaitForDelivery: false,
		Timeout:         2 * time.Second,
	}))
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// CORS - MUST be first to handle OPTIONS requests
	router.Use(cors.New(middleware.SecureCORSConfig()))

	// Security middleware - after CORS
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.RequestSizeLimit(1 << 20))
	router.Use(middleware.GeneralRateLimit())

	// Health check endpoints
	router.GET("/health", health.HandleHealthCheck)
	router.GET("/ready", health.HandleSystemReady)

	api := router.Group("/api/0.1")
	{
		// Public routes
		api.POST("/accounts/register", middleware.RegisterRateLimit(), accounts.HandleRegister)
		api.POST("/accounts/login", middleware.LoginRateLimit(), auth.HandleLogin)

		// Protected routes
		protected := api.Group("")
		protected.Use(auth.Middleware(database.DB))
		{
			protected.POST("/accounts/logout", auth.HandleLogout)
			protected.GET("/accounts", accounts.HandleGetAccount)
			protected.DELETE("/accounts", accounts.HandleDeleteAccount)

			protected.POST("/organizations", organizations.HandleCreateOrganization)
			protected.GET("/organizations", organizations.HandleListOrganizations)
			protected.GET("/organizations/:organization", organizations.HandleGetOrganization)
			protected.DELETE("/organizations/:organization", organizations.HandleDeleteOrganization)

			protected.GET("/members", organizations.HandleListOwnMemberships)
			protected.GET("/members/:organization", organizations.HandleListMembers)
			protected.PATCH("/members/:organization", organizations.HandleUpdateMember)
			protected.DELETE("/members/:organization/:account", organizations.HandleDeleteMember)

			protected.GET("/invitations", organizations.HandleListOwnInvitations)
			protected.POST("/invitations", organizations.HandleCreateInvitation)
			protected.GET("/invitations/:organization", organizations.HandleListInvitations)
			protected.PUT("/invitations/:organization", organizations.HandleAcceptInvitation)
			protected.DELETE("/invitations/:organization/:account", organizations.HandleDeleteInvitation)

			protected.GET("/quotas", quotas.HandleListQuotas)

			protected.POST("/keys", keys.HandleCreateKey)
			protected.GET("/keys", keys.HandleListKeys)
			protected.GET("/keys/:name", keys.HandleGetKey)
			protected.DELETE("/keys/:name", keys.HandleDeleteKey)

			protected.POST("/vpcs/:organization", vpcs.HandleCreateVPC)
			protected.GET("/vpcs/:organization", vpcs.HandleListVPCs)
			protected.GET("/vpcs/:organization/:name", vpcs.HandleGetVPC)
			protected.DELETE("/vpcs/:organization/:name", vpcs.HandleDeleteVPC)

			protected.POST("/projects/:organization", projects.HandleCreateProject)
			protected.GET("/projects/:organization", projects.HandleListProjects)
			protected.GET("/projects/:organization/:name", projects.HandleGetProject)
			protected.DELETE("/projects/:organization/:name", projects.HandleDeleteProject)

			protected.GET("/builds/:organization", builds.HandleListBuilds)
			protected.GET("/builds/:organization/:uid", builds.HandleGetBuild)

			protected.GET("/deployments/:organization", deployments.HandleListDeployments)
			protected.GET("/deployments/:organization/:uid", deployments.HandleGetDeployment)
			protected.DELETE("/deployments/:organization/:uid", deployments.HandleDeleteDeployment)
		}
	}

	log.Printf("✅ Server starting on port %s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
