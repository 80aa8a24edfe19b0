package main

import (
	"os"

	_ "paf-backend/api/swagger" // swagger docs
	"paf-backend/internal/database"
	"paf-backend/internal/handler"
	applog "paf-backend/internal/log"
	"paf-backend/internal/middleware"
	"paf-backend/internal/repository"
	"paf-backend/internal/service"
	"paf-backend/internal/websocket"
	"paf-backend/pkg/signing"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           PAF Workflow API
// @version         1.0
// @description     Personnel Action Form approval workflow engine for school districts.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	log := applog.GetLogger()

	if err := godotenv.Load("configs/.env"); err != nil {
		log.Info("No configs/.env file found or error loading it")
	}

	dbHost := envOr("DB_HOST", "localhost")
	dbPort := envOr("DB_PORT", "5432")
	dbUser := envOr("DB_USER", "postgres")
	dbPassword := envOr("DB_PASSWORD", "postgres")
	dbName := envOr("DB_NAME", "postgres")
	dbSslMode := envOr("DB_SSLMODE", "disable")

	dsn := "postgres://" + dbUser + ":" + dbPassword + "@" + dbHost + ":" + dbPort + "/" + dbName + "?sslmode=" + dbSslMode

	db, err := database.NewConnection(dsn)
	if err != nil {
		log.WithError(err).Fatal("database connection failed")
	}
	log.Info("Connected to PostgreSQL successfully")

	signer, err := signing.NewSigner([]byte(envOr("SIGNING_KEY", "dev_signing_key")))
	if err != nil {
		log.WithError(err).Fatal("invalid signing key")
	}

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Set up dependencies (Repository -> Service -> Handler)
	templateRepo := repository.NewTemplateRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	stepRepo := repository.NewStepRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	txManager := repository.NewTransactionManager(db)

	templateService := service.NewTemplateService(templateRepo, submissionRepo)
	workflowService := service.NewWorkflowService(
		templateRepo, submissionRepo, stepRepo, auditRepo, txManager,
		service.EqualityGate{}, signer, wsHub, log,
	)
	auditService := service.NewAuditService(auditRepo)

	templateHandler := handler.NewTemplateHandler(templateService)
	pafHandler := handler.NewPafHandler(workflowService)
	auditHandler := handler.NewAuditHandler(auditService)

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173"}
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoint for approver dashboards
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	// Register API Routes
	templateHandler.RegisterRoutes(router.Group(""))
	pafHandler.RegisterRoutes(router.Group(""))
	auditHandler.RegisterRoutes(router.Group(""))

	port := envOr("PORT", "8080")

	log.Infof("Server listening on :%s", port)
	if err := router.Run(":" + port); err != nil {
		log.WithError(err).Fatal("server failed")
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
