package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"SmartHealth/cache"
	"SmartHealth/config"
	"SmartHealth/controllers"
	"SmartHealth/database"
	"SmartHealth/handlers"
	"SmartHealth/middlewares"
	"SmartHealth/notifications"
	"SmartHealth/repositories"
	"SmartHealth/services"
	"SmartHealth/storage"
	"SmartHealth/utils"
)

// Dependencies are the long-lived clients built at startup.
type Dependencies struct {
	Config   *config.AppConfig
	DB       *gorm.DB
	Cache    *cache.Cache
	Locker   database.Locker
	Media    storage.MediaStore
	Notifier notifications.Notifier
	Tokens   *utils.TokenMaker
}

// SetupRoutes initializes the routes and middleware for the server. The
// returned drain func waits for background work started by requests.
func SetupRoutes(deps Dependencies) (http.Handler, func()) {
	cfg := deps.Config
	if !cfg.IsDev() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middlewares.LoggingMiddleware())
	router.Use(middlewares.SecurityHeaders())
	router.Use(middlewares.CorsMiddleware(middlewares.CorsConfig{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowCredentials: true,
	}))

	limiter := middlewares.NewRateLimiterMiddleware(middlewares.RateLimiterConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		Burst:             cfg.RateLimitBurst,
	})

	// Initialize repositories, services, and handlers
	userRepo := repositories.NewUserRepository(deps.DB, deps.Cache)
	locationRepo := repositories.NewLocationRepository(deps.DB, deps.Cache)
	appointmentRepo := repositories.NewAppointmentRepository(deps.DB)
	clinicalRepo := repositories.NewClinicalRepository(deps.DB)
	messageRepo := repositories.NewMessageRepository(deps.DB)
	sosRepo := repositories.NewSOSRepository(deps.DB)
	taskRepo := repositories.NewTaskRepository(deps.DB)
	videoRepo := repositories.NewVideoRepository(deps.DB)

	resetCodes := utils.NewResetCodes(deps.Cache)
	resetMailer := utils.NewResetMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.MailFrom)

	authService := services.NewAuthService(userRepo, deps.Locker, resetCodes, resetMailer)
	taskService := services.NewTaskService(taskRepo, deps.Locker)
	appointmentService := services.NewAppointmentService(appointmentRepo, locationRepo, userRepo, clinicalRepo)
	sosService := services.NewSOSService(sosRepo, userRepo, deps.Notifier)

	authController := controllers.NewAuthController(handlers.NewAuthHandler(authService, deps.Tokens, cfg.SecureCookies))
	authController.RegisterRoutes(router, limiter)

	protected := router.Group("/", middlewares.TokenAuthMiddleware(deps.Tokens))
	controllers.SetupCareRoutes(protected, controllers.CareHandlers{
		Profile:     handlers.NewProfileHandler(services.NewProfileService(userRepo, taskRepo, clinicalRepo, sosRepo, deps.Media)),
		Dashboard:   handlers.NewDashboardHandler(services.NewDashboardService(userRepo, taskRepo, appointmentRepo, clinicalRepo, appointmentService, sosService)),
		Task:        handlers.NewTaskHandler(taskService),
		Appointment: handlers.NewAppointmentHandler(appointmentService),
		Clinical:    handlers.NewClinicalHandler(services.NewClinicalService(clinicalRepo, userRepo, deps.Media)),
		SOS:         handlers.NewSOSHandler(sosService),
		Video:       handlers.NewVideoHandler(services.NewVideoService(videoRepo, deps.Media)),
		Message:     handlers.NewMessageHandler(services.NewMessageService(messageRepo, userRepo)),
		Media:       handlers.NewMediaHandler(deps.Media),
		Transfer:    middlewares.TransferDeadline(cfg.MediaTransferTimeout),
	})

	controllers.SetupRootRoute(router)

	return router, sosService.Drain
}
