package router

import (
	"time"

	"github.com/examportal/portal-backend/internal/config"
	"github.com/examportal/portal-backend/internal/handler"
	"github.com/examportal/portal-backend/internal/middleware"
	"github.com/examportal/portal-backend/internal/model"
	"github.com/examportal/portal-backend/internal/response"
	"github.com/examportal/portal-backend/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth       *handler.AuthHandler
	Department *handler.DepartmentHandler
	Question   *handler.QuestionHandler
	Exam       *handler.ExamHandler
	Demo       *handler.DemoHandler
	OTP        *handler.OTPHandler
	Admin      *handler.AdminHandler
	Report     *handler.ReportHandler
	WS         *handler.WSHandler
	System     *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
	rdb *redis.Client,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", response.HeaderRequestID, "X-Client-Location"}
	corsConfig.ExposeHeaders = []string{response.HeaderRequestID, "Content-Disposition", "X-RateLimit-Remaining"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.AccessLog(log))

	// Excel exports are zip archives already.
	brotliConfig := middleware.DefaultBrotliConfig
	brotliConfig.Skipper = middleware.SkipBinaryExports
	router.Use(middleware.BrotliWithConfig(brotliConfig))

	router.GET("/health", handlers.System.Health)

	// Per-IP limiters for the unauthenticated write endpoints.
	loginLimiter := middleware.NewRateLimiter(rdb, "login", cfg.RateLimitPerMinute, time.Minute, log)
	demoLimiter := middleware.NewRateLimiter(rdb, "demo_register", cfg.RateLimitPerMinute, time.Minute, log)
	otpLimiter := middleware.NewRateLimiter(rdb, "otp_request", cfg.RateLimitPerMinute, time.Minute, log)

	// ─── 1. Auth Group (Public, Rate Limited Login) ────────────────────
	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/register", handlers.Auth.Register)
		auth.POST("/login", loginLimiter.Middleware(), handlers.Auth.Login)
		auth.POST("/refresh", handlers.Auth.Refresh)

		// Authenticated profile routes
		session := []gin.HandlerFunc{middleware.RequireUserJWT(authService), middleware.CheckSession(authService)}
		auth.POST("/logout", append(session, handlers.Auth.Logout)...)
		auth.GET("/me", append(session, handlers.Auth.Me)...)
	}

	// ─── 2. Public Catalog ─────────────────────────────────────────────
	departments := router.Group("/api/v1/departments")
	departments.Use(middleware.CacheControl(int(cfg.DepartmentCacheTTL.Seconds())))
	{
		departments.GET("", handlers.Department.ListDepartments)
		departments.GET("/:id", handlers.Department.GetDepartment)
	}

	// ─── 3. Exam Group (JWT + Live Session) ────────────────────────────
	exams := router.Group("/api/v1/exams")
	exams.Use(
		middleware.RequireUserJWT(authService),
		middleware.CheckSession(authService),
		middleware.NoStore(),
	)
	{
		exams.POST("/start", handlers.Exam.StartExam)
		exams.GET("", handlers.Exam.ListMyExams)
		exams.GET("/:id/questions", handlers.Exam.GetQuestions)
		exams.POST("/:id/submit", handlers.Exam.SubmitExam)
		exams.GET("/:id/results", handlers.Exam.GetResults)
	}

	// ─── 4. Demo Group (No Login) ──────────────────────────────────────
	// verify-otp has no limiter or attempt counter; /otp is the hardened variant.
	demo := router.Group("/api/v1/demo")
	demo.Use(middleware.NoStore())
	{
		demo.POST("/register", demoLimiter.Middleware(), handlers.Demo.Register)
		demo.POST("/verify-otp", handlers.Demo.VerifyOTP)
		demo.GET("/questions", handlers.Demo.GetQuestions)
		demo.POST("/submit", handlers.Demo.Submit)
	}

	// ─── 5. OTP Subsystem ──────────────────────────────────────────────
	otp := router.Group("/api/v1/otp")
	{
		otp.POST("/request", otpLimiter.Middleware(), handlers.OTP.Request)
		otp.POST("/verify", handlers.OTP.Verify)
	}

	// ─── 6. WebSocket Group (Admin WS Auth) ────────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireAdminWSAuth(authService))
	{
		ws.GET("/admin/exams/stream", handlers.WS.ExamEventStream)
	}

	// ─── 7. Admin Group (JWT + Role) ───────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(
		middleware.RequireAdminJWT(authService),
		middleware.CheckSession(authService),
		middleware.RequireRole(model.RoleAdmin),
		middleware.NoStore(),
	)
	{
		// Departments
		adminAPI.POST("/departments", handlers.Department.CreateDepartment)
		adminAPI.PUT("/departments/:id", handlers.Department.UpdateDepartment)
		adminAPI.DELETE("/departments/:id", handlers.Department.DeleteDepartment)

		// Question bank
		adminAPI.GET("/questions", handlers.Question.ListQuestions)
		adminAPI.GET("/questions/:id", handlers.Question.GetQuestion)
		adminAPI.POST("/questions", handlers.Question.CreateQuestion)
		adminAPI.PUT("/questions/:id", handlers.Question.UpdateQuestion)
		adminAPI.DELETE("/questions/:id", handlers.Question.DeleteQuestion)

		// Exams
		adminAPI.GET("/exams", handlers.Exam.AdminListExams)
		adminAPI.GET("/exams/:id", handlers.Exam.AdminGetExam)
		adminAPI.GET("/exams/:id/results", handlers.Exam.GetResults)

		// Users and devices
		adminAPI.GET("/users", handlers.Admin.ListUsers)
		adminAPI.POST("/users/:id/reset-device", handlers.Admin.ResetDevice)
		adminAPI.PUT("/users/:id/access", handlers.Admin.UpdateAccess)
		adminAPI.GET("/users/:id/ip-logs", handlers.Admin.UserIPLogs)
		adminAPI.GET("/device-locks", handlers.Admin.ListDeviceLocks)
		adminAPI.POST("/device-locks/:id/unlock", handlers.Admin.UnlockDevice)

		// Guests
		adminAPI.GET("/guests", handlers.Admin.ListGuests)
		adminAPI.POST("/guests/:id/reset-demo", handlers.Admin.ResetDemo)

		// Reports
		reports := adminAPI.Group("/reports")
		{
			reports.GET("/participation", handlers.Report.Participation)
			reports.GET("/pass-rate", handlers.Report.PassRate)
		}

		// System Monitoring
		adminAPI.GET("/system/metrics", handlers.System.SystemMetricsSSE)
	}

	return router
}
