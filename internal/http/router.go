package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taskboard/internal/repository"
	"taskboard/internal/service"
)

// RouterOptions agrupa los limites configurables del router.
type RouterOptions struct {
	LoginRatePerMin    int
	RegisterRatePerMin int
}

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(
	logger *zap.Logger,
	authH *AuthHandler,
	projectH *ProjectHandler,
	taskH *TaskHandler,
	jwtSvc *service.JWTService,
	users repository.UserRepository,
	opts RouterOptions,
) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging, recovery y JSON content-type.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), jsonContentTypeMiddleware())

	requireAuth := RequireAuth(jwtSvc, users)
	requireAdmin := RequireAdmin()

	auth := r.Group("/auth")
	auth.POST("/register", RateLimitByIP(opts.RegisterRatePerMin), authH.Register)
	auth.POST("/login", RateLimitByIP(opts.LoginRatePerMin), authH.Login)
	auth.POST("/logout", authH.Logout)
	auth.POST("/forgot-password", authH.ForgotPassword)
	auth.POST("/verify-reset-code", authH.VerifyResetCode)
	auth.POST("/set-new-password", authH.SetNewPassword)

	authed := auth.Group("", requireAuth)
	authed.GET("/profile", authH.GetProfile)
	authed.PUT("/profile", authH.UpdateProfile)
	authed.PUT("/change-password", authH.ChangePassword)

	admin := authed.Group("", requireAdmin)
	admin.GET("/all", authH.ListUsers)
	admin.DELETE("/deleteUser/:id", authH.DeleteUser)

	projects := r.Group("/projects", requireAuth, requireAdmin)
	projects.POST("/addprojects", projectH.AddProject)
	projects.GET("/getprojects", projectH.GetProjects)
	projects.PUT("/updateprojects/:id", projectH.UpdateProject)
	projects.DELETE("/deleteprojects/:id", projectH.DeleteProject)

	tasks := r.Group("/tasks", requireAuth)
	tasks.POST("/addtask", requireAdmin, taskH.AddTask)
	tasks.GET("/gettask/:id", taskH.GetTask)
	tasks.PUT("/updatetask/:id", requireAdmin, taskH.UpdateTask)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
