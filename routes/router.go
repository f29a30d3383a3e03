package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/RonnelR/italics-api/config"
	"github.com/RonnelR/italics-api/controllers"
	"github.com/RonnelR/italics-api/middleware"
	"github.com/RonnelR/italics-api/storage"
	"github.com/RonnelR/italics-api/utils"
)

// Deps carries the external collaborators the router needs. Tests supply
// fakes; main supplies the real S3 store and SMTP mailer.
type Deps struct {
	DB     *gorm.DB
	Tokens *utils.TokenService
	Images storage.ImageStore
	Mailer utils.MailSender
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(cfg config.AppConfig, deps Deps) *gin.Engine {
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewRollingFileLogger(cfg.GinLogPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, "ok", gin.H{"status": "ok"})
	})

	authController := controllers.NewAuthController(deps.DB, deps.Tokens, deps.Mailer, cfg.FrontendURL)
	blogController := controllers.NewBlogController(deps.DB, deps.Images, cfg.S3Folder)
	categoryController := controllers.NewCategoryController(deps.DB)

	authed := middleware.AuthRequired(deps.Tokens)
	admin := middleware.AdminRequired(deps.DB)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimit(cfg.RateLimitPerMinute))
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/forgot-password", authController.ForgotPassword)
	authGroup.POST("/reset-password/:token", authController.ResetPassword)
	authGroup.GET("/user-photo/:id", authController.UserPhoto)
	authGroup.GET("/user-auth", authed, func(ctx *gin.Context) {
		utils.Success(ctx, "authenticated", nil)
	})
	authGroup.GET("/admin-auth", authed, admin, func(ctx *gin.Context) {
		utils.Success(ctx, "admin authenticated", nil)
	})
	authGroup.PUT("/update-profile/:id", authed, authController.UpdateProfile)
	authGroup.PATCH("/save-blog/:blogId", authed, authController.SaveBlog)
	authGroup.DELETE("/save-blog/:blogId", authed, authController.UnsaveBlog)
	authGroup.GET("/saved-blogs", authed, authController.SavedBlogs)
	authGroup.GET("/all-users", authed, admin, authController.AllUsers)
	authGroup.DELETE("/delete-user/:id", authed, admin, authController.DeleteUser)
	authGroup.PATCH("/update-role/:id", authed, admin, authController.UpdateRole)

	blogGroup := api.Group("/blog")
	blogGroup.GET("/all-blogs", blogController.AllBlogs)
	blogGroup.GET("/user-blogs/:userId", blogController.UserBlogs)
	blogGroup.GET("/single-blog/:id", blogController.SingleBlog)
	blogGroup.POST("/create-blog", authed, blogController.CreateBlog)
	blogGroup.POST("/edit-blog/:id", authed, blogController.EditBlog)
	blogGroup.DELETE("/delete-blog/:id", authed, blogController.DeleteBlog)
	blogGroup.PATCH("/like/:id", authed, blogController.Like)
	blogGroup.PATCH("/unlike/:id", authed, blogController.Unlike)
	blogGroup.POST("/comment/:id", authed, blogController.AddComment)
	blogGroup.PUT("/:blogId/comments/:commentId", authed, blogController.EditComment)
	blogGroup.DELETE("/comment/:blogId/:commentId", authed, blogController.DeleteComment)

	categoryGroup := api.Group("/category")
	categoryGroup.GET("/categories", categoryController.GetCategories)
	categoryGroup.POST("/create-category", authed, admin, categoryController.CreateCategory)
	categoryGroup.DELETE("/delete-category/:id", authed, admin, categoryController.DeleteCategory)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, "route not found")
	})

	return r
}
