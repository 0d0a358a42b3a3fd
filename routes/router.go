package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/cppla/blogicum/controllers"
	"github.com/cppla/blogicum/middleware"
	"github.com/cppla/blogicum/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(env *controllers.Env) *gin.Engine {
	cfg := env.Config
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Access log goes to its own rolling file; fall back to the app logger.
	accessLog := utils.Logger
	if cfg.GinPath != "" {
		gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
		if err == nil {
			accessLog = gl
		} else {
			utils.Sugar.Warnf("gin access log disabled: %v", err)
		}
	}
	r.Use(utils.Ginzap(accessLog, time.RFC3339, true))
	r.Use(utils.RecoveryWithZap(accessLog, false))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", "Location"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		// credentials cannot be combined with a wildcard origin
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))
	r.Use(middleware.Identify(cfg, env.Blacklist))

	if cfg.MediaRoot != "" {
		r.Static("/media", cfg.MediaRoot)
	}

	r.GET("/health", func(ctx *gin.Context) {
		if env.Store != nil {
			if sqlDB, err := env.Store.DB().DB(); err == nil {
				if err := sqlDB.PingContext(ctx.Request.Context()); err != nil {
					utils.Error(ctx, http.StatusServiceUnavailable, 50300, "database unavailable")
					return
				}
			}
		}
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	blog := controllers.NewBlogController(env)
	comments := controllers.NewCommentController(env)
	profiles := controllers.NewProfileController(env)
	auth := controllers.NewAuthController(env)
	admin := controllers.NewAdminController(env)

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute)
	login := middleware.LoginRequired(cfg.LoginURL)

	r.GET("/", blog.Index)
	r.GET("/category/:slug/", blog.CategoryPosts)
	r.GET("/profile/:username/", profiles.Profile)
	r.GET("/posts/:id/", blog.PostDetail)

	writes := r.Group("", login, limiter.Middleware())
	writes.GET("/posts/create/", blog.CreatePost)
	writes.POST("/posts/create/", blog.CreatePost)
	writes.GET("/posts/:id/edit/", blog.EditPost)
	writes.POST("/posts/:id/edit/", blog.EditPost)
	writes.GET("/posts/:id/delete/", blog.DeletePost)
	writes.POST("/posts/:id/delete/", blog.DeletePost)
	writes.GET("/edit_profile/", profiles.EditProfile)
	writes.POST("/edit_profile/", profiles.EditProfile)
	writes.POST("/posts/:id/comment/", comments.Create)
	writes.GET("/posts/:id/comment/edit/:cid", comments.Edit)
	writes.POST("/posts/:id/comment/edit/:cid", comments.Edit)
	writes.GET("/posts/:id/delete_comment/:cid", comments.Delete)
	writes.POST("/posts/:id/delete_comment/:cid", comments.Delete)

	authGroup := r.Group("/auth", limiter.Middleware())
	authGroup.GET("/registration/", auth.Register)
	authGroup.POST("/registration/", auth.Register)
	authGroup.GET("/login/", auth.Login)
	authGroup.POST("/login/", auth.Login)
	authGroup.POST("/logout/", auth.Logout)

	staff := r.Group("/admin", middleware.StaffRequired(), limiter.Middleware())
	staff.GET("/categories/", admin.ListCategories)
	staff.POST("/categories/", admin.CreateCategory)
	staff.PATCH("/categories/:id", admin.UpdateCategory)
	staff.DELETE("/categories/:id", admin.DeleteCategory)
	staff.GET("/locations/", admin.ListLocations)
	staff.POST("/locations/", admin.CreateLocation)
	staff.PATCH("/locations/:id", admin.UpdateLocation)
	staff.DELETE("/locations/:id", admin.DeleteLocation)
	staff.GET("/posts/", admin.ListPosts)
	staff.PATCH("/posts/:id", admin.ModeratePost)
	staff.PATCH("/comments/:id", admin.ModerateComment)
	staff.DELETE("/comments/:id", admin.DeleteComment)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "page not found")
	})

	return r
}
