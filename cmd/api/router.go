package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/skillforge/skillforge-api/internal/handler"
	"github.com/skillforge/skillforge-api/internal/middleware"
	"github.com/skillforge/skillforge-api/internal/models"
	"github.com/skillforge/skillforge-api/internal/service"
	"github.com/skillforge/skillforge-api/pkg/config"
	"github.com/skillforge/skillforge-api/pkg/logger"
	corsmiddleware "github.com/skillforge/skillforge-api/pkg/middleware/cors"
	reqidmiddleware "github.com/skillforge/skillforge-api/pkg/middleware/requestid"
)

type routerDeps struct {
	cfg         *config.Config
	logger      *zap.Logger
	db          *sqlx.DB
	metrics     *service.MetricsService
	auth        *service.AuthService
	authH       *handler.AuthHandler
	courseH     *handler.CourseHandler
	enrollmentH *handler.EnrollmentHandler
	reviewH     *handler.ReviewHandler
}

func newRouter(d routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(d.logger))
	r.Use(corsmiddleware.New(d.cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(d.metrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := d.db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(d.metrics.Handler()))

	if d.cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(d.cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/register", d.authH.Register)
		auth.POST("/login", d.authH.Login)
		auth.GET("/profile", middleware.JWT(d.auth), d.authH.Profile)
		auth.PUT("/profile", middleware.JWT(d.auth), d.authH.UpdateProfile)
		auth.PUT("/change-password", middleware.JWT(d.auth), d.authH.ChangePassword)
	}

	courses := api.Group("/courses")
	{
		courses.GET("", middleware.OptionalJWT(d.auth), d.courseH.List)
		courses.POST("", middleware.JWT(d.auth), middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), d.courseH.Create)
		courses.GET("/teacher/my-courses", middleware.JWT(d.auth), middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), d.courseH.MyCourses)
		courses.GET("/student/my-courses", middleware.JWT(d.auth), d.enrollmentH.MyLearning)

		courses.GET("/:id", middleware.OptionalJWT(d.auth), d.courseH.Get)
		courses.PUT("/:id", middleware.JWT(d.auth), d.courseH.Update)
		courses.DELETE("/:id", middleware.JWT(d.auth), d.courseH.Delete)
		courses.PUT("/:id/approval", middleware.JWT(d.auth), middleware.RequireRoles(models.RoleAdmin), d.courseH.UpdateApproval)

		courses.POST("/:id/sections", middleware.JWT(d.auth), d.courseH.AddSection)
		courses.PUT("/:id/sections/:sectionId", middleware.JWT(d.auth), d.courseH.UpdateSection)
		courses.DELETE("/:id/sections/:sectionId", middleware.JWT(d.auth), d.courseH.DeleteSection)
		courses.POST("/:id/sections/:sectionId/lessons", middleware.JWT(d.auth), d.courseH.AddLesson)
		courses.PUT("/:id/sections/:sectionId/lessons/:lessonId", middleware.JWT(d.auth), d.courseH.UpdateLesson)
		courses.DELETE("/:id/sections/:sectionId/lessons/:lessonId", middleware.JWT(d.auth), d.courseH.DeleteLesson)

		courses.POST("/:id/enroll", middleware.JWT(d.auth), d.enrollmentH.Enroll)
		courses.PUT("/:id/progress", middleware.JWT(d.auth), d.enrollmentH.UpdateProgress)
		courses.GET("/:id/certificate", middleware.JWT(d.auth), d.enrollmentH.Certificate)
		courses.POST("/:id/review", middleware.JWT(d.auth), d.reviewH.Add)
	}

	return r
}
