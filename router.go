package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ariebrainware/medibot/endpoint"
	"github.com/ariebrainware/medibot/middleware"
	"github.com/gin-gonic/gin"
)

// setupRouter wires middleware and routes onto a new engine.
func setupRouter(a *app) *gin.Engine {
	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.EndpointCallLogger(a.log))
	router.Use(middleware.Recovery(a.log))
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.DatabaseMiddleware(a.db))

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": fmt.Sprintf("Welcome to %s!", a.cfg.AppName),
		})
	})
	router.GET("/health", endpoint.HealthCheck)

	reminder := router.Group("/reminder")
	{
		reminder.POST("/create", endpoint.CreateReminder)
		reminder.GET("/get", endpoint.GetReminder)
		reminder.POST("/update", endpoint.UpdateReminder)
		reminder.POST("/delete", endpoint.DeleteReminder)
	}

	user := router.Group("/userinfo")
	{
		user.POST("/createuser", endpoint.CreateUser)
		user.POST("/updateinfo", endpoint.UpdateUserInfo)
		user.GET("/getinfo", endpoint.GetUserInfo)
		user.POST("/login", middleware.RateLimiter(middleware.RateLimitConfig{Limit: 5, Window: 15 * time.Minute}), endpoint.Login)
	}

	consult := endpoint.NewConsultationHandler(a.consultations)
	consultation := router.Group("/consultation")
	{
		consultation.POST("/start", consult.Start)
		consultation.POST("/message", consult.Message)
		consultation.POST("/end", consult.End)
		consultation.GET("/history", consult.History)
	}

	articles := endpoint.NewArticleHandler(a.articles)
	articleGroup := router.Group("/article")
	{
		articleGroup.GET("/health", articles.HealthNews)
		articleGroup.POST("/create", articles.Create)
	}

	return router
}
