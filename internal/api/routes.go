package api

import (
	"alcyxob/run-coach/internal/domain"
	"alcyxob/run-coach/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	batchConcurrency int,
	authService service.AuthService,
	planService service.PlanService,
	chatService service.ChatService,
	feedbackService service.FeedbackService,
) {
	authHandler := NewAuthHandler(authService)
	planHandler := NewPlanHandler(planService, batchConcurrency)
	chatHandler := NewChatHandler(chatService)
	feedbackHandler := NewFeedbackHandler(feedbackService)

	authMiddleware := AuthMiddleware(jwtSecret)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}
	}

	protected := apiV1.Group("")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", authHandler.Me)
		protected.PUT("/me/profile", authHandler.UpdateProfile)

		planGroup := protected.Group("/plan")
		{
			planGroup.GET("/week", planHandler.GetWeek)
			planGroup.POST("/refresh", planHandler.RefreshWeek)
		}

		protected.PATCH("/sessions/:id", planHandler.UpdateSession)

		protected.POST("/chat/message", chatHandler.HandleMessage)

		feedbackGroup := protected.Group("/feedback")
		{
			feedbackGroup.GET("/:weekStart", feedbackHandler.GetWeek)
			feedbackGroup.PUT("", feedbackHandler.SetPreferences)
		}

		adminGroup := protected.Group("/admin")
		adminGroup.Use(RoleMiddleware(domain.RoleAdmin))
		{
			adminGroup.POST("/plan/refresh-all", planHandler.RefreshAll)
		}
	}
}
