package router

import (
	"selene/controllers"
	"selene/middleware"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Initialize wires all routes and middlewares: public routes, authenticated
// routes and "validated" routes (active account required).
func Initialize(r *gin.Engine) {
	r.Use(gin.Recovery())
	r.Use(middleware.CORSMiddleware())

	api := r.Group("/api")

	// Public (no auth)
	api.POST("/users", Logger(), controllers.CreateUser)
	api.POST("/login", Logger(), controllers.Login)
	api.POST("/refresh", Logger(), controllers.Refresh)

	// Authenticated routes (token required)
	auth := api.Group("")
	auth.Use(controllers.AuthRequired())
	auth.GET("/me", Logger(), controllers.Me)

	// Validated routes (token + active user)
	validated := auth.Group("")
	validated.Use(Authorizer())

	// Cycle logs
	validated.GET("/cycle-logs", Logger(), controllers.GetCycleLogs)
	validated.POST("/cycle-logs", Logger(), controllers.CreateCycleLog)
	validated.DELETE("/cycle-logs/:id", Logger(), controllers.DeleteCycleLog)

	// Assessments
	validated.GET("/assessments", Logger(), controllers.GetAssessments)
	validated.GET("/assessments/:id", Logger(), controllers.GetAssessmentByID)
	validated.POST("/assessments", Logger(), controllers.CreateAssessment)

	// Conversations / chat
	validated.GET("/conversations", Logger(), controllers.GetConversations)
	validated.POST("/conversations", Logger(), controllers.CreateConversation)
	validated.GET("/conversations/:id", Logger(), controllers.GetConversationByID)
	validated.DELETE("/conversations/:id", Logger(), controllers.DeleteConversation)
	validated.POST("/conversations/:id/link-assessment", Logger(), controllers.LinkAssessment)
	validated.GET("/conversations/:id/messages", Logger(), controllers.GetMessages)
	validated.POST("/conversations/:id/messages", Logger(), controllers.SendMessage)

	// Quota usage
	validated.GET("/usage", Logger(), controllers.GetUsage)

	// Admin routes
	admin := validated.Group("")
	admin.Use(Adminizer())
	admin.GET("/webhook-jobs", Logger(), controllers.GetWebhookJobs)

	log.Info("Routes initialized")
}
