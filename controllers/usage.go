package controllers

import (
	"net/http"

	dbpkg "selene/db"
	"selene/models"

	"github.com/gin-gonic/gin"
)

// GetUsage exposes the generation quota state.
func GetUsage(c *gin.Context) {
	if _, ok := GetUserLogged(c); !ok {
		RespondError(c, "not authenticated", http.StatusUnauthorized)
		return
	}
	RespondSuccess(c, limiter.UsageStats())
}

// GetWebhookJobs lists recent delivery jobs for operators (admin only).
func GetWebhookJobs(c *gin.Context) {
	db := dbpkg.DBInstance(c)
	if db == nil {
		RespondError(c, "db not configured in context", http.StatusInternalServerError)
		return
	}

	status := c.Query("status")
	query := db.Model(&models.WebhookJob{}).Order("id desc").Limit(100)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var jobs []models.WebhookJob
	if err := query.Find(&jobs).Error; err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}
	RespondSuccess(c, jobs)
}
