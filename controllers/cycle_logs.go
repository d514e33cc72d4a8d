package controllers

import (
	"net/http"
	"time"

	dbpkg "selene/db"
	"selene/models"

	"github.com/gin-gonic/gin"
)

type CycleLogRequest struct {
	StartDate string `json:"start_date" form:"start_date"` // YYYY-MM-DD
	EndDate   string `json:"end_date" form:"end_date"`
	FlowLevel int    `json:"flow_level" form:"flow_level"`
	Symptoms  string `json:"symptoms" form:"symptoms"`
	Notes     string `json:"notes" form:"notes"`
}

func parseDay(s string) (*time.Time, bool) {
	if s == "" {
		return nil, true
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, false
	}
	return &t, true
}

func CreateCycleLog(c *gin.Context) {
	user, ok := GetUserLogged(c)
	if !ok {
		RespondError(c, "not authenticated", http.StatusUnauthorized)
		return
	}
	db := dbpkg.DBInstance(c)
	if db == nil {
		RespondError(c, "db not configured in context", http.StatusInternalServerError)
		return
	}

	var req CycleLogRequest
	if err := c.Bind(&req); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}

	start, ok := parseDay(req.StartDate)
	if !ok || start == nil {
		RespondError(c, "start_date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	end, ok := parseDay(req.EndDate)
	if !ok {
		RespondError(c, "end_date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	if end != nil && end.Before(*start) {
		RespondError(c, "end_date before start_date", http.StatusBadRequest)
		return
	}

	entry := models.CycleLog{
		UserID:    user.ID,
		StartDate: start,
		EndDate:   end,
		FlowLevel: req.FlowLevel,
		Symptoms:  req.Symptoms,
		Notes:     req.Notes,
	}
	if err := db.Create(&entry).Error; err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}
	RespondSuccess(c, entry)
}

func GetCycleLogs(c *gin.Context) {
	user, ok := GetUserLogged(c)
	if !ok {
		RespondError(c, "not authenticated", http.StatusUnauthorized)
		return
	}
	db := dbpkg.DBInstance(c)
	if db == nil {
		RespondError(c, "db not configured in context", http.StatusInternalServerError)
		return
	}

	var logs []models.CycleLog
	if err := db.Where("user_id = ?", user.ID).Order("start_date desc").Find(&logs).Error; err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}
	RespondSuccess(c, logs)
}

func DeleteCycleLog(c *gin.Context) {
	user, ok := GetUserLogged(c)
	if !ok {
		RespondError(c, "not authenticated", http.StatusUnauthorized)
		return
	}
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	db := dbpkg.DBInstance(c)
	if db == nil {
		RespondError(c, "db not configured in context", http.StatusInternalServerError)
		return
	}

	res := db.Where("id = ? AND user_id = ?", id, user.ID).Delete(&models.CycleLog{})
	if res.Error != nil {
		RespondError(c, res.Error.Error(), http.StatusInternalServerError)
		return
	}
	if res.RowsAffected == 0 {
		RespondError(c, "cycle log not found", http.StatusNotFound)
		return
	}
	RespondSuccess(c, gin.H{"deleted": true})
}
