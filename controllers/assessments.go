package controllers

import (
	"net/http"

	dbpkg "selene/db"
	"selene/models"

	"github.com/gin-gonic/gin"
)

type CreateAssessmentRequest struct {
	CycleLengthDays  int    `json:"cycle_length_days" form:"cycle_length_days"`
	PeriodLengthDays int    `json:"period_length_days" form:"period_length_days"`
	FlowLevel        int    `json:"flow_level" form:"flow_level"`
	Symptoms         string `json:"symptoms" form:"symptoms"`
}

// CreateAssessment stores a questionnaire result and computes its pattern.
func CreateAssessment(c *gin.Context) {
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

	var req CreateAssessmentRequest
	if err := c.Bind(&req); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}
	if req.FlowLevel < 0 || req.FlowLevel > 5 {
		RespondError(c, "flow_level must be between 0 and 5", http.StatusBadRequest)
		return
	}

	assessment := models.Assessment{
		UserID:           user.ID,
		CycleLengthDays:  req.CycleLengthDays,
		PeriodLengthDays: req.PeriodLengthDays,
		FlowLevel:        req.FlowLevel,
		Symptoms:         req.Symptoms,
	}
	assessment.Pattern = assessment.ComputePattern()

	if err := db.Create(&assessment).Error; err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}
	RespondSuccess(c, assessment)
}

func GetAssessments(c *gin.Context) {
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

	var assessments []models.Assessment
	if err := db.Where("user_id = ?", user.ID).Order("created_at desc").Find(&assessments).Error; err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}
	RespondSuccess(c, assessments)
}

func GetAssessmentByID(c *gin.Context) {
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

	var assessment models.Assessment
	if err := db.Where("id = ? AND user_id = ?", id, user.ID).First(&assessment).Error; err != nil {
		RespondError(c, "assessment not found", http.StatusNotFound)
		return
	}
	RespondSuccess(c, assessment)
}
