package controllers

import (
	"net/http"
	"strings"

	dbpkg "selene/db"
	"selene/models"
	"selene/tools"

	"github.com/gin-gonic/gin"
)

type CreateUserRequest struct {
	Name      string `json:"name" form:"name"`
	Email     string `json:"email" form:"email"`
	Password  string `json:"password" form:"password"`
	Birthdate string `json:"birthdate" form:"birthdate"`
}

func CreateUser(c *gin.Context) {
	db := dbpkg.DBInstance(c)
	if db == nil {
		RespondError(c, "db not configured in context", http.StatusInternalServerError)
		return
	}

	var req CreateUserRequest
	if err := c.Bind(&req); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Name == "" || req.Email == "" || req.Password == "" {
		RespondError(c, "name, email and password are required", http.StatusBadRequest)
		return
	}
	if !tools.ValidateEmail(req.Email) {
		RespondError(c, "invalid email", http.StatusBadRequest)
		return
	}
	if field := tools.ValidatePassword(req.Password); field != "" {
		RespondError(c, "password too short", http.StatusBadRequest)
		return
	}

	var existing models.User
	if err := db.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		RespondError(c, "user already exists", http.StatusBadRequest)
		return
	}

	user := models.User{
		Name:      req.Name,
		Email:     req.Email,
		Birthdate: req.Birthdate,
		Status:    models.USER_STATUS_AVAILABLE,
	}
	user.SetPassword(req.Password)

	if err := db.Create(&user).Error; err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}

	user.Password = ""
	RespondSuccess(c, user)
}

func Me(c *gin.Context) {
	user, ok := GetUserLogged(c)
	if !ok {
		RespondError(c, "not authenticated", http.StatusUnauthorized)
		return
	}
	user.Password = ""
	RespondSuccess(c, user)
}
