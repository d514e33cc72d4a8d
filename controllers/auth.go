package controllers

import (
	"fmt"
	"net/http"
	"time"

	dbpkg "selene/db"
	"selene/models"
	"selene/tools"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
)

type LoginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type LoginResponse struct {
	Token        string      `json:"token"`
	RefreshToken string      `json:"refresh_token"`
	User         models.User `json:"user"`
}

func Login(c *gin.Context) {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Password == "" {
		RespondError(c, "email and password are required", http.StatusBadRequest)
		return
	}

	db := dbpkg.DBInstance(c)
	if db == nil {
		RespondError(c, "db not configured in context", http.StatusInternalServerError)
		return
	}

	var user models.User
	if err := db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		RespondError(c, "invalid email or password", http.StatusUnauthorized)
		return
	}
	if !user.CheckPassword(req.Password) {
		RespondError(c, "invalid email or password", http.StatusUnauthorized)
		return
	}
	if user.Status == models.USER_STATUS_BLOCKED {
		RespondError(c, "user is blocked", http.StatusForbidden)
		return
	}

	now := time.Now()
	accessTTLMinutes := getenvInt("JWT_ACCESS_TTL_MINUTES", 24*60)
	accessExp := now.Add(time.Duration(accessTTLMinutes) * time.Minute)

	signed, err := signHS256JWT(getJWTSecret(), map[string]any{
		"sub":   user.ID,
		"email": user.Email,
		"iat":   now.Unix(),
		"exp":   accessExp.Unix(),
	})
	if err != nil {
		RespondError(c, "failed to sign token", http.StatusInternalServerError)
		return
	}

	refresh, err := issueRefreshToken(db, user.ID, now)
	if err != nil {
		RespondError(c, "failed to issue refresh token", http.StatusInternalServerError)
		return
	}

	user.Password = ""
	RespondSuccess(c, LoginResponse{Token: signed, RefreshToken: refresh, User: user})
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" form:"refresh_token"`
}

type RefreshResponse struct {
	AccessToken        string `json:"access_token"`
	AccessExpiresAt    int64  `json:"access_expires_at"`     // unix seconds
	AccessExpiresAtISO string `json:"access_expires_at_iso"` // RFC3339
	RefreshToken       string `json:"refresh_token"`
}

// Refresh trades a valid refresh token for a new access+refresh pair.
// Only the hash ever touches the DB, and every active token for the user is
// revoked on use (single session + rotation).
func Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.Bind(&req); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}
	if req.RefreshToken == "" {
		RespondError(c, "refresh_token is required", http.StatusBadRequest)
		return
	}

	db := dbpkg.DBInstance(c)
	if db == nil {
		RespondError(c, "db not configured in context", http.StatusInternalServerError)
		return
	}

	now := time.Now()
	hash := tools.EncryptTextSHA512(req.RefreshToken)

	var stored models.RefreshToken
	if err := db.Where("token_hash = ?", hash).First(&stored).Error; err != nil {
		RespondError(c, "invalid refresh token", http.StatusUnauthorized)
		return
	}

	if stored.IsRevoked() || stored.IsExpired(now) {
		RespondError(c, "refresh token expired", http.StatusUnauthorized)
		return
	}

	if err := revokeAllUserRefreshTokens(db, stored.UserID, now); err != nil {
		RespondError(c, "failed to revoke previous sessions", http.StatusInternalServerError)
		return
	}

	accessTTLMinutes := getenvInt("JWT_ACCESS_TTL_MINUTES", 24*60)
	accessExp := now.Add(time.Duration(accessTTLMinutes) * time.Minute)

	accessToken, err := signHS256JWT(getJWTSecret(), map[string]any{
		"sub": stored.UserID,
		"iat": now.Unix(),
		"exp": accessExp.Unix(),
	})
	if err != nil {
		RespondError(c, "failed to sign token", http.StatusInternalServerError)
		return
	}

	newRefresh, err := issueRefreshToken(db, stored.UserID, now)
	if err != nil {
		RespondError(c, "failed to issue refresh token", http.StatusInternalServerError)
		return
	}

	RespondSuccess(c, RefreshResponse{
		AccessToken:        accessToken,
		AccessExpiresAt:    accessExp.Unix(),
		AccessExpiresAtISO: accessExp.UTC().Format(time.RFC3339),
		RefreshToken:       newRefresh,
	})
}

// issueRefreshToken creates a fresh token, stores only its hash and returns
// the plain value to the caller exactly once.
func issueRefreshToken(db *gorm.DB, userID int64, now time.Time) (string, error) {
	plain := tools.RandomString(getenvInt("REFRESH_CODE_LEN", 32))
	expiresAt := now.AddDate(0, 0, getenvInt("REFRESH_CODE_MAX_VALID_DAYS", 30))

	token := models.RefreshToken{
		UserID:    userID,
		TokenHash: tools.EncryptTextSHA512(plain),
		ExpiresAt: &expiresAt,
	}
	if err := db.Create(&token).Error; err != nil {
		return "", fmt.Errorf("store refresh token: %w", err)
	}
	return plain, nil
}

func revokeAllUserRefreshTokens(db *gorm.DB, userID int64, now time.Time) error {
	return db.Model(&models.RefreshToken{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", &now).Error
}
