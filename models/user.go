package models

import (
	"strings"
	"time"

	"selene/tools"
)

/************************************************
/**** MARK: USER STATUS ****/
/************************************************/
const USER_STATUS_AVAILABLE = 0
const USER_STATUS_PENDING = 1
const USER_STATUS_BLOCKED = 2

// User representa uma usuária no sistema.
type User struct {
	ID        int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	Name      string     `gorm:"not null" json:"name" form:"name"`
	Email     string     `gorm:"not null;unique" json:"email" form:"email"`
	Password  string     `gorm:"not null" json:"-" form:"password"`
	Birthdate string     `gorm:"default:''" json:"birthdate" form:"birthdate"`
	Admin     bool       `gorm:"not null;default:false" json:"admin"`
	Status    int        `gorm:"not null;default:0" json:"status"`
	CreatedAt *time.Time `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
	DeletedAt *time.Time `gorm:"index" json:"deleted_at"`
}

func (u User) IsActive() bool {
	return u.Status == USER_STATUS_AVAILABLE
}

// hashPassword derives the stored hash, salted with the email.
func hashPassword(email, plain string) string {
	h := tools.EncryptTextSHA512(strings.TrimSpace(plain))
	return tools.EncryptTextSHA512(email + ":" + h)
}

// SetPassword stores the salted SHA-512 hash of the plain password.
func (u *User) SetPassword(plain string) {
	u.Password = hashPassword(u.Email, plain)
}

func (u User) CheckPassword(plain string) bool {
	return u.Password != "" && u.Password == hashPassword(u.Email, plain)
}
