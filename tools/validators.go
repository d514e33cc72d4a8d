package tools

import "regexp"

var emailRe = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

func ValidateEmail(email string) bool {
	return emailRe.MatchString(email)
}

// ValidatePassword returns the offending field name, empty when ok.
func ValidatePassword(password string) string {
	if len(password) < 6 {
		return "password"
	}
	return ""
}
