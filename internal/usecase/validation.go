package usecase

import "regexp"

var phonePattern = regexp.MustCompile(`^254\d{9}$`)

// ValidatePhone checks a Kenyan mobile-money number in 254XXXXXXXXX form.
func ValidatePhone(phone string) bool {
	return phonePattern.MatchString(phone)
}
