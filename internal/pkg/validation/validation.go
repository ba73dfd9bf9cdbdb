package validation

import (
	"math"
	"regexp"
	"strings"
)

// Domain minimums for a credit listing: whole tonnes, and a price floor per tonne.
const (
	MinListingAmount = 1
	MinPricePerUnit  = 0.1
	MinPasswordLen   = 6
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func IsValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

// IsValidPassword matches the hosted auth provider's minimum length rule.
func IsValidPassword(password string) bool {
	return len(password) >= MinPasswordLen
}

func IsValidAmount(amount int) bool {
	return amount >= MinListingAmount
}

// IsValidPrice rejects NaN/Inf and anything below MinPricePerUnit.
func IsValidPrice(price float64) bool {
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return false
	}
	return price >= MinPricePerUnit
}

// HasCentPrecision reports whether price fits the two decimal places the
// price column stores.
func HasCentPrecision(price float64) bool {
	cents := price * 100
	return math.Abs(cents-math.Round(cents)) < 1e-6
}

// IsBlank reports whether s is empty after trimming whitespace.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
