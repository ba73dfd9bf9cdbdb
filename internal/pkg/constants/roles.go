package constants

import "carbonmarket/internal/domain"

// Defaults applied to a profile created at sign-up when the form left them blank.
const (
	DefaultBuyerCompany  = "Acme Corp"
	DefaultSellerCompany = "EcoSellers"
	DefaultOwnerName     = "John Doe"
	DefaultAddress       = "123 Climate Way"
	DefaultPhone         = "+123456789"
)

// DefaultCompany returns the placeholder company name for role.
func DefaultCompany(role domain.Role) string {
	if role == domain.RoleSeller {
		return DefaultSellerCompany
	}
	return DefaultBuyerCompany
}
