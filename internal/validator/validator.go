package validator

import (
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/tixwave/pricing-engine/internal/domain"
)

var (
	couponCodeRgx = regexp.MustCompile(`^[A-Za-z0-9_-]{3,32}$`)

	paymentMethods = map[string]bool{
		"CARD":       true,
		"UPI":        true,
		"WALLET":     true,
		"NETBANKING": true,
	}
)

func NewValidator() *validator.Validate {
	validator := validator.New(validator.WithRequiredStructEnabled())

	validator.RegisterValidation("coupon_code", validateCouponCode)
	validator.RegisterValidation("payment_method", validatePaymentMethod)
	validator.RegisterValidation("membership_tier", validateMembershipTier)

	return validator
}

func validateCouponCode(fl validator.FieldLevel) bool {
	return couponCodeRgx.MatchString(fl.Field().String())
}

func validatePaymentMethod(fl validator.FieldLevel) bool {
	return paymentMethods[fl.Field().String()]
}

func validateMembershipTier(fl validator.FieldLevel) bool {
	switch domain.MembershipTier(fl.Field().String()) {
	case domain.TierNone, domain.TierSilver, domain.TierGold, domain.TierPlatinum:
		return true
	}

	return false
}

// ValidationMessage converts validator errors into readable messages
func ValidationMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "is required"
	case "gt":
		return fmt.Sprintf("must be greater than %s", err.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", err.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", err.Param())
	case "min":
		return fmt.Sprintf("must contain at least %s items", err.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters long", err.Param())
	case "coupon_code":
		return "must be 3-32 letters, digits, hyphens or underscores"
	case "payment_method":
		return "must be one of CARD, UPI, WALLET, NETBANKING"
	case "membership_tier":
		return "must be one of NONE, SILVER, GOLD, PLATINUM"
	default:
		return "is invalid"
	}
}
