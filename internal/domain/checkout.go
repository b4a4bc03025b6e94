package domain

import (
	"sort"
	"strings"
)

type CheckoutStep string

const (
	CheckoutStepShipping   CheckoutStep = "SHIPPING"
	CheckoutStepPayment    CheckoutStep = "PAYMENT"
	CheckoutStepReview     CheckoutStep = "REVIEW"
	CheckoutStepSubmitting CheckoutStep = "SUBMITTING"
	CheckoutStepConfirmed  CheckoutStep = "CONFIRMED"
	CheckoutStepFailed     CheckoutStep = "FAILED"
)

var checkoutTransitions = map[CheckoutStep][]CheckoutStep{
	CheckoutStepShipping:   {CheckoutStepPayment},
	CheckoutStepPayment:    {CheckoutStepShipping, CheckoutStepReview},
	CheckoutStepReview:     {CheckoutStepPayment, CheckoutStepSubmitting},
	CheckoutStepSubmitting: {CheckoutStepConfirmed, CheckoutStepFailed},
	CheckoutStepFailed:     {CheckoutStepPayment, CheckoutStepSubmitting},
}

func (s CheckoutStep) IsTerminal() bool {
	return s == CheckoutStepConfirmed
}

// CanTransitionTo reports whether next is a legal successor of s.
func (s CheckoutStep) CanTransitionTo(next CheckoutStep) bool {
	for _, allowed := range checkoutTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// String representation (for logging)
func (s CheckoutStep) String() string {
	return string(s)
}

// ShippingInfo is the shipping form collected during checkout.
type ShippingInfo struct {
	FullName    string `json:"fullName"`
	AddressLine string `json:"address"`
	City        string `json:"city"`
	State       string `json:"state"`
	PostalCode  string `json:"postalCode"`
	Country     string `json:"country"`
	Phone       string `json:"phone"`
}

func (s ShippingInfo) Missing() []string {
	return missingFields(map[string]string{
		"fullName":   s.FullName,
		"address":    s.AddressLine,
		"city":       s.City,
		"state":      s.State,
		"postalCode": s.PostalCode,
		"country":    s.Country,
		"phone":      s.Phone,
	})
}

// ShippingInfoFromAddress fills the form from a saved address.
func ShippingInfoFromAddress(a ShippingAddress) ShippingInfo {
	return ShippingInfo{
		FullName:    a.FullName,
		AddressLine: a.AddressLine,
		City:        a.City,
		State:       a.State,
		PostalCode:  a.PostalCode,
		Country:     a.Country,
		Phone:       a.Phone,
	}
}

// PaymentInfo is the simulated card form. It is never sent anywhere.
type PaymentInfo struct {
	CardNumber string `json:"cardNumber"`
	CardName   string `json:"cardName"`
	ExpiryDate string `json:"expiryDate"`
	CVV        string `json:"cvv"`
}

func (p PaymentInfo) Missing() []string {
	return missingFields(map[string]string{
		"cardNumber": p.CardNumber,
		"cardName":   p.CardName,
		"expiryDate": p.ExpiryDate,
		"cvv":        p.CVV,
	})
}

// Masked returns a copy safe for display: last four card digits, no cvv.
func (p PaymentInfo) Masked() PaymentInfo {
	digits := strings.ReplaceAll(p.CardNumber, " ", "")
	if len(digits) > 4 {
		digits = strings.Repeat("*", len(digits)-4) + digits[len(digits)-4:]
	}
	return PaymentInfo{CardNumber: digits, CardName: p.CardName, ExpiryDate: p.ExpiryDate}
}

func missingFields(fields map[string]string) []string {
	var missing []string
	for name, v := range fields {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}
