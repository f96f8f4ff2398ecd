package domain

import (
	"fmt"
	"strings"
)

// ShippingAddress is a value object. Every field is mandatory once the
// address is submitted at checkout.
type ShippingAddress struct {
	FullName   string `json:"fullName" bson:"full_name"`
	Street     string `json:"street" bson:"street"`
	City       string `json:"city" bson:"city"`
	Province   string `json:"province" bson:"province"`
	PostalCode string `json:"postalCode" bson:"postal_code"`
	Country    string `json:"country" bson:"country"`
	Phone      string `json:"phone" bson:"phone"`
}

// AddressError lists the fields that failed validation so the form can
// surface them inline.
type AddressError struct {
	Missing []string
}

func (e *AddressError) Error() string {
	return fmt.Sprintf("invalid shipping address: missing %s", strings.Join(e.Missing, ", "))
}

// Validate returns an *AddressError naming every empty field, or nil when
// the address is complete.
func (a ShippingAddress) Validate() error {
	var missing []string
	fields := []struct {
		name  string
		value string
	}{
		{"fullName", a.FullName},
		{"street", a.Street},
		{"city", a.City},
		{"province", a.Province},
		{"postalCode", a.PostalCode},
		{"country", a.Country},
		{"phone", a.Phone},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return &AddressError{Missing: missing}
	}
	return nil
}
