package domain

import "strings"

type CustomerInfo struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Address string `json:"address"`
	City    string `json:"city"`
	ZipCode string `json:"zipCode"`
}

// MissingFields lists the json names of blank fields in form order.
func (c CustomerInfo) MissingFields() []string {
	var missing []string
	fields := []struct {
		name  string
		value string
	}{
		{"name", c.Name},
		{"email", c.Email},
		{"address", c.Address},
		{"city", c.City},
		{"zipCode", c.ZipCode},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

func (c CustomerInfo) Complete() bool {
	return len(c.MissingFields()) == 0
}

func (c CustomerInfo) BillingDetails() BillingDetails {
	return BillingDetails{
		Name:  c.Name,
		Email: c.Email,
		Address: BillingAddress{
			Line1:      c.Address,
			City:       c.City,
			PostalCode: c.ZipCode,
		},
	}
}
