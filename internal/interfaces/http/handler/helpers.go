package handler

import (
	"time"

	"github.com/shopspring/decimal"
)

// expiryDateLayout is the wire format for batch expiry dates
const expiryDateLayout = "2006-01-02"

// toDecimalPtr converts a float64 to a *decimal.Decimal
func toDecimalPtr(f float64) *decimal.Decimal {
	d := decimal.NewFromFloat(f)
	return &d
}

// toDecimal converts a float64 to a decimal.Decimal
func toDecimal(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// parseExpiryDate parses an optional YYYY-MM-DD date string
func parseExpiryDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(expiryDateLayout, value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
