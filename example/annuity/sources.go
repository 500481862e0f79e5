package main

import (
	"context"

	"github.com/coniferlabs/appintake/prefill"
)

// demoSources serves canned CRM data so the example runs without any
// external systems.
func demoSources() prefill.Sources {
	return prefill.Sources{
		Profile:     demoProfile{},
		Financial:   demoFinancial{},
		Preferences: demoPreferences{},
	}
}

type demoProfile struct{}

func (demoProfile) LookupProfile(ctx context.Context, clientID string) (map[string]any, error) {
	return map[string]any{
		"first_name":    "Margaret",
		"last_name":     "Chen",
		"date_of_birth": "1958-04-12",
		"email":         "mchen@example.com",
		"phone":         "555-867-5309",
	}, nil
}

type demoFinancial struct{}

func (demoFinancial) LookupFinancialHistory(ctx context.Context, clientID string) (map[string]any, error) {
	return map[string]any{
		"annual_income":  85000,
		"net_worth":      1200000,
		"risk_tolerance": "conservative",
	}, nil
}

type demoPreferences struct{}

func (demoPreferences) LookupPreferences(ctx context.Context, advisorID string) (map[string]any, error) {
	return map[string]any{
		"premium_amount": 100000,
	}, nil
}
