package platform

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MockClient serves canned data and is useful for tests and local development.
type MockClient struct {
	Events map[string]Event
}

// GetSystemSettings returns the stock fee schedule.
func (MockClient) GetSystemSettings(ctx context.Context) (Settings, error) {
	_ = ctx
	return Settings{
		PlatformFeePercent: decimal.NewFromFloat(5.9),
		PlatformFeeFixed:   decimal.NewFromFloat(0.35),
	}, nil
}

// GetEvent returns a configured event or a small ticketed default.
func (m MockClient) GetEvent(ctx context.Context, eventID string) (Event, error) {
	_ = ctx
	if ev, ok := m.Events[eventID]; ok {
		return ev, nil
	}
	return Event{
		ID:   eventID,
		Type: "ticketed",
		TicketOptions: []TicketOption{
			{Name: "GA", Price: decimal.NewFromInt(20)},
			{Name: "VIP", Price: decimal.NewFromInt(75)},
		},
		AddOns: []AddOn{
			{Name: "Shirt", Price: decimal.NewFromInt(15)},
		},
	}, nil
}

// ValidatePromoCode accepts any code starting with "TEAM" at ten percent.
func (MockClient) ValidatePromoCode(ctx context.Context, eventID, code string) (PromoResult, error) {
	_ = ctx
	_ = eventID
	if strings.HasPrefix(code, "TEAM") {
		return PromoResult{Valid: true, Code: code, DiscountPercent: decimal.NewFromInt(10), OwnerName: "Team Demo"}, nil
	}
	return PromoResult{Valid: false, Code: code}, nil
}

// PurchaseTicket acknowledges every order with a fresh identifier.
func (MockClient) PurchaseTicket(ctx context.Context, req PurchaseRequest) (PurchaseResult, error) {
	_ = ctx
	if req.EventID == "" {
		return PurchaseResult{}, fmt.Errorf("event id is required")
	}
	return PurchaseResult{OrderID: uuid.NewString(), Status: "CONFIRMED"}, nil
}
