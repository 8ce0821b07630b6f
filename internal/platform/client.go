package platform

import (
	"context"

	"github.com/shopspring/decimal"
)

// Settings is the system fee configuration served by the platform backend.
type Settings struct {
	PlatformFeePercent decimal.Decimal `json:"platformFeePercent"`
	PlatformFeeFixed   decimal.Decimal `json:"platformFeeFixed"`
	MaintenanceMode    bool            `json:"maintenanceMode"`
}

// TicketOption is the wire shape of one ticket tier of an event.
type TicketOption struct {
	Name            string          `json:"name"`
	Price           decimal.Decimal `json:"price"`
	MinimumDonation decimal.Decimal `json:"minimumDonation"`
}

// AddOn is the wire shape of one event add-on.
type AddOn struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// Event is the platform's event payload, reduced to what checkout needs.
type Event struct {
	ID            string         `json:"id"`
	Type          string         `json:"type"`
	TicketOptions []TicketOption `json:"ticketOptions"`
	AddOns        []AddOn        `json:"addOns"`
}

// PromoResult is the outcome of validating a typed promo code. The discount
// only applies when Valid is true; everything else on an invalid result is
// undefined and must be ignored.
type PromoResult struct {
	Valid           bool            `json:"valid"`
	Code            string          `json:"code"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	OwnerName       string          `json:"ownerName,omitempty"`
}

// ClampDiscountPercent bounds a discount percentage to the valid 0-100 range.
// Backend responses are not trusted to stay in range.
func ClampDiscountPercent(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	if hundred := decimal.NewFromInt(100); d.GreaterThan(hundred) {
		return hundred
	}
	return d
}

// Fees is the fee snapshot attached to a purchase. The platform charges
// exactly these amounts; it does not recompute them.
type Fees struct {
	Mandatory decimal.Decimal `json:"mandatory"`
	Donation  decimal.Decimal `json:"donation"`
}

// PurchaseLine mirrors one cart line on the purchase wire format.
type PurchaseLine struct {
	Quantity       int              `json:"quantity"`
	DonationAmount *decimal.Decimal `json:"donationAmount,omitempty"`
}

// PurchaseRequest commits an order with the platform backend.
type PurchaseRequest struct {
	UserID          string                  `json:"userId"`
	EventID         string                  `json:"eventId"`
	Cart            map[string]PurchaseLine `json:"cart"`
	RecipientUserID string                  `json:"recipientUserId,omitempty"`
	PromoCode       string                  `json:"promoCode,omitempty"`
	Fees            Fees                    `json:"fees"`
}

// PurchaseResult acknowledges a committed order. Issued tickets only become
// visible after the caller refreshes user data, so treat this as provisional.
type PurchaseResult struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
}

// Client defines the platform backend operations checkout depends on.
type Client interface {
	GetSystemSettings(ctx context.Context) (Settings, error)
	GetEvent(ctx context.Context, eventID string) (Event, error)
	ValidatePromoCode(ctx context.Context, eventID, code string) (PromoResult, error)
	PurchaseTicket(ctx context.Context, req PurchaseRequest) (PurchaseResult, error)
}
