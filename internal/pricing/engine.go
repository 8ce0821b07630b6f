package pricing

import (
	"sort"

	"github.com/shopspring/decimal"
)

// EventType selects the pricing model for an event.
type EventType string

const (
	// EventTicketed is the fixed-price inventory model. Supports percentage discounts.
	EventTicketed EventType = "ticketed"
	// EventFundraiser is the donation-based model. Discounts are disabled and the
	// minimum-donation floor is enforced instead.
	EventFundraiser EventType = "fundraiser"
)

// CatalogItem describes one purchasable option of an event. For ticketed events
// Price is the fixed unit price; for fundraisers it is the suggested donation.
type CatalogItem struct {
	Name            string
	Price           decimal.Decimal
	MinimumDonation decimal.Decimal
}

// Catalog holds the ticket and add-on definitions of a single event.
// Names are unique across the union of both lists.
type Catalog struct {
	Tickets []CatalogItem
	AddOns  []CatalogItem
}

// Lookup resolves an item by name. Tickets are checked before add-ons, so a
// ticket wins if a name collision ever slips past catalog validation.
func (c Catalog) Lookup(name string) (item CatalogItem, isTicket bool, found bool) {
	for _, t := range c.Tickets {
		if t.Name == name {
			return t, true, true
		}
	}
	for _, a := range c.AddOns {
		if a.Name == name {
			return a, false, true
		}
	}
	return CatalogItem{}, false, false
}

// CartLine is one buyer selection, keyed by catalog item name in the Cart.
// DonationAmount is only meaningful for fundraiser events.
type CartLine struct {
	Qty            int
	DonationAmount decimal.Decimal
}

// Cart maps catalog item names to the buyer's selections.
type Cart map[string]CartLine

// Promo carries a resolved promoter attribution. DiscountPercent is 0-100 and
// applies only to ticket lines of ticketed events.
type Promo struct {
	Code            string
	DiscountPercent decimal.Decimal
	OwnerName       string
}

// FeeConfig is the platform fee schedule: a percentage of the discounted
// subtotal plus a flat amount.
type FeeConfig struct {
	Percent decimal.Decimal
	Fixed   decimal.Decimal
}

// Line is one priced cart entry in a Breakdown.
type Line struct {
	Name      string
	Qty       int
	UnitPrice decimal.Decimal
	Subtotal  decimal.Decimal
	IsTicket  bool
}

// Breakdown is the computed order summary. Values retain full precision;
// rounding to two decimals happens only at the display and wire boundary.
type Breakdown struct {
	Lines         []Line
	Subtotal      decimal.Decimal
	Discount      decimal.Decimal
	MandatoryFees decimal.Decimal
	Donation      decimal.Decimal
	Total         decimal.Decimal
}

var (
	hundred      = decimal.NewFromInt(100)
	donationRate = decimal.New(1, -1) // 0.1
)

// PriceCart computes the full order breakdown for a cart snapshot. It is pure:
// no side effects, no mutation of its inputs, safe to call on every state
// change. Cart names absent from the catalog price as zero-value lines rather
// than failing, so a stale cart never breaks the checkout surface.
func PriceCart(cart Cart, catalog Catalog, eventType EventType, promo *Promo, fees FeeConfig, platformDonation decimal.Decimal) Breakdown {
	names := make([]string, 0, len(cart))
	for name := range cart {
		names = append(names, name)
	}
	sort.Strings(names)

	lines := make([]Line, 0, len(names))
	subtotal := decimal.Zero
	ticketSubtotal := decimal.Zero
	for _, name := range names {
		entry := cart[name]
		qty := entry.Qty
		if qty < 0 {
			qty = 0
		}
		item, isTicket, found := catalog.Lookup(name)
		unitPrice := decimal.Zero
		if found {
			switch eventType {
			case EventFundraiser:
				unitPrice = decimal.Max(entry.DonationAmount, item.MinimumDonation)
			default:
				unitPrice = item.Price
			}
		}
		if unitPrice.IsNegative() {
			unitPrice = decimal.Zero
		}
		lineSubtotal := unitPrice.Mul(decimal.NewFromInt(int64(qty)))
		lines = append(lines, Line{
			Name:      name,
			Qty:       qty,
			UnitPrice: unitPrice,
			Subtotal:  lineSubtotal,
			IsTicket:  isTicket,
		})
		subtotal = subtotal.Add(lineSubtotal)
		if isTicket {
			ticketSubtotal = ticketSubtotal.Add(lineSubtotal)
		}
	}

	discount := decimal.Zero
	if eventType == EventTicketed && promo != nil && promo.DiscountPercent.IsPositive() {
		// A discount above 100% would drive the net negative.
		pct := decimal.Min(promo.DiscountPercent, hundred)
		discount = ticketSubtotal.Mul(pct).Div(hundred)
	}

	net := subtotal.Sub(discount)
	mandatory := decimal.Zero
	if net.IsPositive() {
		mandatory = net.Mul(fees.Percent).Div(hundred).Add(fees.Fixed)
	}

	donation := platformDonation
	if donation.IsNegative() {
		donation = decimal.Zero
	}

	return Breakdown{
		Lines:         lines,
		Subtotal:      subtotal,
		Discount:      discount,
		MandatoryFees: mandatory,
		Donation:      donation,
		Total:         net.Add(mandatory).Add(donation),
	}
}

// DefaultDonation suggests the optional platform donation for a discounted
// subtotal: ten percent rounded up to the next whole currency unit. The round
// up is deliberate; the suggestion always favours the beneficiary.
func DefaultDonation(subtotalAfterDiscount decimal.Decimal) decimal.Decimal {
	if !subtotalAfterDiscount.IsPositive() {
		return decimal.Zero
	}
	return subtotalAfterDiscount.Mul(donationRate).Ceil()
}

// Round2 rounds a monetary value to two decimal places for display or wire use.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
