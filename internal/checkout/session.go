package checkout

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-stagepass/internal/catalog"
	"github.com/noah-isme/backend-stagepass/internal/events"
	"github.com/noah-isme/backend-stagepass/internal/platform"
	"github.com/noah-isme/backend-stagepass/internal/pricing"
)

// State is the checkout view state machine.
type State string

const (
	// StateCheckout is the interactive item-selection state.
	StateCheckout State = "checkout"
	// StateLoading means a purchase submission is in flight.
	StateLoading State = "loading"
	// StateSuccess means the platform acknowledged the order. Issued tickets
	// only appear after a user-data refresh; the breakdown stays provisional
	// until then.
	StateSuccess State = "success"
	// StateError retains the last breakdown and allows retry.
	StateError State = "error"
)

var (
	// ErrPromoInvalid is returned when the platform rejects a typed code.
	// A previously applied valid attribution stays in place.
	ErrPromoInvalid = errors.New("checkout: promo code not valid")
	// ErrSubmitInFlight is returned when a purchase is already outstanding.
	ErrSubmitInFlight = errors.New("checkout: purchase already in flight")
)

// SessionConfig wires a session's collaborators.
type SessionConfig struct {
	Client      platform.Client
	Bus         *events.Bus
	Logger      zerolog.Logger
	Catalog     catalog.EventCatalog
	UserID      string
	RecipientID string
	DefaultFees pricing.FeeConfig
}

// Session owns all mutable state of a single checkout attempt: the cart, the
// promo attribution, the fee configuration and the donation override. There is
// no hidden global state; every recomputation reads from here and the pricing
// engine stays pure.
type Session struct {
	mu sync.Mutex

	client platform.Client
	bus    *events.Bus
	logger zerolog.Logger

	catalog     catalog.EventCatalog
	userID      string
	recipientID string

	cart  pricing.Cart
	promo *pricing.Promo

	fees        pricing.FeeConfig
	defaultFees pricing.FeeConfig

	donation           decimal.Decimal
	donationOverridden bool

	state      State
	lastError  string
	lastResult platform.PurchaseResult

	promoGen   uint64
	submitting bool
}

// NewSession starts a checkout over the given catalog. Fees begin at the
// configured defaults until LoadFees resolves.
func NewSession(cfg SessionConfig) *Session {
	return &Session{
		client:      cfg.Client,
		bus:         cfg.Bus,
		logger:      cfg.Logger,
		catalog:     cfg.Catalog,
		userID:      cfg.UserID,
		recipientID: cfg.RecipientID,
		cart:        pricing.Cart{},
		fees:        cfg.DefaultFees,
		defaultFees: cfg.DefaultFees,
		state:       StateCheckout,
	}
}

// LoadFees fetches the platform fee configuration. Failure is silent to the
// buyer: the defaults stay in place and checkout is never blocked.
func (s *Session) LoadFees(ctx context.Context) {
	if s.client == nil {
		return
	}
	settings, err := s.client.GetSystemSettings(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("fee config fetch failed, using defaults")
		return
	}
	s.mu.Lock()
	s.fees = pricing.FeeConfig{Percent: settings.PlatformFeePercent, Fixed: settings.PlatformFeeFixed}
	s.mu.Unlock()
}

// SetFees installs an already-fetched fee configuration, sparing a second
// settings round-trip when the caller has one in hand.
func (s *Session) SetFees(fees pricing.FeeConfig) {
	s.mu.Lock()
	s.fees = fees
	s.mu.Unlock()
}

// SetQuantity updates one cart line. Negative quantities clamp to zero.
func (s *Session) SetQuantity(name string, qty int) {
	if qty < 0 {
		qty = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	line := s.cart[name]
	line.Qty = qty
	s.cart[name] = line
}

// SetDonationAmount updates the buyer-chosen amount of a fundraiser line.
// The minimum-donation floor is applied at pricing time, not here.
func (s *Session) SetDonationAmount(name string, amount decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	line := s.cart[name]
	line.DonationAmount = amount
	s.cart[name] = line
}

// SetPlatformDonation records a manual donation override for the rest of the
// session. Values below zero floor at zero.
func (s *Session) SetPlatformDonation(amount decimal.Decimal) {
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.donation = amount
	s.donationOverridden = true
}

// ApplyPromoCode normalizes and validates a typed code against the platform.
// An empty input is an explicit clear. An invalid response or a validation
// error leaves any previously applied attribution untouched. A response for a
// code the buyer has since retyped is discarded: the newest validation wins.
func (s *Session) ApplyPromoCode(ctx context.Context, raw string) error {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if code == "" {
		s.mu.Lock()
		s.promo = nil
		s.mu.Unlock()
		return nil
	}
	s.mu.Lock()
	s.promoGen++
	gen := s.promoGen
	s.mu.Unlock()

	result, err := s.client.ValidatePromoCode(ctx, s.catalog.EventID, code)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.promoGen {
		// superseded by a newer attempt
		return nil
	}
	if err != nil {
		return err
	}
	if !result.Valid {
		return ErrPromoInvalid
	}
	s.promo = &pricing.Promo{
		Code:            result.Code,
		DiscountPercent: platform.ClampDiscountPercent(result.DiscountPercent),
		OwnerName:       result.OwnerName,
	}
	if s.bus != nil {
		_, _ = s.bus.Emit(ctx, events.TopicPromoApplied, s.catalog.EventID, map[string]string{
			"code":  result.Code,
			"owner": result.OwnerName,
		})
	}
	return nil
}

// Promo returns the currently applied attribution, if any.
func (s *Session) Promo() *pricing.Promo {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.promo == nil {
		return nil
	}
	copied := *s.promo
	return &copied
}

// Breakdown recomputes the order summary from the current session state. When
// the donation has not been manually overridden it defaults to ten percent of
// the discounted subtotal, rounded up to a whole unit.
func (s *Session) Breakdown() pricing.Breakdown {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.breakdownLocked()
}

func (s *Session) breakdownLocked() pricing.Breakdown {
	donation := s.donation
	if !s.donationOverridden {
		base := pricing.PriceCart(s.cart, s.catalog.Items, s.catalog.Type, s.promo, s.fees, decimal.Zero)
		donation = pricing.DefaultDonation(base.Subtotal.Sub(base.Discount))
	}
	return pricing.PriceCart(s.cart, s.catalog.Items, s.catalog.Type, s.promo, s.fees, donation)
}

// State reports the current view state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastError returns the collaborator's message from the last failed submit,
// verbatim, for inline display.
func (s *Session) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

// Result returns the acknowledgement of a successful submit.
func (s *Session) Result() platform.PurchaseResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastResult
}

// Submit commits the order with the exact fee and donation snapshot from the
// current breakdown, rounded to two decimals the same way they were displayed.
// Only one submission may be outstanding; retry is allowed from the error
// state without re-entering item selection.
func (s *Session) Submit(ctx context.Context) (platform.PurchaseResult, error) {
	s.mu.Lock()
	if s.submitting {
		s.mu.Unlock()
		return platform.PurchaseResult{}, ErrSubmitInFlight
	}
	s.submitting = true
	s.state = StateLoading
	breakdown := s.breakdownLocked()
	req := s.purchaseRequestLocked(breakdown)
	s.mu.Unlock()

	if s.bus != nil {
		_, _ = s.bus.Emit(ctx, events.TopicCheckoutStarted, s.catalog.EventID, map[string]string{
			"userId": s.userID,
			"total":  pricing.Round2(breakdown.Total).StringFixed(2),
		})
	}

	result, err := s.client.PurchaseTicket(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitting = false
	if err != nil {
		s.state = StateError
		s.lastError = err.Error()
		if s.bus != nil {
			_, _ = s.bus.Emit(ctx, events.TopicCheckoutFailed, s.catalog.EventID, map[string]string{
				"userId": s.userID,
				"reason": err.Error(),
			})
		}
		return platform.PurchaseResult{}, err
	}
	s.state = StateSuccess
	s.lastError = ""
	s.lastResult = result
	if s.bus != nil {
		_, _ = s.bus.Emit(ctx, events.TopicCheckoutSucceeded, result.OrderID, map[string]string{
			"userId":  s.userID,
			"eventId": s.catalog.EventID,
			"status":  result.Status,
		})
	}
	return result, nil
}

func (s *Session) purchaseRequestLocked(breakdown pricing.Breakdown) platform.PurchaseRequest {
	lines := make(map[string]platform.PurchaseLine, len(s.cart))
	for name, line := range s.cart {
		if line.Qty <= 0 {
			continue
		}
		out := platform.PurchaseLine{Quantity: line.Qty}
		if s.catalog.Type == pricing.EventFundraiser {
			amount := line.DonationAmount
			out.DonationAmount = &amount
		}
		lines[name] = out
	}
	promoCode := ""
	if s.promo != nil {
		promoCode = s.promo.Code
	}
	return platform.PurchaseRequest{
		UserID:          s.userID,
		EventID:         s.catalog.EventID,
		Cart:            lines,
		RecipientUserID: s.recipientID,
		PromoCode:       promoCode,
		Fees: platform.Fees{
			Mandatory: pricing.Round2(breakdown.MandatoryFees),
			Donation:  pricing.Round2(breakdown.Donation),
		},
	}
}

// Dismiss schedules a reset to the checkout state after the given delay, long
// enough for an exit animation. An in-flight submission is never interrupted.
func (s *Session) Dismiss(delay time.Duration) {
	time.AfterFunc(delay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.submitting {
			return
		}
		s.state = StateCheckout
		s.lastError = ""
	})
}
