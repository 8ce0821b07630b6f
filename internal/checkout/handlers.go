package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-stagepass/internal/catalog"
	"github.com/noah-isme/backend-stagepass/internal/common"
	"github.com/noah-isme/backend-stagepass/internal/events"
	"github.com/noah-isme/backend-stagepass/internal/obs"
	"github.com/noah-isme/backend-stagepass/internal/platform"
	"github.com/noah-isme/backend-stagepass/internal/pricing"
)

// Handler exposes the checkout pricing endpoints.
type Handler struct {
	Catalog     *catalog.Service
	Platform    platform.Client
	Bus         *events.Bus
	Logger      zerolog.Logger
	Validate    *validator.Validate
	DefaultFees pricing.FeeConfig
}

type cartLinePayload struct {
	Quantity       int              `json:"quantity"`
	DonationAmount *decimal.Decimal `json:"donationAmount,omitempty"`
}

type promoPayload struct {
	Code            string          `json:"code" validate:"required"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	OwnerName       string          `json:"ownerName,omitempty"`
}

type quoteRequest struct {
	EventID          string                     `json:"eventId" validate:"required"`
	Cart             map[string]cartLinePayload `json:"cart" validate:"required"`
	Promo            *promoPayload              `json:"promo,omitempty"`
	PlatformDonation *decimal.Decimal           `json:"platformDonation,omitempty"`
}

type validatePromoRequest struct {
	Code string `json:"code" validate:"required"`
}

type checkoutRequest struct {
	UserID           string                     `json:"userId" validate:"required"`
	EventID          string                     `json:"eventId" validate:"required"`
	Cart             map[string]cartLinePayload `json:"cart" validate:"required"`
	RecipientUserID  string                     `json:"recipientUserId,omitempty"`
	PromoCode        string                     `json:"promoCode,omitempty"`
	PlatformDonation *decimal.Decimal           `json:"platformDonation,omitempty"`
}

type lineView struct {
	Name         string `json:"name"`
	Quantity     int    `json:"quantity"`
	UnitPrice    string `json:"unitPrice"`
	LineSubtotal string `json:"lineSubtotal"`
	IsTicket     bool   `json:"isTicket"`
}

type breakdownView struct {
	Items         []lineView `json:"items"`
	Subtotal      string     `json:"subtotal"`
	Discount      string     `json:"discount"`
	MandatoryFees string     `json:"mandatoryFees"`
	Donation      string     `json:"donation"`
	FinalTotal    string     `json:"finalTotal"`
	Supporting    string     `json:"supporting,omitempty"`
}

// Currency values render with exactly two decimal places; the engine keeps
// full precision up to this point.
func renderBreakdown(b pricing.Breakdown, promo *pricing.Promo) breakdownView {
	items := make([]lineView, 0, len(b.Lines))
	for _, line := range b.Lines {
		items = append(items, lineView{
			Name:         line.Name,
			Quantity:     line.Qty,
			UnitPrice:    line.UnitPrice.StringFixed(2),
			LineSubtotal: line.Subtotal.StringFixed(2),
			IsTicket:     line.IsTicket,
		})
	}
	view := breakdownView{
		Items:         items,
		Subtotal:      b.Subtotal.StringFixed(2),
		Discount:      b.Discount.StringFixed(2),
		MandatoryFees: pricing.Round2(b.MandatoryFees).StringFixed(2),
		Donation:      pricing.Round2(b.Donation).StringFixed(2),
		FinalTotal:    pricing.Round2(b.Total).StringFixed(2),
	}
	if promo != nil && promo.OwnerName != "" {
		view.Supporting = promo.OwnerName
	}
	return view
}

// Quote computes a stateless price preview for a cart snapshot.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	var payload quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := h.Validate.Struct(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	if payload.Promo != nil {
		pct := payload.Promo.DiscountPercent
		if pct.IsNegative() || pct.GreaterThan(decimal.NewFromInt(100)) {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "discountPercent must be between 0 and 100", nil)
			return
		}
	}
	eventCatalog, err := h.Catalog.Get(r.Context(), payload.EventID)
	if err != nil {
		h.writeCatalogError(w, err)
		return
	}
	fees, _ := h.fetchFees(r.Context())

	var promo *pricing.Promo
	if payload.Promo != nil {
		promo = &pricing.Promo{
			Code:            strings.ToUpper(strings.TrimSpace(payload.Promo.Code)),
			DiscountPercent: payload.Promo.DiscountPercent,
			OwnerName:       payload.Promo.OwnerName,
		}
	}
	cart := toCart(payload.Cart)

	donation, overridden := decimal.Zero, false
	if payload.PlatformDonation != nil {
		donation, overridden = *payload.PlatformDonation, true
	}
	if !overridden {
		base := pricing.PriceCart(cart, eventCatalog.Items, eventCatalog.Type, promo, fees, decimal.Zero)
		donation = pricing.DefaultDonation(base.Subtotal.Sub(base.Discount))
	}
	breakdown := pricing.PriceCart(cart, eventCatalog.Items, eventCatalog.Type, promo, fees, donation)

	if obs.QuoteTotal != nil {
		obs.QuoteTotal.WithLabelValues(string(eventCatalog.Type)).Inc()
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": renderBreakdown(breakdown, promo)})
}

// ValidatePromo normalizes a typed code and checks it with the platform. An
// invalid code is a normal response, not an error: the client decides what to
// do with its currently applied attribution.
func (h *Handler) ValidatePromo(w http.ResponseWriter, r *http.Request) {
	eventID := strings.TrimSpace(chi.URLParam(r, "eventId"))
	if eventID == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "eventId is required", nil)
		return
	}
	var payload validatePromoRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	code := strings.ToUpper(strings.TrimSpace(payload.Code))
	if code == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "code is required", nil)
		return
	}
	result, err := h.Platform.ValidatePromoCode(r.Context(), eventID, code)
	if err != nil {
		if obs.PromoValidationTotal != nil {
			obs.PromoValidationTotal.WithLabelValues("error").Inc()
		}
		common.JSONError(w, http.StatusBadGateway, "UPSTREAM", err.Error(), nil)
		return
	}
	label := "invalid"
	if result.Valid {
		label = "valid"
	}
	if obs.PromoValidationTotal != nil {
		obs.PromoValidationTotal.WithLabelValues(label).Inc()
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": result})
}

// Checkout runs a full checkout session: fee load, promo resolution, pricing
// and purchase submission.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var payload checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := h.Validate.Struct(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	eventCatalog, err := h.Catalog.Get(r.Context(), payload.EventID)
	if err != nil {
		h.writeCatalogError(w, err)
		return
	}
	fees, maintenance := h.fetchFees(r.Context())
	if maintenance {
		common.JSONError(w, http.StatusServiceUnavailable, "MAINTENANCE", "platform is under maintenance", nil)
		return
	}

	session := NewSession(SessionConfig{
		Client:      h.Platform,
		Bus:         h.Bus,
		Logger:      h.Logger,
		Catalog:     eventCatalog,
		UserID:      payload.UserID,
		RecipientID: payload.RecipientUserID,
		DefaultFees: h.DefaultFees,
	})
	session.SetFees(fees)
	for name, line := range payload.Cart {
		session.SetQuantity(name, line.Quantity)
		if line.DonationAmount != nil {
			session.SetDonationAmount(name, *line.DonationAmount)
		}
	}
	if payload.PlatformDonation != nil {
		session.SetPlatformDonation(*payload.PlatformDonation)
	}
	if payload.PromoCode != "" {
		if err := session.ApplyPromoCode(r.Context(), payload.PromoCode); err != nil {
			if errors.Is(err, ErrPromoInvalid) {
				common.JSONError(w, http.StatusUnprocessableEntity, "PROMO_INVALID", "promo code not valid", nil)
				return
			}
			common.JSONError(w, http.StatusBadGateway, "UPSTREAM", err.Error(), nil)
			return
		}
	}

	result, err := session.Submit(r.Context())
	if err != nil {
		if obs.PurchaseTotal != nil {
			obs.PurchaseTotal.WithLabelValues("error").Inc()
		}
		if errors.Is(err, ErrSubmitInFlight) {
			common.JSONError(w, http.StatusConflict, "IN_FLIGHT", err.Error(), nil)
			return
		}
		// collaborator message passes through verbatim; the client may retry
		common.JSONError(w, http.StatusBadGateway, "SUBMISSION_FAILED", err.Error(), map[string]any{"retryable": true})
		return
	}
	if obs.PurchaseTotal != nil {
		obs.PurchaseTotal.WithLabelValues("success").Inc()
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": map[string]any{
		"order":     result,
		"state":     session.State(),
		"breakdown": renderBreakdown(session.Breakdown(), session.Promo()),
	}})
}

func (h *Handler) writeCatalogError(w http.ResponseWriter, err error) {
	appErr := common.NewAppError("UPSTREAM", err.Error(), http.StatusBadGateway, err)
	var apiErr *platform.APIError
	switch {
	case errors.Is(err, catalog.ErrInvalidEvent):
		appErr = common.NewAppError("INVALID_EVENT", err.Error(), http.StatusUnprocessableEntity, err)
	case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound:
		appErr = common.NewAppError("NOT_FOUND", "event not found", http.StatusNotFound, err)
	}
	common.JSONError(w, appErr.HTTPStatus, appErr.Code, appErr.Message, appErr.Details)
}

// fetchFees resolves the fee schedule, silently falling back to the defaults:
// fee-config unavailability must never block checkout.
func (h *Handler) fetchFees(ctx context.Context) (pricing.FeeConfig, bool) {
	start := time.Now()
	settings, err := h.Platform.GetSystemSettings(ctx)
	if obs.UpstreamLatency != nil {
		obs.UpstreamLatency.WithLabelValues("get_system_settings").Observe(float64(time.Since(start).Milliseconds()))
	}
	if err != nil {
		h.Logger.Warn().Err(err).Msg("fee config fetch failed, using defaults")
		return h.DefaultFees, false
	}
	return pricing.FeeConfig{Percent: settings.PlatformFeePercent, Fixed: settings.PlatformFeeFixed}, settings.MaintenanceMode
}

func toCart(payload map[string]cartLinePayload) pricing.Cart {
	cart := make(pricing.Cart, len(payload))
	for name, line := range payload {
		qty := line.Quantity
		if qty < 0 {
			qty = 0
		}
		entry := pricing.CartLine{Qty: qty}
		if line.DonationAmount != nil {
			entry.DonationAmount = *line.DonationAmount
		}
		cart[name] = entry
	}
	return cart
}
