package platform

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestGetSystemSettings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/system/settings", r.URL.Path)
		require.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"platformFeePercent":"5.9","platformFeeFixed":"0.35","maintenanceMode":false}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "secret", time.Second, nil)
	settings, err := client.GetSystemSettings(context.Background())
	require.NoError(t, err)
	require.Equal(t, "5.9", settings.PlatformFeePercent.String())
	require.Equal(t, "0.35", settings.PlatformFeeFixed.String())
	require.False(t, settings.MaintenanceMode)
}

func TestValidatePromoCodeSendsPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/promo/validate", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"valid":true,"code":"TEAM10","discountPercent":"10","ownerName":"Ada"}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "", time.Second, nil)
	result, err := client.ValidatePromoCode(context.Background(), "evt-1", "TEAM10")
	require.NoError(t, err)
	require.True(t, result.Valid)
	require.Equal(t, "Ada", result.OwnerName)
	require.True(t, result.DiscountPercent.Equal(decimal.NewFromInt(10)))
}

func TestValidatePromoCodeClampsDiscount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"valid":true,"code":"HUGE","discountPercent":"250"}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "", time.Second, nil)
	result, err := client.ValidatePromoCode(context.Background(), "evt-1", "HUGE")
	require.NoError(t, err)
	require.True(t, result.DiscountPercent.Equal(decimal.NewFromInt(100)),
		"out-of-range backend discount must clamp at the wire boundary")
}

func TestErrorMessagePassedVerbatim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":{"message":"tickets for this tier are sold out"}}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "", time.Second, nil)
	_, err := client.PurchaseTicket(context.Background(), PurchaseRequest{UserID: "u", EventID: "e"})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusConflict, apiErr.StatusCode)
	require.Equal(t, "tickets for this tier are sold out", apiErr.Error())
}

func TestExtractMessageShapes(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"nested envelope", `{"error":{"message":"nope"}}`, "nope"},
		{"flat message", `{"message":"still nope"}`, "still nope"},
		{"plain text", "  gateway timeout\n", "gateway timeout"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, extractMessage([]byte(tc.body)))
		})
	}
}

func TestGetEventRequiresID(t *testing.T) {
	client := NewHTTPClient("http://localhost:0", "", time.Second, nil)
	_, err := client.GetEvent(context.Background(), "  ")
	require.Error(t, err)
}
