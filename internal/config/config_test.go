package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadForTests(map[string]string{
		"PLATFORM_API_URL":    "https://platform.example.com",
		"DEFAULT_FEE_PERCENT": "",
		"DEFAULT_FEE_FIXED":   "",
		"PORT":                "",
		"PROMO_RATE_MAX":      "",
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DefaultFeePercent.String() != "5.9" {
		t.Fatalf("unexpected fee percent %s", cfg.DefaultFeePercent)
	}
	if cfg.DefaultFeeFixed.String() != "0.35" {
		t.Fatalf("unexpected fee fixed %s", cfg.DefaultFeeFixed)
	}
	if cfg.HTTPAddr() != ":8080" {
		t.Fatalf("unexpected addr %s", cfg.HTTPAddr())
	}
	if cfg.PromoRateMax != 30 {
		t.Fatalf("unexpected promo rate max %d", cfg.PromoRateMax)
	}
	if cfg.CatalogCacheTTL != 5*time.Minute {
		t.Fatalf("unexpected cache ttl %s", cfg.CatalogCacheTTL)
	}
}

func TestLoadRequiresPlatformURL(t *testing.T) {
	if _, err := LoadForTests(map[string]string{"PLATFORM_API_URL": ""}); err == nil {
		t.Fatal("expected error when PLATFORM_API_URL is missing")
	}
}

func TestLoadRejectsBadFee(t *testing.T) {
	_, err := LoadForTests(map[string]string{
		"PLATFORM_API_URL":    "https://platform.example.com",
		"DEFAULT_FEE_PERCENT": "not-a-number",
	})
	if err == nil {
		t.Fatal("expected error for malformed fee percent")
	}
}
