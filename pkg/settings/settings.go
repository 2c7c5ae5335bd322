package settings

import (
	"context"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// Well-known setting keys.
const (
	KeyPricePerSeatCents = "price_per_seat_cents"
	KeyPointExchangeRate = "point_exchange_rate"
)

// Provider resolves global mutable settings. Core services depend on this
// interface rather than the table-backed implementation so they can be tested
// with fixed values.
type Provider interface {
	Get(ctx context.Context, key string) (string, bool, error)
}

// PricePerSeatCents reads the monthly per-seat price, falling back to the
// provided default when the key is absent.
func PricePerSeatCents(ctx context.Context, p Provider, fallback int) (int, error) {
	raw, ok, err := p.Get(ctx, KeyPricePerSeatCents)
	if err != nil {
		return 0, fmt.Errorf("lookup %s: %w", KeyPricePerSeatCents, err)
	}
	if !ok {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, fmt.Errorf("setting %s has invalid value %q", KeyPricePerSeatCents, raw)
	}
	return value, nil
}

// PointExchangeRate reads the points-to-currency conversion rate.
func PointExchangeRate(ctx context.Context, p Provider) (decimal.Decimal, error) {
	raw, ok, err := p.Get(ctx, KeyPointExchangeRate)
	if err != nil {
		return decimal.Zero, fmt.Errorf("lookup %s: %w", KeyPointExchangeRate, err)
	}
	if !ok {
		return decimal.NewFromInt(1), nil
	}
	rate, err := decimal.NewFromString(raw)
	if err != nil || rate.IsNegative() {
		return decimal.Zero, fmt.Errorf("setting %s has invalid value %q", KeyPointExchangeRate, raw)
	}
	return rate, nil
}

// Static is a fixed-value Provider for tests and defaults.
type Static map[string]string

// Get implements Provider.
func (s Static) Get(_ context.Context, key string) (string, bool, error) {
	value, ok := s[key]
	return value, ok, nil
}
