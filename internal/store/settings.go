package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/dukerupert/coinjar/internal/model"
)

const (
	keyPaymentDay   = "payment_day_of_month"
	keyAutoSettle   = "auto_settlement_enabled"
	keyLastRollover = "last_month_rollover"
)

var paymentKeys = []string{
	keyPaymentDay,
	keyAutoSettle,
}

type SettingsStore struct {
	db *sql.DB
}

func NewSettingsStore(db *sql.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

func (s *SettingsStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("setting %q not found", key)
	}
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, nil
}

// lookup is Get without the not-found error.
func (s *SettingsStore) lookup(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, true, nil
}

func (s *SettingsStore) GetAll(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("get all settings: %w", err)
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		settings[key] = value
	}
	return settings, rows.Err()
}

func (s *SettingsStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

// ClampPaymentDay forces a payment day into 1..31.
func ClampPaymentDay(day int) int {
	return min(max(day, 1), 31)
}

// PaymentConfig reads the auto settlement settings. Missing or malformed
// values fall back to the defaults; the day is clamped to 1..31.
func (s *SettingsStore) PaymentConfig(ctx context.Context) (model.PaymentConfig, error) {
	cfg := model.DefaultPaymentConfig()
	for _, key := range paymentKeys {
		value, ok, err := s.lookup(ctx, key)
		if err != nil {
			return cfg, err
		}
		if !ok {
			continue
		}
		switch key {
		case keyPaymentDay:
			if d, err := strconv.Atoi(value); err == nil {
				cfg.PaymentDayOfMonth = ClampPaymentDay(d)
			}
		case keyAutoSettle:
			if b, err := strconv.ParseBool(value); err == nil {
				cfg.AutoSettlementEnabled = b
			}
		}
	}
	return cfg, nil
}

func (s *SettingsStore) SetPaymentConfig(ctx context.Context, cfg model.PaymentConfig) (model.PaymentConfig, error) {
	cfg.PaymentDayOfMonth = ClampPaymentDay(cfg.PaymentDayOfMonth)
	if err := s.Set(ctx, keyPaymentDay, strconv.Itoa(cfg.PaymentDayOfMonth)); err != nil {
		return cfg, err
	}
	if err := s.Set(ctx, keyAutoSettle, strconv.FormatBool(cfg.AutoSettlementEnabled)); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LastRollover returns the last acknowledged month boundary, if any.
func (s *SettingsStore) LastRollover(ctx context.Context) (time.Time, bool, error) {
	value, ok, err := s.lookup(ctx, keyLastRollover)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse %s: %w", keyLastRollover, err)
	}
	return t, true, nil
}

// SetLastRollover stores t with its UTC offset so the month it was
// observed in can be recovered.
func (s *SettingsStore) SetLastRollover(ctx context.Context, t time.Time) error {
	return s.Set(ctx, keyLastRollover, t.Format(time.RFC3339))
}
