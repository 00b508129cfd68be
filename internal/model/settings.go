package model

import "time"

type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PaymentConfig controls automatic settlement.
type PaymentConfig struct {
	PaymentDayOfMonth     int  `json:"payment_day_of_month"`
	AutoSettlementEnabled bool `json:"auto_settlement_enabled"`
}

// DefaultPaymentConfig pays on the first of the month with auto settlement on.
func DefaultPaymentConfig() PaymentConfig {
	return PaymentConfig{PaymentDayOfMonth: 1, AutoSettlementEnabled: true}
}
