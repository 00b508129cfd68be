package store

import "github.com/dukerupert/coinjar/internal/ledger"

var (
	_ ledger.ActivitySource     = (*ActivityStore)(nil)
	_ ledger.RewardTaskSource   = (*RewardTaskStore)(nil)
	_ ledger.ChildSource        = (*ChildStore)(nil)
	_ ledger.ConfigSource       = (*SettingsStore)(nil)
	_ ledger.RolloverStateStore = (*SettingsStore)(nil)
)
