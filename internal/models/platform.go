package models

import "github.com/uptrace/bun"

// PlatformConfigID is the stable key of the single platform config row.
const PlatformConfigID = "platform"

// PlatformConfig is the platform-wide settlement configuration. Exactly one
// row exists, keyed by PlatformConfigID. Identities are hex-encoded Ed25519
// public keys.
type PlatformConfig struct {
	bun.BaseModel `bun:"table:platform_config"`

	ID               string `bun:"id,pk" json:"id"`
	FeeReceiver      string `bun:"fee_receiver" json:"fee_receiver"`
	FeeAmount        int64  `bun:"fee_amount" json:"fee_amount"` // flat fee, micro-units
	UpdateAuthority  string `bun:"update_authority" json:"update_authority"`
	BackendAuthority string `bun:"backend_authority" json:"backend_authority"`
	EventAdmin       string `bun:"event_admin" json:"event_admin"`
	EscrowAccount    string `bun:"escrow_account" json:"escrow_account"`
	ListingDeposit   int64  `bun:"listing_deposit" json:"listing_deposit"`
	IsPaused         bool   `bun:"is_paused" json:"is_paused"`
}
