package models

import "github.com/uptrace/bun"

// PointsLedgerConfigID is the stable key of the single ledger config row.
const PointsLedgerConfigID = "ledger"

// WalletPoints is a loyalty-points balance in the external points ledger.
type WalletPoints struct {
	bun.BaseModel `bun:"table:wallet_points"`

	Wallet string `bun:"wallet,pk" json:"wallet"`
	Points int64  `bun:"points,notnull" json:"points"`
}

type PointsLedgerConfig struct {
	bun.BaseModel `bun:"table:points_ledger_config"`

	ID    string `bun:"id,pk"`
	Admin string `bun:"admin,notnull"`
}

// PointsAuthorizedCaller is an entry in the ledger's caller allow-list.
type PointsAuthorizedCaller struct {
	bun.BaseModel `bun:"table:points_authorized_callers"`

	Authority string `bun:"authority,pk"`
}
