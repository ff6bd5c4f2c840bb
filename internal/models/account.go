package models

import "github.com/uptrace/bun"

// Account is a funds-collaborator balance record, keyed by wallet address.
// Balances are micro-units and never go negative.
type Account struct {
	bun.BaseModel `bun:"table:accounts"`

	Address string `bun:"address,pk" json:"address"`
	Balance int64  `bun:"balance,notnull" json:"balance"`
}
