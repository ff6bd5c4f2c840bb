package models

import "github.com/uptrace/bun"

// Ticket is a uniquely-owned redemption record. It is created exactly once
// at purchase and never deleted; after check-in it persists as provenance.
type Ticket struct {
	bun.BaseModel `bun:"table:tickets"`

	TicketUUID    string `bun:"ticket_uuid,pk" json:"ticket_uuid"`
	EventID       string `bun:"event_id,notnull" json:"event_id"`
	TicketTypeID  string `bun:"ticket_type_id" json:"ticket_type_id"`
	Owner         string `bun:"owner,notnull" json:"owner"`
	OriginalOwner string `bun:"original_owner" json:"original_owner"`
	OriginalPrice int64  `bun:"original_price" json:"original_price"`
	ResaleCount   uint8  `bun:"resale_count" json:"resale_count"`
	IsCheckedIn   bool   `bun:"is_checked_in" json:"is_checked_in"`
	RowNumber     uint16 `bun:"row_number" json:"row_number"`
	ColumnNumber  uint16 `bun:"column_number" json:"column_number"`
	PurchasedAt   int64  `bun:"purchased_at" json:"purchased_at"`
	PassCode      []byte `bun:"pass_code" json:"pass_code,omitempty"`
}

type Listing struct {
	bun.BaseModel `bun:"table:listings"`

	TicketUUID     string `bun:"ticket_uuid,pk" json:"ticket_uuid"`
	OriginalSeller string `bun:"original_seller,notnull" json:"original_seller"`
	Price          int64  `bun:"price,notnull" json:"price"`
	ListedAt       int64  `bun:"listed_at" json:"listed_at"`
	IsActive       bool   `bun:"is_active" json:"is_active"`
}

type CheckInAuthority struct {
	bun.BaseModel `bun:"table:checkin_authorities"`

	EventID  string `bun:"event_id,pk" json:"event_id"`
	Operator string `bun:"operator,pk" json:"operator"`
	IsActive bool   `bun:"is_active" json:"is_active"`
}
