package models

import "github.com/uptrace/bun"

// Event status values.
const (
	EventStatusDraft    = 0
	EventStatusActive   = 1
	EventStatusDisabled = 2
)

type Event struct {
	bun.BaseModel `bun:"table:events"`

	ID                string `bun:"id,pk" json:"id"`
	Name              string `bun:"name,notnull" json:"name"`
	Symbol            string `bun:"symbol" json:"symbol"`
	Organizer         string `bun:"organizer,notnull" json:"organizer"`
	MetadataURI       string `bun:"metadata_uri" json:"metadata_uri"`
	StartTime         int64  `bun:"start_time,notnull" json:"start_time"`
	EndTime           int64  `bun:"end_time,notnull" json:"end_time"`
	TicketReleaseTime int64  `bun:"ticket_release_time" json:"ticket_release_time"`
	StopSaleBefore    int64  `bun:"stop_sale_before" json:"stop_sale_before"`
	ResaleFeeRate     uint16 `bun:"resale_fee_rate" json:"resale_fee_rate"` // basis points
	MaxResaleTimes    uint8  `bun:"max_resale_times" json:"max_resale_times"`
	Status            uint8  `bun:"status" json:"status"`
}

func (e *Event) IsActive() bool {
	return e.Status == EventStatusActive
}

// CanSellTickets reports whether primary sales are open at the given time.
func (e *Event) CanSellTickets(now int64) bool {
	return e.IsActive() &&
		now >= e.TicketReleaseTime &&
		now <= e.StartTime-e.StopSaleBefore
}

type TicketType struct {
	bun.BaseModel `bun:"table:ticket_types"`

	EventID     string `bun:"event_id,pk" json:"event_id"`
	TypeID      string `bun:"type_id,pk" json:"type_id"`
	TierName    string `bun:"tier_name" json:"tier_name"`
	Price       int64  `bun:"price,notnull" json:"price"` // micro-units
	TotalSupply uint32 `bun:"total_supply" json:"total_supply"`
	Minted      uint32 `bun:"minted" json:"minted"`
	Color       uint32 `bun:"color" json:"color"`
}

func (t *TicketType) HasAvailableSupply() bool {
	return t.Minted < t.TotalSupply
}
