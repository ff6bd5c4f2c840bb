package models

// AuthorizationData is a backend-signed, time-boxed permission for one
// specific purchase or resale at a price ceiling. It is never persisted;
// each valid (nonce, buyer) pair is consumable exactly once.
type AuthorizationData struct {
	Buyer        string `json:"buyer"`
	TicketTypeID string `json:"ticket_type_id"`
	TicketUUID   string `json:"ticket_uuid"`
	MaxPrice     int64  `json:"max_price"`
	ValidUntil   int64  `json:"valid_until"`
	Nonce        uint64 `json:"nonce"`
	ResaleTicket string `json:"resale_ticket,omitempty"` // set only for resale buys
	RowNumber    uint16 `json:"row_number"`
	ColumnNumber uint16 `json:"column_number"`
}
