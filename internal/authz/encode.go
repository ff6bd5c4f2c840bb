package authz

import (
	"encoding/binary"
	"encoding/hex"

	"ms-settlement/internal/models"
)

// Encode produces the canonical byte-serialization of an authorization. The
// field order is a strict contract with the backend signer: buyer key bytes,
// ticket type id, ticket uuid, max price (le64), valid until (le64), nonce
// (le64), resale ticket uuid if present, row (le16), column (le16). Changing
// it breaks every signature in flight, so it must be versioned if it ever
// changes.
func Encode(auth models.AuthorizationData) []byte {
	msg := make([]byte, 0, 128)

	buyer, err := hex.DecodeString(auth.Buyer)
	if err != nil {
		// A malformed buyer identity still encodes deterministically; the
		// signature check will fail on it.
		buyer = []byte(auth.Buyer)
	}
	msg = append(msg, buyer...)
	msg = append(msg, []byte(auth.TicketTypeID)...)
	msg = append(msg, []byte(auth.TicketUUID)...)
	msg = binary.LittleEndian.AppendUint64(msg, uint64(auth.MaxPrice))
	msg = binary.LittleEndian.AppendUint64(msg, uint64(auth.ValidUntil))
	msg = binary.LittleEndian.AppendUint64(msg, auth.Nonce)
	if auth.ResaleTicket != "" {
		msg = append(msg, []byte(auth.ResaleTicket)...)
	}
	msg = binary.LittleEndian.AppendUint16(msg, auth.RowNumber)
	msg = binary.LittleEndian.AppendUint16(msg, auth.ColumnNumber)

	return msg
}
