package points

import (
	"crypto/ed25519"
	"encoding/binary"
	"encoding/hex"
)

// Capability is a delegated signing authority over ledger mutations. The
// settlement core holds one; the ledger verifies each call against the
// authority's public identity and its allow-list, so the authorization
// boundary stays explicit instead of ambient.
type Capability struct {
	Authority string // hex Ed25519 public key
	key       ed25519.PrivateKey
}

func NewCapability(key ed25519.PrivateKey) Capability {
	pub := key.Public().(ed25519.PublicKey)
	return Capability{
		Authority: hex.EncodeToString(pub),
		key:       key,
	}
}

// updateMessage is the canonical message signed for one UpdatePoints call.
func updateMessage(wallet string, delta int64) []byte {
	msg := make([]byte, 0, len("update_points")+len(wallet)+8)
	msg = append(msg, []byte("update_points")...)
	msg = append(msg, []byte(wallet)...)
	msg = binary.LittleEndian.AppendUint64(msg, uint64(delta))
	return msg
}

// Sign authorizes a single points mutation.
func (c Capability) Sign(wallet string, delta int64) []byte {
	return ed25519.Sign(c.key, updateMessage(wallet, delta))
}

func verifyCapability(authority, wallet string, delta int64, signature []byte) bool {
	pub, err := hex.DecodeString(authority)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return false
	}
	if len(signature) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub), updateMessage(wallet, delta), signature)
}
