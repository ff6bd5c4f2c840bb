package authz

import (
	"crypto/ed25519"
	"encoding/hex"

	"ms-settlement/internal/models"
)

// Verify confirms a backend-issued purchase/resale authorization. It is a
// pure check: nonce consumption happens separately inside the settlement
// transaction, so validation stays idempotent and retry-safe before commit.
//
// Checks, in order:
//  1. backendAuthority is a real Ed25519 public key (non-empty, 32 bytes);
//  2. signature verifies over the canonical encoding of auth;
//  3. now <= auth.ValidUntil;
//  4. auth.Buyer == caller.
func Verify(backendAuthority string, auth models.AuthorizationData, signature []byte, caller string, now int64) error {
	if backendAuthority == "" {
		return models.ErrInvalidSignature
	}
	pub, err := hex.DecodeString(backendAuthority)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return models.ErrInvalidSignature
	}

	if len(signature) != ed25519.SignatureSize {
		return models.ErrInvalidSignature
	}
	if !ed25519.Verify(ed25519.PublicKey(pub), Encode(auth), signature) {
		return models.ErrInvalidSignature
	}

	if now > auth.ValidUntil {
		return models.ErrAuthorizationExpired
	}

	if auth.Buyer != caller {
		return models.ErrUnauthorized
	}

	return nil
}

// Sign produces a backend signature over the canonical encoding. Used by the
// backend signer and by tests; the settlement core itself only verifies.
func Sign(key ed25519.PrivateKey, auth models.AuthorizationData) []byte {
	return ed25519.Sign(key, Encode(auth))
}
