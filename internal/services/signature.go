package services

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

var (
	// ErrInvalidAddress means the wallet address is not a base58-encoded
	// 32-byte public key.
	ErrInvalidAddress = errors.New("invalid wallet address")
	// ErrInvalidSignature means the signature is not a base58-encoded
	// 64-byte Ed25519 signature.
	ErrInvalidSignature = errors.New("invalid signature encoding")
)

// challengeFormat is a hard contract with the signing frontend. Any
// deviation, including whitespace or encoding, must fail verification
// rather than be repaired here.
const challengeFormat = "Confirming wallet ownership for request: %s"

// ChallengeMessage builds the canonical string the user signs for a token.
func ChallengeMessage(tokenID string) string {
	return fmt.Sprintf(challengeFormat, tokenID)
}

// DecodeWalletAddress decodes a base58 wallet address into an Ed25519
// public key, rejecting anything that is not exactly 32 bytes.
func DecodeWalletAddress(address string) (ed25519.PublicKey, error) {
	raw, err := base58.Decode(address)
	if err != nil {
		return nil, ErrInvalidAddress
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, ErrInvalidAddress
	}
	return ed25519.PublicKey(raw), nil
}

// VerifyWalletSignature checks that signature (base58) is a valid Ed25519
// signature over message by the key behind address (base58). It is pure and
// delegates the comparison to ed25519.Verify, never a manual byte compare.
func VerifyWalletSignature(address, signature string, message []byte) (bool, error) {
	publicKey, err := DecodeWalletAddress(address)
	if err != nil {
		return false, err
	}

	rawSig, err := base58.Decode(signature)
	if err != nil {
		return false, ErrInvalidSignature
	}
	if len(rawSig) != ed25519.SignatureSize {
		return false, ErrInvalidSignature
	}

	return ed25519.Verify(publicKey, message, rawSig), nil
}
