package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrPairingDisabled is returned when no pairing secret is configured.
var ErrPairingDisabled = errors.New("pairing disabled")

// HashPairingSecret hashes a plaintext pairing secret with the given cost.
func HashPairingSecret(secret string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePairingSecret verifies a pairing secret against its configured hash.
func ComparePairingSecret(hashed, plain string) error {
	if hashed == "" {
		return ErrPairingDisabled
	}
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}
