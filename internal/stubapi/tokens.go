package stubapi

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"

	"github.com/google/uuid"
)

const (
	sessionIDSize    = 16
	refreshSecretLen = 32
	refreshTokenLen  = sessionIDSize + refreshSecretLen
)

var errMalformedRefreshToken = errors.New("malformed refresh token")

type refreshSecret [refreshSecretLen]byte

func newRefreshSecret() (refreshSecret, error) {
	var secret refreshSecret
	_, err := rand.Read(secret[:])
	return secret, err
}

func (s refreshSecret) hash() [32]byte {
	return sha256.Sum256(s[:])
}

func (s refreshSecret) matches(hash [32]byte) bool {
	h := s.hash()
	return subtle.ConstantTimeCompare(h[:], hash[:]) == 1
}

// encodeRefreshToken packs the session UUID and secret as base64url.
func encodeRefreshToken(sid uuid.UUID, secret refreshSecret) string {
	var raw [refreshTokenLen]byte
	copy(raw[:sessionIDSize], sid[:])
	copy(raw[sessionIDSize:], secret[:])
	return base64.RawURLEncoding.EncodeToString(raw[:])
}

func decodeRefreshToken(token string) (uuid.UUID, refreshSecret, error) {
	var secret refreshSecret
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(raw) != refreshTokenLen {
		return uuid.Nil, secret, errMalformedRefreshToken
	}
	sid, err := uuid.FromBytes(raw[:sessionIDSize])
	if err != nil {
		return uuid.Nil, secret, errMalformedRefreshToken
	}
	copy(secret[:], raw[sessionIDSize:])
	return sid, secret, nil
}
