package service

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/allisson/go-pwdhash"

	apperrors "github.com/scrilab/artale-auth/internal/errors"
)

const adminKeyBytes = 32

type adminKeyService struct {
	hasher *pwdhash.PasswordHasher
}

// NewAdminKeyService creates an AdminKeyService using Argon2id with the moderate policy.
func NewAdminKeyService() (AdminKeyService, error) {
	hasher, err := pwdhash.New(pwdhash.WithPolicy(pwdhash.PolicyModerate))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to create admin key hasher")
	}
	return &adminKeyService{hasher: hasher}, nil
}

func (a *adminKeyService) GenerateKey() (string, string, error) {
	randomBytes := make([]byte, adminKeyBytes)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", "", apperrors.Wrap(err, "failed to generate admin key")
	}

	plainKey := base64.RawURLEncoding.EncodeToString(randomBytes)
	hashedKey, err := a.HashKey(plainKey)
	if err != nil {
		return "", "", err
	}
	return plainKey, hashedKey, nil
}

func (a *adminKeyService) HashKey(plainKey string) (string, error) {
	hashedKey, err := a.hasher.Hash([]byte(plainKey))
	if err != nil {
		return "", apperrors.Wrap(err, "failed to hash admin key")
	}
	return hashedKey, nil
}

func (a *adminKeyService) VerifyKey(plainKey, hashedKey string) bool {
	ok, err := a.hasher.Verify([]byte(plainKey), hashedKey)
	if err != nil {
		return false
	}
	return ok
}
