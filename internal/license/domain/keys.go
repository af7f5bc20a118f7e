package domain

import (
	"crypto/rand"
	"encoding/hex"
)

const (
	apiKeyPrefix     = "sk_live_"
	secretKeyPrefix  = "sk_secret_"
	licenseKeyPrefix = "lic_"

	apiKeyBytes     = 32
	secretKeyBytes  = 48
	licenseKeyBytes = 16
)

// NewAPIKey generates the bearer key of the credential triple.
func NewAPIKey() (string, error) { return randomKey(apiKeyPrefix, apiKeyBytes) }

// NewSecretKey generates the secret key of the credential triple.
func NewSecretKey() (string, error) { return randomKey(secretKeyPrefix, secretKeyBytes) }

// NewLicenseKey generates the license key of the credential triple.
func NewLicenseKey() (string, error) { return randomKey(licenseKeyPrefix, licenseKeyBytes) }

func randomKey(prefix string, n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return prefix + hex.EncodeToString(buf), nil
}
