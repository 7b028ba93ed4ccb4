package auth

import (
	"crypto/md5"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/xdg-go/scram"
)

// Iteration defaults and floors per variant
const (
	DefaultSCRAMSHA1Iterations   = 10000
	DefaultSCRAMSHA256Iterations = 15000
	MinSCRAMSHA1Iterations       = 5000
	MinSCRAMSHA256Iterations     = 4096
)

// DefaultIterations returns the iteration count used when none is requested
func (v SCRAMVariant) DefaultIterations() int {
	if v == SCRAMSHA256 {
		return DefaultSCRAMSHA256Iterations
	}
	return DefaultSCRAMSHA1Iterations
}

// MinIterations returns the lowest iteration count accepted for new credentials
func (v SCRAMVariant) MinIterations() int {
	if v == SCRAMSHA256 {
		return MinSCRAMSHA256Iterations
	}
	return MinSCRAMSHA1Iterations
}

func (v SCRAMVariant) saltSize() int {
	return v.DigestSize() - 4
}

// NewSCRAMCredential derives a stored credential from a cleartext password.
// A nil salt generates a random one; iterations of 0 selects the variant default.
func NewSCRAMCredential(variant SCRAMVariant, user, password string, salt []byte, iterations int) (SCRAMCredential, error) {
	if variant.Hash() == nil {
		return SCRAMCredential{}, fmt.Errorf("unknown SCRAM variant: %d", variant)
	}

	if iterations == 0 {
		iterations = variant.DefaultIterations()
	}
	if iterations < variant.MinIterations() {
		return SCRAMCredential{}, fmt.Errorf("%s iteration count %d below minimum %d", variant, iterations, variant.MinIterations())
	}

	if salt == nil {
		salt = make([]byte, variant.saltSize())
		if _, err := rand.Read(salt); err != nil {
			return SCRAMCredential{}, fmt.Errorf("failed to generate salt: %w", err)
		}
	}
	if len(salt) == 0 {
		return SCRAMCredential{}, fmt.Errorf("salt cannot be empty")
	}

	client, err := scramClient(variant, user, password)
	if err != nil {
		return SCRAMCredential{}, err
	}
	stored := client.GetStoredCredentials(scram.KeyFactors{Salt: string(salt), Iters: iterations})

	return SCRAMCredential{
		IterationCount: iterations,
		Salt:           base64.StdEncoding.EncodeToString(salt),
		StoredKey:      base64.StdEncoding.EncodeToString(stored.StoredKey),
		ServerKey:      base64.StdEncoding.EncodeToString(stored.ServerKey),
	}, nil
}

// scramClient builds the key-derivation client for the variant. SHA-1 derives
// from the legacy "user:mongo:password" digest without SASLprep, SHA-256 uses
// the SASLprep'd password.
func scramClient(variant SCRAMVariant, user, password string) (*scram.Client, error) {
	switch variant {
	case SCRAMSHA1:
		return scram.SHA1.NewClientUnprepped(user, legacyPasswordDigest(user, password), "")
	case SCRAMSHA256:
		client, err := scram.SHA256.NewClient(user, password, "")
		if err != nil {
			return nil, fmt.Errorf("credentials rejected by SASLprep: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown SCRAM variant: %d", variant)
	}
}

func legacyPasswordDigest(user, password string) string {
	sum := md5.Sum([]byte(user + ":mongo:" + password))
	return hex.EncodeToString(sum[:])
}
