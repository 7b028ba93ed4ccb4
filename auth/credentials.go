package auth

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base64"
	"hash"
)

// SCRAMVariant identifies the hash function of a SCRAM credential
type SCRAMVariant int

const (
	SCRAMSHA1 SCRAMVariant = iota + 1
	SCRAMSHA256
)

// scramVariants lists the variants the server implements, in advertisement order
var scramVariants = []SCRAMVariant{SCRAMSHA1, SCRAMSHA256}

// SCRAMVariants returns the implemented SCRAM variants in advertisement order
func SCRAMVariants() []SCRAMVariant {
	return append([]SCRAMVariant(nil), scramVariants...)
}

// Mechanism returns the canonical SASL mechanism name of the variant
func (v SCRAMVariant) Mechanism() string {
	switch v {
	case SCRAMSHA1:
		return MechanismSCRAMSHA1
	case SCRAMSHA256:
		return MechanismSCRAMSHA256
	default:
		return ""
	}
}

func (v SCRAMVariant) String() string {
	if name := v.Mechanism(); name != "" {
		return name
	}
	return "SCRAM-UNKNOWN"
}

// Hash returns the hash constructor for the variant, nil for unknown variants
func (v SCRAMVariant) Hash() func() hash.Hash {
	switch v {
	case SCRAMSHA1:
		return sha1.New
	case SCRAMSHA256:
		return sha256.New
	default:
		return nil
	}
}

// DigestSize is the length in bytes of the variant's stored and server keys
func (v SCRAMVariant) DigestSize() int {
	switch v {
	case SCRAMSHA1:
		return sha1.Size
	case SCRAMSHA256:
		return sha256.Size
	default:
		return 0
	}
}

// SCRAMVariantForMechanism maps a mechanism name back to its SCRAM variant
func SCRAMVariantForMechanism(mechanism string) (SCRAMVariant, bool) {
	for _, v := range scramVariants {
		if v.Mechanism() == mechanism {
			return v, true
		}
	}
	return 0, false
}

// SCRAMCredential is a stored SCRAM secret. Binary fields are base64 encoded.
type SCRAMCredential struct {
	IterationCount int    `yaml:"iterationCount"`
	Salt           string `yaml:"salt"`
	StoredKey      string `yaml:"storedKey"`
	ServerKey      string `yaml:"serverKey"`
}

// IsValid reports whether the credential is usable for the given variant
func (c SCRAMCredential) IsValid(variant SCRAMVariant) bool {
	size := variant.DigestSize()
	if size == 0 || c.IterationCount <= 0 || c.Salt == "" {
		return false
	}
	if _, err := base64.StdEncoding.DecodeString(c.Salt); err != nil {
		return false
	}
	return decodedLen(c.StoredKey) == size && decodedLen(c.ServerKey) == size
}

func decodedLen(s string) int {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return -1
	}
	return len(b)
}

// Credentials describes what a principal's stored credential supports.
// It is either ExternalCredentials or LocalCredentials, never both.
type Credentials interface {
	credentials()
}

// ExternalCredentials marks a principal authenticated by an external identity provider
type ExternalCredentials struct{}

func (ExternalCredentials) credentials() {}

// LocalCredentials holds the locally stored SCRAM secrets of a principal
type LocalCredentials struct {
	SCRAM map[SCRAMVariant]SCRAMCredential
}

func (LocalCredentials) credentials() {}

// HasValidSCRAM reports whether a valid credential exists for the variant
func (c LocalCredentials) HasValidSCRAM(variant SCRAMVariant) bool {
	cred, ok := c.SCRAM[variant]
	return ok && cred.IsValid(variant)
}
