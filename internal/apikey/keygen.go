package apikey

import (
	"crypto/rand"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

const (
	keyIDLength  = 16
	secretLength = 32
	alphabet     = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// Pair is a freshly generated key credential. The plaintext secret is
// returned to the caller exactly once.
type Pair struct {
	KeyID      string
	Secret     string
	SecretHash []byte
}

// GeneratePair creates a new key identifier and secret, hashing the secret
// for storage.
func GeneratePair() (Pair, error) {
	keyID, err := randomString(keyIDLength)
	if err != nil {
		return Pair{}, err
	}
	secret, err := randomString(secretLength)
	if err != nil {
		return Pair{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return Pair{}, err
	}
	return Pair{KeyID: keyID, Secret: secret, SecretHash: hash}, nil
}

func randomString(n int) (string, error) {
	out := make([]byte, n)
	max := big.NewInt(int64(len(alphabet)))
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = alphabet[idx.Int64()]
	}
	return string(out), nil
}
