package repo

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"
)

const saltSize = 16

func deriveKey(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, 32)
}

func hashPassword(password string) (Credentials, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return Credentials{}, err
	}
	return Credentials{Hash: deriveKey([]byte(password), salt), Salt: salt}, nil
}

func verifyPassword(password string, cred Credentials) bool {
	got := deriveKey([]byte(password), cred.Salt)
	return subtle.ConstantTimeCompare(got, cred.Hash) == 1
}

// newSecret returns an opaque secret handed to clients. Only its hash is stored.
func newSecret() string {
	return strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
}

func hashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}
