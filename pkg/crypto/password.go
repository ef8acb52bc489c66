package crypto

import (
	"encoding/base64"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// legacySeparator joins the password and the write-time millisecond suffix in
// pre-bcrypt records: base64(password + "salt_" + millis).
// Verification splits on the separator, so it recovers the password no matter
// when the record was written.
const legacySeparator = "salt_"

// HashPassword hashes plaintext using bcrypt.
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// ComparePassword compares plaintext to a bcrypt hash.
func ComparePassword(hash, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}

// IsLegacyHash reports whether a stored hash uses the old reversible
// encoding rather than bcrypt.
func IsLegacyHash(hash string) bool {
	return !strings.HasPrefix(hash, "$2")
}

// VerifyLegacy checks plaintext against a record in the old reversible format.
func VerifyLegacy(hash, plain string) bool {
	decoded, err := base64.StdEncoding.DecodeString(hash)
	if err != nil {
		return false
	}
	password, _, found := strings.Cut(string(decoded), legacySeparator)
	if !found {
		return false
	}
	return password == plain
}

// EncodeLegacy produces a record in the old reversible format. Kept for
// migration tooling and tests; new records are always bcrypt.
func EncodeLegacy(plain string) string {
	raw := plain + legacySeparator + strconv.FormatInt(time.Now().UnixMilli(), 10)
	return base64.StdEncoding.EncodeToString([]byte(raw))
}
