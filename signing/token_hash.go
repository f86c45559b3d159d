package signing

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"hash"

	"github.com/pkg/errors"
)

// LeftHalfHash computes the c_hash / at_hash value for a code or access
// token: the left half of the digest of the token's UTF-8 value,
// base64url-encoded without padding (OIDC Core 3.3.2.11).
//
// The alg parameter is a JWS algorithm name; its size suffix selects the
// digest (…256 → SHA-256, …384 → SHA-384, …512 → SHA-512).
func LeftHalfHash(alg, value string) (string, error) {
	hasher, err := hasherForAlg(alg)
	if err != nil {
		return "", err
	}

	hasher.Write([]byte(value))
	digest := hasher.Sum(nil)
	return base64.RawURLEncoding.EncodeToString(digest[:len(digest)/2]), nil
}

func hasherForAlg(alg string) (hash.Hash, error) {
	if len(alg) < 3 {
		return nil, errors.Errorf("unsupported algorithm %q", alg)
	}
	switch alg[len(alg)-3:] {
	case "256":
		return sha256.New(), nil
	case "384":
		return sha512.New384(), nil
	case "512":
		return sha512.New(), nil
	}
	return nil, errors.Errorf("unsupported algorithm %q", alg)
}
