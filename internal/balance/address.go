package balance

import (
	"encoding/hex"
	"errors"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"golang.org/x/crypto/sha3"
)

var (
	// ErrUnrecognizedCredential is returned for strings that are neither an
	// address nor a private key.
	ErrUnrecognizedCredential = errors.New("credential is neither an address nor a private key")
	// ErrInvalidPrivateKey is returned for 64 hex digits outside the curve order.
	ErrInvalidPrivateKey = errors.New("invalid private key")
	// ErrBadChecksum is returned for a mixed-case address whose checksum does not match.
	ErrBadChecksum = errors.New("address checksum mismatch")
)

// ResolveAddress turns a wallet credential into an account address. A
// credential is either an address of 40 hex digits or a private key of 64 hex
// digits, both optionally 0x-prefixed. The key is only used to derive the address.
func ResolveAddress(credential string) (string, error) {
	credential = strings.TrimSpace(credential)
	body := strings.TrimPrefix(strings.TrimPrefix(credential, "0x"), "0X")

	switch {
	case len(body) == 40 && isHex(body):
		checksummed := toChecksum(strings.ToLower(body))
		if isMixedCase(body) && "0x"+body != checksummed {
			return "", ErrBadChecksum
		}
		return checksummed, nil
	case len(body) == 64 && isHex(body):
		return addressFromKey(body)
	}
	return "", ErrUnrecognizedCredential
}

func addressFromKey(keyHex string) (string, error) {
	raw, err := hex.DecodeString(keyHex)
	if err != nil {
		return "", ErrInvalidPrivateKey
	}
	var scalar secp256k1.ModNScalar
	if overflow := scalar.SetByteSlice(raw); overflow || scalar.IsZero() {
		return "", ErrInvalidPrivateKey
	}

	priv := secp256k1.NewPrivateKey(&scalar)
	pub := priv.PubKey().SerializeUncompressed()

	h := sha3.NewLegacyKeccak256()
	h.Write(pub[1:])
	sum := h.Sum(nil)

	return toChecksum(hex.EncodeToString(sum[12:])), nil
}

// toChecksum applies EIP-55 mixed-case encoding to a lowercase hex address.
func toChecksum(lower string) string {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(lower))
	digest := hex.EncodeToString(h.Sum(nil))

	out := []byte(lower)
	for i, c := range out {
		if c >= 'a' && c <= 'f' && digest[i] >= '8' {
			out[i] = c - 'a' + 'A'
		}
	}
	return "0x" + string(out)
}

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F') {
			return false
		}
	}
	return true
}

func isMixedCase(s string) bool {
	return strings.ToLower(s) != s && strings.ToUpper(s) != s
}
