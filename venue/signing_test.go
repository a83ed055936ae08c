package venue

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignerSignMatchesStandardLibraryHMAC(t *testing.T) {
	secretBytes := []byte("supersecret")
	encoded := base64.StdEncoding.EncodeToString(secretBytes)
	signer, err := NewSignerFromBase64(HMACSHA256, encoded)
	require.NoError(t, err)

	msg := "1234567890GET/orders"
	got := signer.Sign(msg)

	mac := hmac.New(sha256.New, secretBytes)
	mac.Write([]byte(msg))
	want := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	assert.Equal(t, want, got)
}

func TestSignerSignHexUsesSHA512(t *testing.T) {
	signer := NewSigner(HMACSHA512, []byte("k"))
	sig := signer.SignHex("message")
	assert.Len(t, sig, 128) // SHA-512 digest is 64 bytes -> 128 hex chars
}

func TestSignerNextNonceIsMonotone(t *testing.T) {
	signer := NewSigner(HMACSHA256, []byte("k"))
	n1 := signer.NextNonce(100)
	n2 := signer.NextNonce(100) // same candidate, must still advance
	n3 := signer.NextNonce(50)  // a smaller candidate must still advance
	assert.Less(t, n1, n2)
	assert.Less(t, n2, n3)
}

func TestNewSignerFromBase64RejectsInvalidEncoding(t *testing.T) {
	_, err := NewSignerFromBase64(HMACSHA256, "not-valid-base64!!!")
	assert.Error(t, err)
}
