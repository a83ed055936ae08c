package kraken

import (
	"encoding/base64"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthNonceIsMonotone(t *testing.T) {
	a, err := newAuth("key", base64.StdEncoding.EncodeToString([]byte("secret")))
	require.NoError(t, err)
	n1 := a.nextNonce()
	n2 := a.nextNonce()
	assert.Less(t, n1, n2)
}

func TestAuthSignProducesStableBase64(t *testing.T) {
	a, err := newAuth("key", base64.StdEncoding.EncodeToString([]byte("secret")))
	require.NoError(t, err)
	params := url.Values{"nonce": {"123"}, "pair": {"XXBTZUSD"}}
	sig := a.sign("/0/private/AddOrder", params)
	_, err = base64.StdEncoding.DecodeString(sig)
	assert.NoError(t, err, "signature must be valid base64")
}
