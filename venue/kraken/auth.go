package kraken

import (
	"crypto/sha256"
	"net/url"
	"strconv"
	"time"

	"github.com/kestrelmd/marketfeed/venue"
)

// auth produces Kraken's API-Key/API-Sign headers, mirroring netclients.py's
// KrakenAuth: nonce = int(1000*time.time()) folded into the POST body, then
// signature = HMAC-SHA512(secret, path + SHA256(nonce+postdata)),
// base64-encoded.
type auth struct {
	apiKey string
	signer *venue.Signer
}

func newAuth(apiKey, secret string) (*auth, error) {
	signer, err := venue.NewSignerFromBase64(venue.HMACSHA512, secret)
	if err != nil {
		return nil, err
	}
	return &auth{apiKey: apiKey, signer: signer}, nil
}

// nextNonce returns a millisecond-resolution nonce, strictly greater than
// any previously issued by this auth (netclients.py uses a bare
// int(1000*time.time()), routed through the signer's own monotone-nonce CAS
// loop so this hardens it against same-millisecond reordering without a
// second counter).
func (a *auth) nextNonce() int64 {
	candidate := time.Now().UnixNano() / int64(time.Millisecond)
	return a.signer.NextNonce(candidate)
}

// sign returns the base64 API-Sign header value for a POST to path with the
// given urlencoded postdata (which already includes the nonce field).
func (a *auth) sign(path string, postdata url.Values) string {
	nonce := postdata.Get("nonce")
	h := sha256.Sum256([]byte(nonce + postdata.Encode()))
	message := append([]byte(path), h[:]...)
	return a.signer.SignBytes(message)
}

func (a *auth) nonceString() string {
	return strconv.FormatInt(a.nextNonce(), 10)
}
