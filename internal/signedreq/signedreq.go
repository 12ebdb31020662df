// Package signedreq verifies the compact signed envelope some providers
// hand to client-side redirect flows (Facebook's signed_request): two
// dot-joined base64url segments, signature then payload, HMAC-SHA256 over
// the encoded payload keyed by the consumer secret.
package signedreq

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"strings"
)

// Verify decodes and verifies envelope with secret. Returns the parsed
// payload object, or nil on any failure: tampering is an expected outcome
// here, not an exceptional one, so there is no error return.
//
// Rejections: malformed envelope, undecodable segments, an `algorithm`
// other than HMAC-SHA256 (algorithm confusion must not fall back to
// acceptance), and signature mismatch.
func Verify(envelope, secret string) map[string]any {
	sigSeg, paySeg, ok := strings.Cut(envelope, ".")
	if !ok || sigSeg == "" || paySeg == "" {
		return nil
	}
	// El payload puede contener puntos internos sólo en variantes exóticas;
	// el formato real es exactamente sig.payload, así que un tercer
	// segmento invalida el envelope.
	if strings.Contains(paySeg, ".") {
		return nil
	}

	sig, err := decodeSegment(sigSeg)
	if err != nil {
		return nil
	}
	rawPayload, err := decodeSegment(paySeg)
	if err != nil {
		return nil
	}

	var data map[string]any
	if err := json.Unmarshal(rawPayload, &data); err != nil {
		return nil
	}
	alg, _ := data["algorithm"].(string)
	if !strings.EqualFold(alg, "HMAC-SHA256") {
		return nil
	}

	// The HMAC covers the *encoded* payload segment, not the decoded JSON.
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(paySeg))
	if !hmac.Equal(sig, mac.Sum(nil)) {
		return nil
	}
	return data
}

// decodeSegment restores base64url to standard base64 ('-'→'+', '_'→'/'),
// right-pads to a multiple of 4 and decodes. Length mod 4 == 1 has no valid
// padding and fails.
func decodeSegment(s string) ([]byte, error) {
	s = strings.ReplaceAll(s, "-", "+")
	s = strings.ReplaceAll(s, "_", "/")
	if pad := len(s) % 4; pad != 0 {
		s += strings.Repeat("=", 4-pad)
	}
	return base64.StdEncoding.DecodeString(s)
}
