package oauth1

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Consumer are the client credentials identifying the application.
type Consumer struct {
	Key    string
	Secret string
}

const signatureMethod = "HMAC-SHA1"

// Signer computes OAuth 1.0a signatures. Stateless across calls; clock and
// nonce sources are injectable so tests can pin them.
type Signer struct {
	consumer Consumer
	clock    func() time.Time
	nonce    func() string
}

// NewSigner creates a Signer with real clock and uuid-based nonces.
func NewSigner(consumer Consumer) *Signer {
	return &Signer{
		consumer: consumer,
		clock:    time.Now,
		nonce: func() string {
			return strings.ReplaceAll(uuid.NewString(), "-", "")
		},
	}
}

// NewSignerAt pins clock and nonce. Test constructor: firmas deterministas.
func NewSignerAt(consumer Consumer, clock func() time.Time, nonce func() string) *Signer {
	return &Signer{consumer: consumer, clock: clock, nonce: nonce}
}

// SignedRequest is a signed request ready to materialize in one of three
// forms: Authorization header, query URL, or form body.
type SignedRequest struct {
	Method  string
	BaseURL string

	oauth url.Values // oauth_* protocol params, incluida la firma
	extra url.Values // query/body params del caller
}

// Sign builds the canonical parameter set for (method, rawurl, params),
// computes the HMAC-SHA1 signature and returns the signed request.
// Query params already present in rawurl participate in the signature.
// token is nil for the request-token leg.
func (s *Signer) Sign(method, rawurl string, params url.Values, token *Token) (*SignedRequest, error) {
	u, err := url.Parse(rawurl)
	if err != nil {
		return nil, fmt.Errorf("oauth1: bad url %q: %w", rawurl, err)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("oauth1: url %q is not absolute", rawurl)
	}

	extra := url.Values{}
	for k, vs := range u.Query() {
		for _, v := range vs {
			extra.Add(k, v)
		}
	}
	for k, vs := range params {
		for _, v := range vs {
			extra.Add(k, v)
		}
	}

	oauth := url.Values{}
	oauth.Set("oauth_consumer_key", s.consumer.Key)
	oauth.Set("oauth_nonce", s.nonce())
	oauth.Set("oauth_signature_method", signatureMethod)
	oauth.Set("oauth_timestamp", strconv.FormatInt(s.clock().Unix(), 10))
	oauth.Set("oauth_version", "1.0")
	tokenSecret := ""
	if token != nil {
		oauth.Set("oauth_token", token.Key)
		tokenSecret = token.Secret
	}

	base := baseString(method, baseURL(u), oauth, extra)
	key := percentEncode(s.consumer.Secret) + "&" + percentEncode(tokenSecret)
	mac := hmac.New(sha1.New, []byte(key))
	mac.Write([]byte(base))
	oauth.Set("oauth_signature", base64.StdEncoding.EncodeToString(mac.Sum(nil)))

	return &SignedRequest{
		Method:  strings.ToUpper(method),
		BaseURL: baseURL(u),
		oauth:   oauth,
		extra:   extra,
	}, nil
}

// AuthorizationHeader materializes only the oauth_* params as an
// Authorization header value. Required by providers that reject
// query/body OAuth params, and the only valid form for multipart bodies.
func (r *SignedRequest) AuthorizationHeader() string {
	keys := make([]string, 0, len(r.oauth))
	for k := range r.oauth {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%q", percentEncode(k), percentEncode(r.oauth.Get(k))))
	}
	return "OAuth " + strings.Join(parts, ", ")
}

// URL materializes all params (oauth + caller) on the query string. GET form.
func (r *SignedRequest) URL() string {
	return r.BaseURL + "?" + encodeAll(r.oauth, r.extra)
}

// Body materializes all params as an url-encoded POST body.
func (r *SignedRequest) Body() string {
	return encodeAll(r.oauth, r.extra)
}

// ExtraBody materializes only the caller params as a body; se usa cuando la
// firma viaja en el Authorization header y el body queda limpio de oauth_*.
func (r *SignedRequest) ExtraBody() string {
	return r.extra.Encode()
}

// baseURL normalizes scheme://host/path: lowercase scheme/host, default
// ports dropped, query and fragment stripped.
func baseURL(u *url.URL) string {
	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Host)
	if (scheme == "http" && strings.HasSuffix(host, ":80")) ||
		(scheme == "https" && strings.HasSuffix(host, ":443")) {
		host = host[:strings.LastIndex(host, ":")]
	}
	return scheme + "://" + host + u.EscapedPath()
}

// baseString builds the signature base string
// METHOD&enc(url)&enc(sorted-param-string) per the OAuth 1.0a canonicalization.
func baseString(method, baseURL string, paramSets ...url.Values) string {
	type pair struct{ k, v string }
	var pairs []pair
	for _, set := range paramSets {
		for k, vs := range set {
			if k == "oauth_signature" {
				continue
			}
			for _, v := range vs {
				pairs = append(pairs, pair{percentEncode(k), percentEncode(v)})
			}
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].k != pairs[j].k {
			return pairs[i].k < pairs[j].k
		}
		return pairs[i].v < pairs[j].v
	})
	kvs := make([]string, len(pairs))
	for i, p := range pairs {
		kvs[i] = p.k + "=" + p.v
	}
	paramString := strings.Join(kvs, "&")
	return strings.ToUpper(method) + "&" + percentEncode(baseURL) + "&" + percentEncode(paramString)
}

func encodeAll(sets ...url.Values) string {
	merged := url.Values{}
	for _, set := range sets {
		for k, vs := range set {
			for _, v := range vs {
				merged.Add(k, v)
			}
		}
	}
	return merged.Encode()
}

// percentEncode implements the strict RFC 3986 encoding OAuth 1.0a requires:
// only unreserved characters survive, everything else is %XX with upper hex.
// url.QueryEscape no sirve acá (espacio como '+', '~' escapado).
func percentEncode(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') ||
			(c >= '0' && c <= '9') || c == '-' || c == '.' || c == '_' || c == '~' {
			b.WriteByte(c)
		} else {
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}
