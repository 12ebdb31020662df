package access

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dropDatabas3/oauthbridge/internal/metrics"
	"github.com/dropDatabas3/oauthbridge/internal/oauth1"
	"github.com/dropDatabas3/oauthbridge/internal/oauth2"
	"github.com/dropDatabas3/oauthbridge/internal/observability/logger"
)

// Kind selects how an API response body is decoded.
type Kind string

const (
	KindRaw  Kind = "raw"
	KindJSON Kind = "json"
	KindXML  Kind = "xml"
)

// Payload is a decoded API response. Exactly one of the typed fields is
// populated according to Kind; Raw siempre tiene el body crudo.
type Payload struct {
	Kind Kind
	Raw  []byte
	JSON any
	XML  *XMLNode
}

// XMLNode is a generic XML document tree.
type XMLNode struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Text     string     `xml:",chardata"`
	Children []XMLNode  `xml:",any"`
}

// First returns the first direct child with the given local name, or nil.
func (n *XMLNode) First(name string) *XMLNode {
	for i := range n.Children {
		if n.Children[i].XMLName.Local == name {
			return &n.Children[i]
		}
	}
	return nil
}

// Invoker issues authenticated API calls on behalf of a user. OAuth1 tokens
// sign the request; OAuth2 tokens ride along as access_token param.
// No retries: transient failures propagate and the caller decides.
type Invoker struct {
	service         string
	signer          *oauth1.Signer
	forceAuthHeader bool
	client          *http.Client
}

// NewInvoker builds an invoker for one provider. signer puede ser nil si el
// proveedor es OAuth2-only. client nil usa el default con timeout.
func NewInvoker(service string, signer *oauth1.Signer, forceAuthHeader bool, client *http.Client) *Invoker {
	if client == nil {
		client = defaultClient
	}
	return &Invoker{service: service, signer: signer, forceAuthHeader: forceAuthHeader, client: client}
}

// Call issues one authenticated request and decodes the body per kind.
//   - 401 → ErrNotAuthorized (el token murió; rehacer handshake, no reintentar)
//   - body vacío → *ServiceFailError("no content")
//   - JSON que no parsea → *ServiceFailError("JSON parse error")
func (i *Invoker) Call(ctx context.Context, kind Kind, rawurl string, token Token, method string, params url.Values) (*Payload, error) {
	req, err := i.buildRequest(ctx, rawurl, token, method, params)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := i.client.Do(req)
	metrics.ObserveProviderRequest(i.service, "api", time.Since(start))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	metrics.APICall(i.service, resp.StatusCode)

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrNotAuthorized
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, &ServiceFailError{Reason: "no content"}
	}

	logger.From(ctx).Debug("api response",
		logger.Service(i.service),
		logger.Status(resp.StatusCode),
		logger.Bytes(len(body)),
	)

	out := &Payload{Kind: kind, Raw: body}
	switch kind {
	case KindRaw:
	case KindJSON:
		if err := json.Unmarshal(body, &out.JSON); err != nil {
			return nil, &ServiceFailError{Reason: "JSON parse error"}
		}
	case KindXML:
		var root XMLNode
		if err := xml.NewDecoder(bytes.NewReader(body)).Decode(&root); err != nil {
			return nil, &ServiceFailError{Reason: "XML parse error"}
		}
		out.XML = &root
	default:
		return nil, fmt.Errorf("access: unsupported API kind %q", kind)
	}
	return out, nil
}

func (i *Invoker) buildRequest(ctx context.Context, rawurl string, token Token, method string, params url.Values) (*http.Request, error) {
	method = strings.ToUpper(method)

	switch t := token.(type) {
	case *oauth2.Token:
		merged := url.Values{}
		for k, vs := range params {
			for _, v := range vs {
				merged.Add(k, v)
			}
		}
		merged.Set("access_token", t.AccessToken)

		if method == http.MethodPost {
			req, err := http.NewRequestWithContext(ctx, method, rawurl, strings.NewReader(merged.Encode()))
			if err != nil {
				return nil, err
			}
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			return req, nil
		}
		u, err := url.Parse(rawurl)
		if err != nil {
			return nil, err
		}
		q := u.Query()
		for k, vs := range merged {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
		return http.NewRequestWithContext(ctx, method, u.String(), nil)

	case *oauth1.Token:
		if i.signer == nil {
			return nil, fmt.Errorf("access: oauth1 token on a provider without signer")
		}
		signed, err := i.signer.Sign(method, rawurl, params, t)
		if err != nil {
			return nil, err
		}
		if method == http.MethodPost {
			body := signed.Body()
			if i.forceAuthHeader {
				body = signed.ExtraBody()
			}
			req, err := http.NewRequestWithContext(ctx, method, signed.BaseURL, strings.NewReader(body))
			if err != nil {
				return nil, err
			}
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			if i.forceAuthHeader {
				req.Header.Set("Authorization", signed.AuthorizationHeader())
			}
			return req, nil
		}
		if i.forceAuthHeader {
			u := signed.BaseURL
			if extra := signed.ExtraBody(); extra != "" {
				u += "?" + extra
			}
			req, err := http.NewRequestWithContext(ctx, method, u, nil)
			if err != nil {
				return nil, err
			}
			req.Header.Set("Authorization", signed.AuthorizationHeader())
			return req, nil
		}
		return http.NewRequestWithContext(ctx, method, signed.URL(), nil)

	default:
		return nil, fmt.Errorf("access: unsupported token type %T", token)
	}
}
