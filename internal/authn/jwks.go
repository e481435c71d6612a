package authn

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// jwk is the subset of RFC 7517 fields the supported key types use.
type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Alg string `json:"alg"`
	Use string `json:"use"`

	// RSA
	N string `json:"n"`
	E string `json:"e"`

	// EC
	Crv string `json:"crv"`
	X   string `json:"x"`
	Y   string `json:"y"`
}

type jwksDoc struct {
	Keys []jwk `json:"keys"`
}

// jwksCache fetches and caches the public keys published at a JWKS URI,
// refreshing on validation failure and coalescing concurrent refreshes with
// singleflight — the same dedup pattern the teacher uses for cache refresh
// in internal/service/channel_summary.go, generalized from a Redis snapshot
// to an HTTP-fetched key set.
type jwksCache struct {
	uri        string
	httpClient *http.Client

	mu   sync.RWMutex
	keys map[string]any // kid -> public key

	sg singleflight.Group
}

func newJWKSCache(uri string, httpClient *http.Client) *jwksCache {
	return &jwksCache{uri: uri, httpClient: httpClient, keys: map[string]any{}}
}

// keyFor returns the public key for kid, fetching the JWKS document on first
// use. The caller is responsible for calling refresh and retrying once if
// the returned key fails signature verification (spec's "refreshed on
// validation failure and retried once").
func (c *jwksCache) keyFor(ctx context.Context, kid string) (any, bool) {
	c.mu.RLock()
	k, ok := c.keys[kid]
	c.mu.RUnlock()
	if ok {
		return k, true
	}
	if err := c.refresh(ctx); err != nil {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	k, ok = c.keys[kid]
	return k, ok
}

func (c *jwksCache) refresh(ctx context.Context) error {
	_, err, _ := c.sg.Do(c.uri, func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.uri, nil)
		if err != nil {
			return nil, err
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("authn: jwks fetch: unexpected status %d", resp.StatusCode)
		}
		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return nil, err
		}

		var doc jwksDoc
		if err := json.Unmarshal(body, &doc); err != nil {
			return nil, fmt.Errorf("authn: jwks decode: %w", err)
		}

		keys := make(map[string]any, len(doc.Keys))
		for _, k := range doc.Keys {
			pub, err := k.publicKey()
			if err != nil {
				continue // skip unsupported/malformed entries, keep the rest usable
			}
			keys[k.Kid] = pub
		}

		c.mu.Lock()
		c.keys = keys
		c.mu.Unlock()
		return nil, nil
	})
	return err
}

func (k jwk) publicKey() (any, error) {
	switch k.Kty {
	case "RSA":
		n, err := b64url(k.N)
		if err != nil {
			return nil, err
		}
		e, err := b64url(k.E)
		if err != nil {
			return nil, err
		}
		return &rsa.PublicKey{
			N: new(big.Int).SetBytes(n),
			E: int(new(big.Int).SetBytes(e).Int64()),
		}, nil
	case "EC":
		x, err := b64url(k.X)
		if err != nil {
			return nil, err
		}
		y, err := b64url(k.Y)
		if err != nil {
			return nil, err
		}
		curve, err := ellipticCurve(k.Crv)
		if err != nil {
			return nil, err
		}
		return &ecdsa.PublicKey{
			Curve: curve,
			X:     new(big.Int).SetBytes(x),
			Y:     new(big.Int).SetBytes(y),
		}, nil
	default:
		return nil, fmt.Errorf("authn: unsupported jwk kty %q", k.Kty)
	}
}

func ellipticCurve(crv string) (elliptic.Curve, error) {
	switch crv {
	case "P-256":
		return elliptic.P256(), nil
	case "P-384":
		return elliptic.P384(), nil
	case "P-521":
		return elliptic.P521(), nil
	default:
		return nil, fmt.Errorf("authn: unsupported jwk crv %q", crv)
	}
}

func b64url(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(s)
}

func defaultHTTPClient() *http.Client {
	return &http.Client{Timeout: 5 * time.Second}
}
