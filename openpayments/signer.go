package openpayments

import (
	"context"
	"crypto/ed25519"
	"crypto/sha512"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-splitpay/transport"
)

const signatureLabel = "sig1"

// HTTPSigner signs requests with HTTP message signatures (RFC 9421) using an
// ed25519 client key registered with the wallet.
type HTTPSigner struct {
	KeyID string
	Key   ed25519.PrivateKey
	Now   func() time.Time
}

func NewHTTPSigner(keyID string, privateKeyPEM string) (*HTTPSigner, error) {
	keyID = strings.TrimSpace(keyID)
	if keyID == "" {
		return nil, fmt.Errorf("openpayments: client key id is required")
	}
	key, err := ParsePrivateKey(privateKeyPEM)
	if err != nil {
		return nil, err
	}
	return &HTTPSigner{KeyID: keyID, Key: key}, nil
}

// ParsePrivateKey reads a PKCS8 ed25519 key. The PEM may be given as-is,
// with escaped newlines, or base64 encoded.
func ParsePrivateKey(raw string) (ed25519.PrivateKey, error) {
	text := strings.TrimSpace(strings.ReplaceAll(raw, `\n`, "\n"))
	if text == "" {
		return nil, fmt.Errorf("openpayments: private key is required")
	}
	if !strings.Contains(text, "-----BEGIN") {
		decoded, err := base64.StdEncoding.DecodeString(text)
		if err != nil {
			return nil, fmt.Errorf("openpayments: private key is neither PEM nor base64 PEM: %w", err)
		}
		text = string(decoded)
	}
	block, _ := pem.Decode([]byte(text))
	if block == nil {
		return nil, fmt.Errorf("openpayments: private key has no PEM block")
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("openpayments: parse private key: %w", err)
	}
	key, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("openpayments: private key must be ed25519, got %T", parsed)
	}
	return key, nil
}

func (s *HTTPSigner) Sign(_ context.Context, req *http.Request, body []byte) error {
	if req == nil {
		return fmt.Errorf("openpayments: http request is required")
	}
	if s == nil || len(s.Key) != ed25519.PrivateKeySize {
		return fmt.Errorf("openpayments: signer has no usable key")
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}

	components := []string{"@method", "@target-uri"}
	if req.Header.Get("Authorization") != "" {
		components = append(components, "authorization")
	}
	if len(body) > 0 {
		req.Header.Set("Content-Digest", ContentDigest(body))
		if req.Header.Get("Content-Type") == "" {
			req.Header.Set("Content-Type", "application/json")
		}
		components = append(components, "content-digest", "content-length", "content-type")
	}

	params := signatureParams(components, s.KeyID, now().UTC().Unix())
	base := signatureBase(req, len(body), components, params)
	signature := ed25519.Sign(s.Key, []byte(base))

	req.Header.Set("Signature-Input", signatureLabel+"="+params)
	req.Header.Set("Signature", signatureLabel+"=:"+base64.StdEncoding.EncodeToString(signature)+":")
	return nil
}

// ContentDigest is the sha-512 Content-Digest header value for body.
func ContentDigest(body []byte) string {
	sum := sha512.Sum512(body)
	return "sha-512=:" + base64.StdEncoding.EncodeToString(sum[:]) + ":"
}

func signatureParams(components []string, keyID string, created int64) string {
	quoted := make([]string, len(components))
	for i, component := range components {
		quoted[i] = strconv.Quote(component)
	}
	return "(" + strings.Join(quoted, " ") + ");keyid=" + strconv.Quote(keyID) +
		";created=" + strconv.FormatInt(created, 10)
}

func signatureBase(req *http.Request, bodyLen int, components []string, params string) string {
	lines := make([]string, 0, len(components)+1)
	for _, component := range components {
		var value string
		switch component {
		case "@method":
			value = strings.ToUpper(req.Method)
		case "@target-uri":
			value = req.URL.String()
		case "content-length":
			value = strconv.Itoa(bodyLen)
		default:
			value = strings.TrimSpace(req.Header.Get(component))
		}
		lines = append(lines, strconv.Quote(component)+": "+value)
	}
	lines = append(lines, `"@signature-params": `+params)
	return strings.Join(lines, "\n")
}

var _ transport.RequestSigner = (*HTTPSigner)(nil)
