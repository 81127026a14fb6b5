package webhook

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/buger/jsonparser"
)

const signatureField = "signature"

// Serialization selects how the signed bytes are produced from a payload.
type Serialization string

const (
	// SerializationPreserve produces JSON.stringify(JSON.parse(body)): the
	// sender's key order with array-index keys first, strings and numbers
	// re-rendered, duplicates collapsed to the last value.
	SerializationPreserve Serialization = "preserve"
	// SerializationSorted renders values the same way but sorts object keys
	// at every level.
	SerializationSorted Serialization = "sorted"
)

func (s Serialization) String() string { return string(s) }

// ParseSerialization normalizes input; empty => preserve.
func ParseSerialization(s string) (Serialization, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "preserve":
		return SerializationPreserve, true
	case "sorted":
		return SerializationSorted, true
	default:
		return SerializationPreserve, false
	}
}

// Verifier checks the HMAC-SHA256 signature embedded in a webhook body.
type Verifier struct {
	secret []byte
	mode   Serialization
}

func NewVerifier(secret string, mode Serialization) *Verifier {
	if mode == "" {
		mode = SerializationPreserve
	}
	return &Verifier{secret: []byte(secret), mode: mode}
}

// Verify recomputes the signature over body minus its signature field and
// compares it with the claimed one.
func (v *Verifier) Verify(body []byte) error {
	claimed, err := claimedSignature(body)
	if err != nil {
		return err
	}

	expected, err := sign(body, v.secret, v.mode)
	if err != nil {
		return err
	}

	if !hmac.Equal([]byte(expected), []byte(claimed)) {
		return ErrSignatureMismatch
	}

	return nil
}

// Sign returns the hex HMAC-SHA256 a sender attaches to body.
// Any signature field already present in body is ignored.
func Sign(body []byte, secret string, mode Serialization) (string, error) {
	return sign(body, []byte(secret), mode)
}

func sign(body, secret []byte, mode Serialization) (string, error) {
	canonical, err := Canonicalize(body, mode)
	if err != nil {
		return "", err
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write(canonical)

	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Attach sets the signature field of body, replacing every existing one.
func Attach(body []byte, signature string) ([]byte, error) {
	if err := requireObject(body); err != nil {
		return nil, err
	}

	var quoted bytes.Buffer
	writeJSString(&quoted, signature)

	compact, err := compactCopy(body)
	if err != nil {
		return nil, err
	}

	for {
		if _, _, _, err := jsonparser.Get(compact, signatureField); err != nil {
			break
		}
		next := jsonparser.Delete(compact, signatureField)
		if len(next) >= len(compact) {
			return nil, fmt.Errorf("%w: cannot remove signature", ErrMalformedPayload)
		}
		compact = next
	}

	out, err := jsonparser.Set(compact, quoted.Bytes(), signatureField)
	if err != nil {
		return nil, fmt.Errorf("set signature: %w", err)
	}

	return out, nil
}

// Canonicalize returns the bytes that are signed for body: the object without
// its signature field, serialized according to mode.
func Canonicalize(body []byte, mode Serialization) ([]byte, error) {
	if err := requireObject(body); err != nil {
		return nil, err
	}

	var s stringifier
	switch mode {
	case SerializationSorted:
		s.sortKeys = true
	case SerializationPreserve, "":
	default:
		return nil, fmt.Errorf("unknown serialization %q", mode)
	}

	if err := s.object(body, signatureField); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	return s.buf.Bytes(), nil
}

// claimedSignature reads the last top-level signature, the one JSON.parse keeps.
func claimedSignature(body []byte) (string, error) {
	v, typ, ok := lastMember(body, signatureField)
	if !ok || typ != jsonparser.String {
		return "", ErrSignatureMissing
	}

	s, err := jsonparser.ParseString(v)
	if err != nil || s == "" {
		return "", ErrSignatureMissing
	}

	return s, nil
}

func requireObject(body []byte) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' || !json.Valid(trimmed) {
		return ErrMalformedPayload
	}
	return nil
}

func compactCopy(body []byte) ([]byte, error) {
	var out bytes.Buffer
	if err := json.Compact(&out, body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return out.Bytes(), nil
}
