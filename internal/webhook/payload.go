package webhook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/buger/jsonparser"
	"github.com/jmehdipour/order-sms/internal/model"
)

// Parse validates that body is a JSON object and extracts the fields the
// relay cares about. Missing fields are left at their zero value.
func Parse(body []byte) (*model.Webhook, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' || !json.Valid(trimmed) {
		return nil, ErrMalformedPayload
	}

	w := &model.Webhook{Raw: body}

	if s, err := claimedSignature(trimmed); err == nil {
		w.Signature = s
	}

	if created, ok := epochSeconds(trimmed, "created"); ok {
		w.Created = created
		w.HasCreated = true
	}

	w.Event = scalarText(trimmed, "event")
	w.ResponseCode = scalarText(trimmed, "response_code")
	w.OrderID = orderID(trimmed)

	if _, typ, ok := lookup(trimmed, "payload", "order"); ok && typ != jsonparser.Null {
		w.HasOrder = true
		w.OrderTotal = scalarText(trimmed, "payload", "order", "total_with_tax", "formatted_with_symbol")
	}

	return w, nil
}

// lookup resolves path through nested objects. A repeated key resolves to
// its last occurrence at every level.
func lookup(data []byte, path ...string) ([]byte, jsonparser.ValueType, bool) {
	v, typ := data, jsonparser.Object
	for _, key := range path {
		if typ != jsonparser.Object {
			return nil, jsonparser.NotExist, false
		}
		var ok bool
		if v, typ, ok = lastMember(v, key); !ok {
			return nil, jsonparser.NotExist, false
		}
	}
	return v, typ, true
}

// scalarText returns a string or number value at path as text, or "" for
// anything else. Numbers print as JS would print them.
func scalarText(data []byte, path ...string) string {
	v, typ, ok := lookup(data, path...)
	if !ok {
		return ""
	}

	switch typ {
	case jsonparser.String:
		s, err := jsonparser.ParseString(v)
		if err != nil {
			return ""
		}
		return s
	case jsonparser.Number:
		return jsNumber(v)
	default:
		return ""
	}
}

// orderID returns payload.id as text. A numeric zero is falsy like an empty
// string and yields "", while the string "0" is kept.
func orderID(data []byte) string {
	id := scalarText(data, "payload", "id")
	if _, typ, _ := lookup(data, "payload", "id"); typ == jsonparser.Number && id == "0" {
		return ""
	}
	return id
}

// epochSeconds accepts a JSON number (fractions truncated) or a numeric string.
func epochSeconds(data []byte, key string) (int64, bool) {
	v, typ, ok := lookup(data, key)
	if !ok {
		return 0, false
	}

	var raw string
	switch typ {
	case jsonparser.Number:
		raw = string(v)
	case jsonparser.String:
		s, err := jsonparser.ParseString(v)
		if err != nil {
			return 0, false
		}
		raw = s
	default:
		return 0, false
	}

	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}

	return int64(f), true
}

// Describe renders the "<response_code> for <event>" summary logged once a
// request is handled.
func Describe(w *model.Webhook) string {
	return fmt.Sprintf("%s for %s", w.ResponseCode, w.Event)
}
