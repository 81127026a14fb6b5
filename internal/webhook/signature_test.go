package webhook_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/jmehdipour/order-sms/internal/webhook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "de1uFAu5eGLAasbuGDp1lMFHHfQCsErq"

func hmacHex(t *testing.T, secret, data string) string {
	t.Helper()
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestCanonicalize(t *testing.T) {
	testCases := []struct {
		Name     string
		Body     string
		Mode     webhook.Serialization
		Expected string
	}{
		{
			Name:     "preserve_drops_whitespace_and_signature",
			Body:     "{ \"b\": 2,\n \"signature\": \"zz\",\n \"a\": {\"y\": 1, \"x\": [1, 2]} }",
			Mode:     webhook.SerializationPreserve,
			Expected: `{"b":2,"a":{"y":1,"x":[1,2]}}`,
		},
		{
			Name:     "preserve_signature_last",
			Body:     `{"a":1,"b":"x","signature":"zz"}`,
			Mode:     webhook.SerializationPreserve,
			Expected: `{"a":1,"b":"x"}`,
		},
		{
			Name:     "preserve_keeps_html_and_escapes",
			Body:     `{"u":"<a&b>","q":"say \"hi\"","n":null,"t":true}`,
			Mode:     webhook.SerializationPreserve,
			Expected: `{"u":"<a&b>","q":"say \"hi\"","n":null,"t":true}`,
		},
		{
			Name:     "preserve_keeps_nested_signature",
			Body:     `{"payload":{"signature":"inner"},"signature":"outer"}`,
			Mode:     webhook.SerializationPreserve,
			Expected: `{"payload":{"signature":"inner"}}`,
		},
		{
			Name:     "sorted_orders_every_level",
			Body:     `{"b": 2, "signature": "zz", "a": {"y": 1, "x": 2.50}}`,
			Mode:     webhook.SerializationSorted,
			Expected: `{"a":{"x":2.5,"y":1},"b":2}`,
		},
		{
			Name:     "preserve_decodes_string_escapes",
			Body:     `{"name":"Ren\u00e9e","url":"https:\/\/x.io","signature":"zz"}`,
			Mode:     webhook.SerializationPreserve,
			Expected: `{"name":"Renée","url":"https://x.io"}`,
		},
		{
			Name:     "preserve_escapes_control_characters",
			Body:     `{"s":"tab\there\u0001\u001f","k":"\u0041"}`,
			Mode:     webhook.SerializationPreserve,
			Expected: `{"s":"tab\there\u0001\u001f","k":"A"}`,
		},
		{
			Name:     "preserve_unescapes_keys",
			Body:     `{"\u0061":1}`,
			Mode:     webhook.SerializationPreserve,
			Expected: `{"a":1}`,
		},
		{
			Name:     "preserve_index_keys_first",
			Body:     `{"b":1,"2":2,"1":3}`,
			Mode:     webhook.SerializationPreserve,
			Expected: `{"1":3,"2":2,"b":1}`,
		},
		{
			Name:     "preserve_index_keys_numeric_order",
			Body:     `{"x":0,"10":1,"9":2,"01":3,"-1":4,"4294967295":5,"4294967294":6}`,
			Mode:     webhook.SerializationPreserve,
			Expected: `{"9":2,"10":1,"4294967294":6,"x":0,"01":3,"-1":4,"4294967295":5}`,
		},
		{
			Name:     "preserve_numbers_as_printed",
			Body:     `{"total":1.50,"big":1e3}`,
			Mode:     webhook.SerializationPreserve,
			Expected: `{"total":1.5,"big":1000}`,
		},
		{
			Name:     "preserve_number_forms",
			Body:     `{"n":[1e21,1E-7,0.000001,-0,-0.0,-1.5e-10,123456789012345678901,2.0]}`,
			Mode:     webhook.SerializationPreserve,
			Expected: `{"n":[1e+21,1e-7,0.000001,0,0,-1.5e-10,123456789012345680000,2]}`,
		},
		{
			Name:     "preserve_duplicate_key_takes_last_value",
			Body:     `{"a":1,"b":2,"a":{"c":3,"c":4}}`,
			Mode:     webhook.SerializationPreserve,
			Expected: `{"a":{"c":4},"b":2}`,
		},
		{
			Name:     "preserve_drops_every_signature",
			Body:     `{"signature":"first","a":1,"signature":"second"}`,
			Mode:     webhook.SerializationPreserve,
			Expected: `{"a":1}`,
		},
		{
			Name:     "sorted_renders_like_preserve",
			Body:     `{"b":"\/","a":1.0,"a":2e0}`,
			Mode:     webhook.SerializationSorted,
			Expected: `{"a":2,"b":"/"}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			out, err := webhook.Canonicalize([]byte(tc.Body), tc.Mode)
			require.NoError(t, err)
			assert.Equal(t, tc.Expected, string(out))
		})
	}
}

func TestCanonicalize_Malformed(t *testing.T) {
	for _, body := range []string{"not json", "", "[1,2]", `"str"`, `{"a":`} {
		_, err := webhook.Canonicalize([]byte(body), webhook.SerializationPreserve)
		assert.ErrorIs(t, err, webhook.ErrMalformedPayload, "body %q", body)
	}
}

func TestVerifier_KnownVector(t *testing.T) {
	signed := `{"created":1700000000,"event":"orders.create","payload":{"id":"ORD-1"}}`
	sig := hmacHex(t, testSecret, signed)

	body := `{"created": 1700000000, "event": "orders.create", "payload": {"id": "ORD-1"}, "signature": "` + sig + `"}`

	v := webhook.NewVerifier(testSecret, webhook.SerializationPreserve)
	assert.NoError(t, v.Verify([]byte(body)))

	other := webhook.NewVerifier("another-key", webhook.SerializationPreserve)
	assert.ErrorIs(t, other.Verify([]byte(body)), webhook.ErrSignatureMismatch)
}

func TestVerifier_RoundTrip(t *testing.T) {
	payloads := []string{
		`{"created":1700000000,"event":"orders.create","response_code":201,"payload":{"id":"ORD-1","order":{"total_with_tax":{"formatted_with_symbol":"$42.00"}}}}`,
		`{"event":"test","payload":{}}`,
		`{"z":1,"a":[{"k":"v"}],"m":"<&>"}`,
	}

	for _, mode := range []webhook.Serialization{webhook.SerializationPreserve, webhook.SerializationSorted} {
		v := webhook.NewVerifier(testSecret, mode)

		for _, p := range payloads {
			sig, err := webhook.Sign([]byte(p), testSecret, mode)
			require.NoError(t, err)

			signed, err := webhook.Attach([]byte(p), sig)
			require.NoError(t, err)
			require.NoError(t, v.Verify(signed), "mode=%s payload=%s", mode, p)

			for i := range sig {
				flipped := []byte(sig)
				if flipped[i] == '0' {
					flipped[i] = '1'
				} else {
					flipped[i] = '0'
				}

				tampered, err := webhook.Attach([]byte(p), string(flipped))
				require.NoError(t, err)
				assert.ErrorIs(t, v.Verify(tampered), webhook.ErrSignatureMismatch, "mode=%s byte=%d", mode, i)
			}
		}
	}
}

func TestVerifier_TamperedPayload(t *testing.T) {
	p := []byte(`{"event":"orders.create","payload":{"id":"ORD-1"}}`)
	sig, err := webhook.Sign(p, testSecret, webhook.SerializationPreserve)
	require.NoError(t, err)

	tampered, err := webhook.Attach([]byte(`{"event":"orders.create","payload":{"id":"ORD-2"}}`), sig)
	require.NoError(t, err)

	v := webhook.NewVerifier(testSecret, webhook.SerializationPreserve)
	assert.ErrorIs(t, v.Verify(tampered), webhook.ErrSignatureMismatch)
}

func TestVerifier_MissingSignature(t *testing.T) {
	v := webhook.NewVerifier(testSecret, webhook.SerializationPreserve)

	testCases := []struct {
		Name string
		Body string
	}{
		{Name: "absent", Body: `{"event":"orders.create"}`},
		{Name: "empty", Body: `{"event":"orders.create","signature":""}`},
		{Name: "not_a_string", Body: `{"event":"orders.create","signature":42}`},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			assert.ErrorIs(t, v.Verify([]byte(tc.Body)), webhook.ErrSignatureMissing)
		})
	}
}

func TestVerifier_DuplicateSignatureUsesLast(t *testing.T) {
	p := []byte(`{"event":"orders.create","payload":{"id":"ORD-1"}}`)
	sig, err := webhook.Sign(p, testSecret, webhook.SerializationPreserve)
	require.NoError(t, err)

	v := webhook.NewVerifier(testSecret, webhook.SerializationPreserve)

	lastGood := `{"signature":"first","event":"orders.create","payload":{"id":"ORD-1"},"signature":"` + sig + `"}`
	assert.NoError(t, v.Verify([]byte(lastGood)))

	firstGood := `{"signature":"` + sig + `","event":"orders.create","payload":{"id":"ORD-1"},"signature":"second"}`
	assert.ErrorIs(t, v.Verify([]byte(firstGood)), webhook.ErrSignatureMismatch)
}

func TestAttach_ReplacesExisting(t *testing.T) {
	out, err := webhook.Attach([]byte(`{"a": 1, "signature": "old"}`), "new")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1,"signature":"new"}`, string(out))

	out, err = webhook.Attach([]byte(`{"signature":"x","a":1,"signature":"y"}`), "new")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(out), `"signature"`))

	w, err := webhook.Parse(out)
	require.NoError(t, err)
	assert.Equal(t, "new", w.Signature)
}

func TestParseSerialization(t *testing.T) {
	mode, ok := webhook.ParseSerialization("")
	assert.True(t, ok)
	assert.Equal(t, webhook.SerializationPreserve, mode)

	mode, ok = webhook.ParseSerialization(" Sorted ")
	assert.True(t, ok)
	assert.Equal(t, webhook.SerializationSorted, mode)

	_, ok = webhook.ParseSerialization("random")
	assert.False(t, ok)
}
