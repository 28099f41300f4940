package crypto

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff"

var envelopePattern = regexp.MustCompile(`^[0-9a-f]{32}:[0-9a-f]+$`)

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	codec, err := NewCodec(testKey)
	require.NoError(t, err)
	return codec
}

func TestCodecRoundTrip(t *testing.T) {
	codec := newTestCodec(t)

	for _, plain := range []string{"hello", "", "a:b:c", strings.Repeat("x", 16), "здравствуй 👋"} {
		envelope, err := codec.Encrypt(plain)
		require.NoError(t, err)
		assert.Regexp(t, envelopePattern, envelope)
		assert.Equal(t, plain, codec.Decrypt(envelope))
	}
}

func TestCodecUsesFreshIV(t *testing.T) {
	codec := newTestCodec(t)

	first, err := codec.Encrypt("hello")
	require.NoError(t, err)
	second, err := codec.Encrypt("hello")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.NotEqual(t, first[:32], second[:32])
	assert.Equal(t, "hello", codec.Decrypt(first))
	assert.Equal(t, "hello", codec.Decrypt(second))
}

func TestCodecCiphertextHidesPlaintext(t *testing.T) {
	codec := newTestCodec(t)

	envelope, err := codec.Encrypt("hello")
	require.NoError(t, err)
	assert.NotContains(t, envelope, "hello")
}

func TestDecryptLegacyPlaintextPassesThrough(t *testing.T) {
	codec := newTestCodec(t)
	assert.Equal(t, "plain old message", codec.Decrypt("plain old message"))
}

func TestDecryptFailuresYieldEmpty(t *testing.T) {
	codec := newTestCodec(t)
	envelope, err := codec.Encrypt("hello")
	require.NoError(t, err)

	cases := map[string]string{
		"non hex iv":           "zz" + envelope[2:],
		"short iv":             "0011:" + envelope[33:],
		"non hex body":         envelope[:33] + "not-hex",
		"truncated body":       envelope[:len(envelope)-2],
		"empty body":           envelope[:33],
		"legacy text w/ colon": "12:30pm",
	}
	for name, input := range cases {
		assert.Equal(t, "", codec.Decrypt(input), name)
	}
}

func TestDecryptSplitsOnFirstColon(t *testing.T) {
	codec := newTestCodec(t)
	envelope, err := codec.Encrypt("x")
	require.NoError(t, err)

	// a trailing ":..." belongs to the ciphertext half and makes it invalid hex
	assert.Equal(t, "", codec.Decrypt(envelope+":extra"))
}

func TestDisabledCodecPassesThrough(t *testing.T) {
	var codec *Codec
	assert.False(t, codec.Enabled())

	out, err := codec.Encrypt("hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
	assert.Equal(t, "abc:def", codec.Decrypt("abc:def"))
}

func TestNewCodecRejectsBadKeys(t *testing.T) {
	_, err := NewCodec("")
	assert.ErrorIs(t, err, ErrMissingKey)

	_, err = NewCodec("abcd")
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = NewCodec(strings.Repeat("g", 64))
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = NewCodec(" " + testKey + " ")
	assert.NoError(t, err)
}

func TestPKCS7(t *testing.T) {
	padded := pkcs7Pad([]byte("abc"), 16)
	require.Len(t, padded, 16)
	out, ok := pkcs7Unpad(padded, 16)
	require.True(t, ok)
	assert.Equal(t, "abc", string(out))

	full := pkcs7Pad(make([]byte, 16), 16)
	assert.Len(t, full, 32)

	_, ok = pkcs7Unpad(append(make([]byte, 15), 0), 16)
	assert.False(t, ok)
}
