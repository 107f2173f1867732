package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentSigner_KnownVector(t *testing.T) {
	// echo -n "order_1|pay_1" | openssl dgst -sha256 -hmac secret
	signer := NewPaymentSigner("secret")
	sig := signer.Sign("order_1", "pay_1")
	assert.Equal(t, "52115a0d3400de9e86aade1f1b6eba9e8974604f4e267a9e9a16633a4c8dd2cb", sig)
	assert.True(t, signer.Verify("order_1", "pay_1", sig))
}

func TestPaymentSigner_RejectsOtherPairs(t *testing.T) {
	signer := NewPaymentSigner("secret")
	sig := signer.Sign("order_1", "pay_1")

	cases := map[string][2]string{
		"other order":       {"order_2", "pay_1"},
		"other transaction": {"order_1", "pay_2"},
		"swapped":           {"pay_1", "order_1"},
		"shifted separator": {"order_1|pay", "_1"},
		"empty order":       {"", "pay_1"},
		"empty transaction": {"order_1", ""},
	}
	for name, pair := range cases {
		t.Run(name, func(t *testing.T) {
			assert.False(t, signer.Verify(pair[0], pair[1], sig))
		})
	}
}

func TestPaymentSigner_RejectsMalformedSignatures(t *testing.T) {
	signer := NewPaymentSigner("secret")
	sig := signer.Sign("order_1", "pay_1")

	assert.False(t, signer.Verify("order_1", "pay_1", ""))
	assert.False(t, signer.Verify("order_1", "pay_1", "zz"+sig[2:]))
	assert.False(t, signer.Verify("order_1", "pay_1", sig[:62]))
	assert.False(t, signer.Verify("order_1", "pay_1", sig+"00"))
	assert.False(t, signer.Verify("order_1", "pay_1", " "+sig))
	assert.False(t, NewPaymentSigner("other").Verify("order_1", "pay_1", sig))
	assert.False(t, NewPaymentSigner("").Verify("order_1", "pay_1", NewPaymentSigner("").Sign("order_1", "pay_1")))
}

func TestPaymentSigner_RequiresExactHexSpelling(t *testing.T) {
	signer := NewPaymentSigner("secret")
	sig := signer.Sign("order_1", "pay_1")

	// same digest, different text: the provider only ever sends lower case
	assert.False(t, signer.Verify("order_1", "pay_1", strings.ToUpper(sig)))
	require.Equal(t, byte('a'), sig[4])
	assert.False(t, signer.Verify("order_1", "pay_1", sig[:4]+"A"+sig[5:]))
	assert.True(t, signer.Verify("order_1", "pay_1", strings.ToLower(strings.ToUpper(sig))))
}
