package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifier(t *testing.T) {
	v := Verifier{Secret: "s3cret"}
	sig := v.Sign("order_1", "pay_1")

	assert.Len(t, sig, 64)
	assert.True(t, v.Verify("order_1", "pay_1", sig))
	assert.False(t, v.Verify("order_1", "pay_2", sig))
	assert.False(t, v.Verify("order_1", "pay_1", "deadbeef"))
	assert.False(t, Verifier{}.Verify("order_1", "pay_1", Verifier{}.Sign("order_1", "pay_1")))
}
