package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutcomeFactories(t *testing.T) {
	ok := Succeed("SUB-20260101-ABC123", "subscribed")
	assert.True(t, ok.Success)
	assert.Equal(t, "SUB-20260101-ABC123", ok.Data)

	failed := Fail[string]("wait until current expires")
	assert.False(t, failed.Success)
	assert.Empty(t, failed.Data)
	assert.Equal(t, "wait until current expires", failed.Message)
}

func TestPaymentMethodPaidOnCreate(t *testing.T) {
	assert.False(t, PaymentMethodOnline.PaidOnCreate())
	assert.True(t, PaymentMethodCash.PaidOnCreate())
	assert.True(t, PaymentMethod("BankTransfer").PaidOnCreate())
}
