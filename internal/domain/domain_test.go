package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCorrelation(t *testing.T) {
	c := NewCorrelation("pay-1", 7)
	assert.Equal(t, Correlation{InternalID: "pay-1", PayerID: "7", Purpose: PurposeCheckout}, c)
	assert.NoError(t, c.Validate())

	assert.ErrorIs(t, Correlation{}.Validate(), ErrMissingCorrelation)
	assert.ErrorIs(t, Correlation{InternalID: "  "}.Validate(), ErrMissingCorrelation)

	assert.Equal(t, "ref-9", Correlation{}.Resolve(" ref-9 ").InternalID)
	assert.Equal(t, "pay-1", c.Resolve("ref-9").InternalID, "metadata wins over external_reference")
	assert.ErrorIs(t, Correlation{}.Resolve("").Validate(), ErrMissingCorrelation)
}

func TestPaymentStatus(t *testing.T) {
	assert.True(t, StatusPending.Valid())
	assert.True(t, StatusDeclined.Valid())
	assert.False(t, PaymentStatus("refunded").Valid())
}

func TestParseMethod(t *testing.T) {
	assert.Equal(t, MethodCard, ParseMethod("card"))
	assert.Equal(t, MethodPix, ParseMethod("pix"))
	assert.Equal(t, MethodOther, ParseMethod("boleto"))
	assert.Equal(t, MethodOther, ParseMethod(""))
}
