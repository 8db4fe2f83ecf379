package ptrx_test

import (
	"testing"

	"github.com/Abraxas-365/keygate/pkg/ptrx"
	"github.com/stretchr/testify/assert"
)

func TestNonEmpty(t *testing.T) {
	assert.Nil(t, ptrx.NonEmpty(""))
	assert.Equal(t, "api", *ptrx.NonEmpty("api"))
}

func TestValues(t *testing.T) {
	assert.Equal(t, "", ptrx.StringValue(nil))
	assert.Equal(t, "x", ptrx.StringValue(ptrx.String("x")))
	assert.True(t, ptrx.BoolValueOr(nil, true))
	assert.False(t, ptrx.BoolValueOr(ptrx.Bool(false), true))
}
