package sdrtype

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestDemodValid(t *testing.T) {
	assert.True(t, DemodOff.Valid())
	assert.True(t, DemodWFMStereoOIRT.Valid())
	assert.False(t, Demod(-1).Valid())
	assert.False(t, Demod(999).Valid())
}

func TestErrorKindImplementsError(t *testing.T) {
	var err error = ErrGainNotFound
	assert.Equal(t, "GAIN_NOT_FOUND", err.Error())
}

func TestValidateFilterRejectsInvertedEdges(t *testing.T) {
	assert.Equal(t, ErrInvalidFilter, ValidateFilter(DemodUSB, 2800, 100, 50))
}

func TestValidateFilterAcceptsDefaultFilters(t *testing.T) {
	for d := DemodOff; d < demodCount; d++ {
		if d == DemodOff {
			continue
		}
		def := DefaultFilterFor(d)
		code := ValidateFilter(d, def.Low, def.High, 1)
		assert.Equalf(t, ErrOK, code, "demod %s default filter [%d,%d] should validate", d, def.Low, def.High)
	}
}

// TestValidateFilterMinWidth checks the property that any edge pair
// narrower than minWidth is always rejected, regardless of where it sits
// within the demod's range.
func TestValidateFilterMinWidth(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		low := int32(rapid.IntRange(-2800, -200).Draw(t, "low"))
		high := low + int32(rapid.IntRange(1, 49).Draw(t, "width"))
		code := ValidateFilter(DemodLSB, low, high, 50)
		assert.Equal(t, ErrInvalidFilter, code)
	})
}

func TestFilterRangeForUnknownDemodIsZeroValue(t *testing.T) {
	r := FilterRangeFor(demodCount)
	assert.Equal(t, FilterRange{}, r)
}
