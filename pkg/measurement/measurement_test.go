package measurement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsneelabh/hermes/pkg/model"
)

func qv(value float64, code string) *model.QuantitativeValue {
	c := code
	return &model.QuantitativeValue{Value: &value, UnitCode: &c}
}

func TestLengthToInchesIdentity(t *testing.T) {
	got, ok := LengthToInches(qv(5, "INH"))
	require.True(t, ok)
	assert.Equal(t, 5.0, got)
}

func TestWeightToPoundsIdentity(t *testing.T) {
	got, ok := WeightToPounds(qv(3, "LBR"))
	require.True(t, ok)
	assert.Equal(t, 3.0, got)
}

func TestLengthConvertsCentimeters(t *testing.T) {
	got, ok := LengthToInches(qv(10, "CMT"))
	require.True(t, ok)
	assert.InDelta(t, 3.937007874, got, 0.0001)
}

func TestWeightConvertsKilograms(t *testing.T) {
	got, ok := WeightToPounds(qv(1, "KGM"))
	require.True(t, ok)
	assert.InDelta(t, 2.20462262, got, 0.0001)
}

func TestUnitTextFallback(t *testing.T) {
	value := 2.0
	text := "feet"
	got, ok := LengthToInches(&model.QuantitativeValue{Value: &value, UnitText: &text})
	require.True(t, ok)
	assert.Equal(t, 24.0, got)
}

func TestNonPositiveRejected(t *testing.T) {
	_, ok := LengthToInches(qv(0, "INH"))
	assert.False(t, ok)
	_, ok = LengthToInches(qv(-1, "INH"))
	assert.False(t, ok)
}

func TestNilRejected(t *testing.T) {
	_, ok := LengthToInches(nil)
	assert.False(t, ok)
}

func TestUnrecognizedUnitRejected(t *testing.T) {
	_, ok := LengthToInches(qv(1, "XYZ"))
	assert.False(t, ok)
}

func TestRounding(t *testing.T) {
	assert.Equal(t, 1.2, RoundOne(1.23))
	assert.Equal(t, 1.23, RoundTwo(1.234))
}
