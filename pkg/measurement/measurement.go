// Package measurement converts schema.org QuantitativeValue fields into the
// inches/pounds units eBay's package payload requires, and provides the
// rounding rules build_listing applies to the result. Unit tables and
// fallback-by-text lookups follow the original hsuf measurement conversion
// table exactly (unit codes are GS1/UN-ECE recommendation 20 codes: INH,
// FT, CMT, MTR, MMT, YRD for length; LBR, ONZ, KGM, GRM for weight).
package measurement

import (
	"strings"

	"github.com/itsneelabh/hermes/pkg/model"
)

var lengthToInches = map[string]float64{
	"INH": 1.0,
	"FT":  12.0,
	"CMT": 0.3937007874,
	"MTR": 39.37007874,
	"MMT": 0.03937007874,
	"YRD": 36.0,
}

var weightToPounds = map[string]float64{
	"LBR": 1.0,
	"ONZ": 0.0625,
	"KGM": 2.20462262,
	"GRM": 0.00220462262,
}

var lengthTextToCode = map[string]string{
	"inch": "INH", "inches": "INH", "in": "INH",
	"foot": "FT", "feet": "FT", "ft": "FT",
	"centimeter": "CMT", "centimeters": "CMT", "cm": "CMT",
	"meter": "MTR", "meters": "MTR", "m": "MTR",
	"millimeter": "MMT", "millimeters": "MMT", "mm": "MMT",
	"yard": "YRD", "yards": "YRD",
}

var weightTextToCode = map[string]string{
	"pound": "LBR", "pounds": "LBR", "lb": "LBR", "lbs": "LBR",
	"ounce": "ONZ", "ounces": "ONZ", "oz": "ONZ",
	"kilogram": "KGM", "kilograms": "KGM", "kg": "KGM",
	"gram": "GRM", "grams": "GRM", "g": "GRM",
}

// LengthToInches converts a QuantitativeValue into inches. Returns false
// when the value is nil, non-positive, or carries an unrecognized unit.
func LengthToInches(v *model.QuantitativeValue) (float64, bool) {
	return convert(v, lengthToInches, lengthTextToCode)
}

// WeightToPounds converts a QuantitativeValue into pounds. Returns false
// when the value is nil, non-positive, or carries an unrecognized unit.
func WeightToPounds(v *model.QuantitativeValue) (float64, bool) {
	return convert(v, weightToPounds, weightTextToCode)
}

func convert(v *model.QuantitativeValue, codeFactor map[string]float64, textToCode map[string]string) (float64, bool) {
	if v == nil || v.Value == nil || *v.Value <= 0 {
		return 0, false
	}
	code, ok := normalizeCode(v.UnitCode, v.UnitText, codeFactor, textToCode)
	if !ok {
		return 0, false
	}
	return *v.Value * codeFactor[code], true
}

func normalizeCode(unitCode, unitText *string, codeFactor map[string]float64, textToCode map[string]string) (string, bool) {
	if unitCode != nil {
		upper := strings.ToUpper(strings.TrimSpace(*unitCode))
		if _, ok := codeFactor[upper]; ok {
			return upper, true
		}
	}
	if unitText != nil {
		lower := strings.ToLower(strings.TrimSpace(*unitText))
		if code, ok := textToCode[lower]; ok {
			return code, true
		}
	}
	return "", false
}

// RoundOne rounds to one decimal place.
func RoundOne(v float64) float64 {
	return roundTo(v, 10)
}

// RoundTwo rounds to two decimal places.
func RoundTwo(v float64) float64 {
	return roundTo(v, 100)
}

func roundTo(v float64, factor float64) float64 {
	scaled := v * factor
	if scaled >= 0 {
		return float64(int64(scaled+0.5)) / factor
	}
	return float64(int64(scaled-0.5)) / factor
}
