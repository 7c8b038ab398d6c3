// Package lwin builds and parses LWIN18 wine unit identifiers.
//
// An LWIN18 is the 7-digit LWIN wine id followed by a 4-digit vintage
// ("0000" for non-vintage), a 2-digit case configuration (bottles per case)
// and a 5-digit bottle size in millilitres. The compact form is the 18
// digits concatenated and is used as the stock key; the dashed form groups
// them 7-4-2-5 for display.
package lwin

import (
	"fmt"
	"strconv"

	"github.com/craftandculture/Craft-Culture-sub006/pkg/errors"
)

const (
	// Length of the compact form
	Length = 18
	// DashedLength is the length of the 7-4-2-5 dashed form
	DashedLength = Length + 3

	// NonVintage is the vintage field for wines without a vintage year
	NonVintage = "0000"

	MaxVintage      = 9999
	MaxCaseSize     = 99
	MaxBottleSizeMl = 99999
)

const lwin7Width = 7

// Identifier is a decoded LWIN18. A nil Vintage means non-vintage.
type Identifier struct {
	LWIN7        string `json:"lwin7"`
	Vintage      *int   `json:"vintage"`
	CaseSize     int    `json:"case_size"`
	BottleSizeMl int    `json:"bottle_size_ml"`
}

// Code holds both renderings of an LWIN18.
type Code struct {
	Dashed  string `json:"dashed"`
	Compact string `json:"compact"`
}

// Build validates the parts and renders the code. It never truncates or
// rounds: out-of-range values are rejected with a validation error.
func Build(lwin7 string, vintage *int, caseSize, bottleSizeMl int) (Code, error) {
	if len(lwin7) != lwin7Width || !allDigits(lwin7) {
		return Code{}, errors.Invalid("lwin7", "must be exactly 7 digits")
	}

	vintageField := NonVintage
	if vintage != nil {
		if *vintage < 1 || *vintage > MaxVintage {
			return Code{}, errors.Invalid("vintage", fmt.Sprintf("must be between 1 and %d", MaxVintage))
		}
		vintageField = fmt.Sprintf("%04d", *vintage)
	}

	if caseSize < 1 || caseSize > MaxCaseSize {
		return Code{}, errors.Invalid("case_size", fmt.Sprintf("must be between 1 and %d", MaxCaseSize))
	}
	if bottleSizeMl < 1 || bottleSizeMl > MaxBottleSizeMl {
		return Code{}, errors.Invalid("bottle_size_ml", fmt.Sprintf("must be between 1 and %d", MaxBottleSizeMl))
	}

	caseField := fmt.Sprintf("%02d", caseSize)
	sizeField := fmt.Sprintf("%05d", bottleSizeMl)

	return Code{
		Dashed:  lwin7 + "-" + vintageField + "-" + caseField + "-" + sizeField,
		Compact: lwin7 + vintageField + caseField + sizeField,
	}, nil
}

// Build renders the identifier.
func (id Identifier) Build() (Code, error) {
	return Build(id.LWIN7, id.Vintage, id.CaseSize, id.BottleSizeMl)
}

// Parse decodes a dashed or compact LWIN18. It returns nil when s does not
// have either shape or a field is out of range, so callers can use it as a
// probe.
func Parse(s string) *Identifier {
	compact, ok := normalize(s)
	if !ok {
		return nil
	}

	lwin7 := compact[:7]
	vintageField := compact[7:11]
	caseSize, _ := strconv.Atoi(compact[11:13])
	bottleSize, _ := strconv.Atoi(compact[13:18])

	if caseSize < 1 || bottleSize < 1 {
		return nil
	}

	id := &Identifier{
		LWIN7:        lwin7,
		CaseSize:     caseSize,
		BottleSizeMl: bottleSize,
	}
	if vintageField != NonVintage {
		v, _ := strconv.Atoi(vintageField)
		id.Vintage = &v
	}
	return id
}

// IsLWIN18 reports whether s parses as an LWIN18 in either form.
func IsLWIN18(s string) bool {
	return Parse(s) != nil
}

// Compact returns the 18-digit form of a dashed or compact code.
func Compact(s string) (string, bool) {
	if Parse(s) == nil {
		return "", false
	}
	c, _ := normalize(s)
	return c, true
}

// Dashed converts a compact code into its 7-4-2-5 form. Inputs that are not
// a valid LWIN18 are returned unchanged.
func Dashed(s string) string {
	c, ok := Compact(s)
	if !ok {
		return s
	}
	return c[:7] + "-" + c[7:11] + "-" + c[11:13] + "-" + c[13:]
}

// Validate returns a validation error for a value that is not an LWIN18.
func Validate(field, s string) (string, error) {
	c, ok := Compact(s)
	if !ok {
		return "", errors.Invalid(field, "must be an LWIN18 (18 digits, or 7-4-2-5 dashed)")
	}
	return c, nil
}

// normalize strips the dashes of the dashed form after checking the fixed
// offsets, and checks that what remains is 18 digits.
func normalize(s string) (string, bool) {
	switch len(s) {
	case Length:
		if !allDigits(s) {
			return "", false
		}
		return s, true
	case DashedLength:
		if s[7] != '-' || s[12] != '-' || s[15] != '-' {
			return "", false
		}
		c := s[:7] + s[8:12] + s[13:15] + s[16:]
		if !allDigits(c) {
			return "", false
		}
		return c, true
	default:
		return "", false
	}
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
