// Package barcode formats and parses the two label formats used on the
// warehouse floor: case labels (CASE-...) and location labels (LOC-...).
package barcode

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/lwin"
	"github.com/craftandculture/Craft-Culture-sub006/pkg/errors"
)

const (
	LocationPrefix = "LOC"
	CasePrefix     = "CASE"

	// MinSequenceWidth is the minimum zero padding of a case sequence
	MinSequenceWidth = 3
)

// Kind is what a scanned string looks like.
type Kind string

const (
	KindUnknown  Kind = "unknown"
	KindLocation Kind = "location"
	KindCase     Kind = "case"
	KindLWIN     Kind = "lwin18"
)

// Coordinates addresses a location as aisle, bay and level.
type Coordinates struct {
	Aisle string `json:"aisle"`
	Bay   string `json:"bay"`
	Level string `json:"level"`
}

// Code returns the location code {aisle}-{bay}-{level}.
func (c Coordinates) Code() string {
	return c.Aisle + "-" + c.Bay + "-" + c.Level
}

// Barcode returns the location label value LOC-{code}.
func (c Coordinates) Barcode() string {
	return LocationPrefix + "-" + c.Code()
}

// Validate checks each segment is a non-empty run of letters and digits.
func (c Coordinates) Validate() error {
	details := map[string]string{}
	for field, v := range map[string]string{"aisle": c.Aisle, "bay": c.Bay, "level": c.Level} {
		if !isSegment(v) {
			details[field] = "must be non-empty letters or digits"
		}
	}
	if len(details) > 0 {
		return errors.Validation(details)
	}
	return nil
}

// Normalize upper-cases the segments so "a-01-02" and "A-01-02" address the same slot.
func (c Coordinates) Normalize() Coordinates {
	return Coordinates{
		Aisle: strings.ToUpper(strings.TrimSpace(c.Aisle)),
		Bay:   strings.ToUpper(strings.TrimSpace(c.Bay)),
		Level: strings.ToUpper(strings.TrimSpace(c.Level)),
	}
}

// ParseLocation parses LOC-{AISLE}-{BAY}-{LEVEL}. Anything other than
// exactly four dash-separated segments is a validation error.
func ParseLocation(s string) (Coordinates, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 4 || parts[0] != LocationPrefix {
		return Coordinates{}, errors.Invalid("barcode", "must look like LOC-{AISLE}-{BAY}-{LEVEL}")
	}
	c := Coordinates{Aisle: parts[1], Bay: parts[2], Level: parts[3]}
	if err := c.Validate(); err != nil {
		return Coordinates{}, errors.Invalid("barcode", "must look like LOC-{AISLE}-{BAY}-{LEVEL}")
	}
	return c, nil
}

// CaseRef is a decoded case label.
type CaseRef struct {
	LWIN18   string `json:"lwin18"`
	Sequence int    `json:"sequence"`
}

// Case renders the case label for the given compact LWIN18 and sequence,
// e.g. CASE-1010279-20180600750-001.
func Case(lwin18 string, sequence int) (string, error) {
	compact, ok := lwin.Compact(lwin18)
	if !ok {
		return "", errors.Invalid("lwin18", "must be an LWIN18")
	}
	if sequence < 1 {
		return "", errors.Invalid("sequence", "must be at least 1")
	}
	return fmt.Sprintf("%s-%s-%s-%0*d", CasePrefix, compact[:7], compact[7:], MinSequenceWidth, sequence), nil
}

// ParseCase parses a case label back into its LWIN18 and sequence.
func ParseCase(s string) (CaseRef, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 4 || parts[0] != CasePrefix {
		return CaseRef{}, errors.Invalid("barcode", "must look like CASE-{LWIN7}-{VINTAGE+CASE+SIZE}-{SEQ}")
	}
	compact := parts[1] + parts[2]
	if len(parts[1]) != 7 || !lwin.IsLWIN18(compact) {
		return CaseRef{}, errors.Invalid("barcode", "does not contain a valid LWIN18")
	}
	seqField := parts[3]
	if len(seqField) < MinSequenceWidth || !isDigits(seqField) {
		return CaseRef{}, errors.Invalid("barcode", "sequence must be at least 3 digits")
	}
	seq, err := strconv.Atoi(seqField)
	if err != nil || seq < 1 {
		return CaseRef{}, errors.Invalid("barcode", "sequence must be a positive number")
	}
	return CaseRef{LWIN18: compact, Sequence: seq}, nil
}

// Detect classifies a scanned value without any I/O.
func Detect(s string) Kind {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, LocationPrefix+"-"):
		if _, err := ParseLocation(s); err == nil {
			return KindLocation
		}
	case strings.HasPrefix(s, CasePrefix+"-"):
		if _, err := ParseCase(s); err == nil {
			return KindCase
		}
	case lwin.IsLWIN18(s):
		return KindLWIN
	}
	return KindUnknown
}

func isSegment(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r >= '0' && r <= '9' || r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z') {
			return false
		}
	}
	return true
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
