package lwin

import (
	"testing"

	"github.com/craftandculture/Craft-Culture-sub006/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(i int) *int { return &i }

func TestBuild(t *testing.T) {
	code, err := Build("1010279", intPtr(2018), 6, 750)
	require.NoError(t, err)
	assert.Equal(t, "101027920180600750", code.Compact)
	assert.Equal(t, "1010279-2018-06-00750", code.Dashed)
}

func TestBuild_NonVintage(t *testing.T) {
	code, err := Build("1234567", nil, 12, 1500)
	require.NoError(t, err)
	assert.Equal(t, "123456700001201500", code.Compact)
}

func TestBuild_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		lwin7   string
		vintage *int
		caseSz  int
		size    int
		field   string
	}{
		{"short lwin7", "101027", intPtr(2018), 6, 750, "lwin7"},
		{"long lwin7", "10102790", intPtr(2018), 6, 750, "lwin7"},
		{"letters in lwin7", "10102A9", intPtr(2018), 6, 750, "lwin7"},
		{"vintage zero", "1010279", intPtr(0), 6, 750, "vintage"},
		{"vintage too big", "1010279", intPtr(10000), 6, 750, "vintage"},
		{"case size zero", "1010279", intPtr(2018), 0, 750, "case_size"},
		{"case size 100", "1010279", intPtr(2018), 100, 750, "case_size"},
		{"bottle size zero", "1010279", intPtr(2018), 6, 0, "bottle_size_ml"},
		{"bottle size overflow", "1010279", intPtr(2018), 6, 100000, "bottle_size_ml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.lwin7, tt.vintage, tt.caseSz, tt.size)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrValidation))

			var appErr *errors.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Contains(t, appErr.Details, tt.field)
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  *Identifier
	}{
		{"compact", "101027920180600750", &Identifier{LWIN7: "1010279", Vintage: intPtr(2018), CaseSize: 6, BottleSizeMl: 750}},
		{"dashed", "1010279-2018-06-00750", &Identifier{LWIN7: "1010279", Vintage: intPtr(2018), CaseSize: 6, BottleSizeMl: 750}},
		{"non-vintage", "123456700001201500", &Identifier{LWIN7: "1234567", CaseSize: 12, BottleSizeMl: 1500}},
		{"too short", "10102792018060075", nil},
		{"too long", "1010279201806007500", nil},
		{"letters", "10102792018O600750", nil},
		{"dashes in wrong place", "101027-92018-06-00750", nil},
		{"empty", "", nil},
		{"zero case size", "101027920180000750", nil},
		{"location barcode", "LOC-A-01-02", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.input))
		})
	}
}

func TestRoundTrip(t *testing.T) {
	ids := []Identifier{
		{LWIN7: "1010279", Vintage: intPtr(2018), CaseSize: 6, BottleSizeMl: 750},
		{LWIN7: "0000001", Vintage: intPtr(1), CaseSize: 1, BottleSizeMl: 1},
		{LWIN7: "9999999", Vintage: intPtr(9999), CaseSize: 99, BottleSizeMl: 99999},
		{LWIN7: "1234567", CaseSize: 3, BottleSizeMl: 375},
	}

	for _, id := range ids {
		code, err := id.Build()
		require.NoError(t, err)
		assert.Len(t, code.Compact, Length)

		assert.Equal(t, &id, Parse(code.Compact))
		assert.Equal(t, &id, Parse(code.Dashed))
	}
}

func TestDashedAndCompact(t *testing.T) {
	assert.Equal(t, "1010279-2018-06-00750", Dashed("101027920180600750"))
	assert.Equal(t, "not-an-lwin", Dashed("not-an-lwin"))

	c, ok := Compact("1010279-2018-06-00750")
	assert.True(t, ok)
	assert.Equal(t, "101027920180600750", c)

	_, ok = Compact("abc")
	assert.False(t, ok)
}

func TestValidate(t *testing.T) {
	c, err := Validate("lwin18", "1010279-2018-06-00750")
	require.NoError(t, err)
	assert.Equal(t, "101027920180600750", c)

	_, err = Validate("lwin18", "12345")
	assert.True(t, errors.Is(err, errors.ErrValidation))
	assert.True(t, IsLWIN18("101027920180600750"))
	assert.False(t, IsLWIN18("12345"))
}
