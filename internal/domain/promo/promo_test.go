package promo

import (
	"testing"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestTable_Validate(t *testing.T) {
	table := Defaults()

	tests := []struct {
		name          string
		code          string
		subtotal      decimal.Decimal
		wantCode      string
		wantKind      Kind
		wantThreshold decimal.Decimal
		wantMessage   string
	}{
		{
			name:     "STUDENT10 at 60 succeeds",
			code:     "STUDENT10",
			subtotal: d("60"),
			wantCode: "STUDENT10",
		},
		{
			name:          "STUDENT10 at 40 misses minimum",
			code:          "STUDENT10",
			subtotal:      d("40"),
			wantKind:      KindMinimumNotMet,
			wantThreshold: d("50"),
			wantMessage:   "minimum order of ₹50 required",
		},
		{
			name:     "minimum is inclusive",
			code:     "SAVE20",
			subtotal: d("100"),
			wantCode: "SAVE20",
		},
		{
			name:          "SAVE20 at 67 misses minimum",
			code:          "SAVE20",
			subtotal:      d("67"),
			wantKind:      KindMinimumNotMet,
			wantThreshold: d("100"),
			wantMessage:   "minimum order of ₹100 required",
		},
		{
			name:     "lookup is case and space insensitive",
			code:     "  first25 ",
			subtotal: d("80"),
			wantCode: "FIRST25",
		},
		{
			name:        "unknown code",
			code:        "FREEFOOD",
			subtotal:    d("500"),
			wantKind:    KindInvalidCode,
			wantMessage: "invalid promo code",
		},
		{
			name:        "empty code",
			code:        "",
			subtotal:    d("500"),
			wantKind:    KindInvalidCode,
			wantMessage: "invalid promo code",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := table.Validate(tt.code, tt.subtotal)

			if tt.wantKind != "" {
				var perr *Error
				require.ErrorAs(t, err, &perr)
				assert.Equal(t, tt.wantKind, perr.Kind)
				assert.Equal(t, tt.wantMessage, perr.Error())
				if tt.wantKind == KindMinimumNotMet {
					assert.True(t, tt.wantThreshold.Equal(perr.Threshold))
					assert.ErrorIs(t, err, ErrMinimumNotMet)
				} else {
					assert.ErrorIs(t, err, ErrInvalidCode)
				}
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantCode, got.Code)
		})
	}
}

func TestError_IsMatchesKindThroughWrapping(t *testing.T) {
	err := errors.Wrap(&Error{Kind: KindInvalidCode, Code: "X"}, "apply promo")

	assert.ErrorIs(t, err, ErrInvalidCode)
	assert.NotErrorIs(t, err, ErrMinimumNotMet)
}

func TestNewTable_Invalid(t *testing.T) {
	_, err := NewTable(Code{Code: " ", Discount: d("5")})
	require.Error(t, err)

	_, err = NewTable(Code{Code: "ZERO", Discount: d("0")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "discount must be positive")

	_, err = NewTable(Code{Code: "NEG", Discount: d("5"), MinOrder: d("-1")})
	require.Error(t, err)
}

func TestTable_CodesSorted(t *testing.T) {
	codes := Defaults().Codes()
	require.Len(t, codes, 3)
	assert.Equal(t, "FIRST25", codes[0].Code)
	assert.Equal(t, "SAVE20", codes[1].Code)
	assert.Equal(t, "STUDENT10", codes[2].Code)
}

func TestDecodeTable(t *testing.T) {
	table, err := DecodeTable([]byte(`{
		"version": 2,
		"codes": [
			{"code": "lunch15", "discount": 15, "minOrder": 60, "description": "Lunch deal"},
			{"code": "TEA5", "discount": 5, "minOrder": 0}
		]
	}`))
	require.NoError(t, err)
	assert.Equal(t, 2, table.Len())

	c, ok := table.Lookup("LUNCH15")
	require.True(t, ok)
	assert.True(t, d("15").Equal(c.Discount))
	assert.True(t, d("60").Equal(c.MinOrder))
	assert.Equal(t, "Lunch deal", c.Description)

	_, err = DecodeTable([]byte(`{"codes":[{"code":"BAD","discount":"x"}]}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "discount")
}

func TestEncodeTable_ReadBack(t *testing.T) {
	var e jx.Encoder
	EncodeTable(&e, Defaults())

	table, err := DecodeTable(e.Bytes())
	require.NoError(t, err)

	want := Defaults().Codes()
	got := table.Codes()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].Code, got[i].Code)
		assert.True(t, want[i].Discount.Equal(got[i].Discount))
		assert.True(t, want[i].MinOrder.Equal(got[i].MinOrder))
		assert.Equal(t, want[i].Description, got[i].Description)
	}
}
