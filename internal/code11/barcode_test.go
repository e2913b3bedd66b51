package code11

import (
	"testing"

	"github.com/MeKo-Tech/code11/internal/barcode"
	"github.com/MeKo-Tech/code11/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sample is a framed sequence whose last data symbol is the correct check
// character for the preceding digits.
var sample = []string{"S/S", "1", "2", "3", "4", "-", "5", "6", "7", "8", "6", "S/S"}

// withCheckChar returns sample with the check character replaced.
func withCheckChar(c string) []string {
	out := append([]string(nil), sample...)
	out[len(out)-2] = c
	return out
}

func mustBuild(t *testing.T, labels []string, opts ...Option) *Barcode {
	t.Helper()
	b, err := FromCharacters(labels, opts...)
	require.NoError(t, err)
	return b
}

func mustSymbols(t *testing.T, labels ...string) []Symbol {
	t.Helper()
	out := make([]Symbol, 0, len(labels))
	for _, l := range labels {
		sym, err := CharToSymbol(l)
		require.NoError(t, err)
		out = append(out, sym)
	}
	return out
}

func TestBarcode_StructuralValidity(t *testing.T) {
	tests := []struct {
		name      string
		labels    []string
		minDigits int
		want      bool
	}{
		{"default min digits", sample, 1, false},
		{"exact digit count", sample, 10, true},
		{"one short", sample, 9, false},
		{"one over", sample, 11, false},
		{"wrong check char ignored", withCheckChar("5"), 10, true},
		{"missing leading sentinel", sample[1:], 10, false},
		{"missing both sentinels", sample[1 : len(sample)-1], 10, false},
		{"leading digit instead of sentinel", append([]string{"1"}, sample[1:]...), 10, false},
		{"trailing dash instead of sentinel", append(append([]string(nil), sample[:len(sample)-1]...), "-"), 10, false},
		{"single digit", []string{"S/S", "7", "S/S"}, 1, true},
		{"sentinels only", []string{"S/S", "S/S"}, 0, true},
		{"empty", []string{}, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := mustBuild(t, tt.labels, WithMinDigits(tt.minDigits))
			assert.Equal(t, tt.want, b.IsValid())

			_, hasCheck := b.CheckChar()
			assert.False(t, hasCheck, "check char must be absent without check mode")
		})
	}
}

func TestBarcode_DefaultMinDigits(t *testing.T) {
	b := mustBuild(t, []string{"S/S", "3", "S/S"})
	assert.Equal(t, 1, b.MinDigits())
	assert.False(t, b.UseCheck())
	assert.True(t, b.IsValid())
}

func TestBarcode_CheckMode(t *testing.T) {
	b := mustBuild(t, sample, WithCheck(true))

	c, ok := b.CheckChar()
	require.True(t, ok)
	assert.Equal(t, "6", c)

	_, computed := b.Checksum()
	assert.False(t, computed, "checksum must be deferred until IsValid")

	assert.True(t, b.IsValid())

	expected, computed := b.Checksum()
	require.True(t, computed)
	assert.Equal(t, 6, expected)
}

func TestBarcode_CheckModeWrongDigit(t *testing.T) {
	b := mustBuild(t, withCheckChar("5"), WithCheck(true))

	c, ok := b.CheckChar()
	require.True(t, ok)
	assert.Equal(t, "5", c)
	assert.False(t, b.IsValid())
}

func TestBarcode_CheckModeIgnoresMinDigits(t *testing.T) {
	b := mustBuild(t, sample, WithCheck(true), WithMinDigits(3))
	assert.True(t, b.IsValid())
}

func TestBarcode_CheckModeStructuralFailures(t *testing.T) {
	tests := []struct {
		name   string
		labels []string
	}{
		{"empty", []string{}},
		{"one symbol", []string{"S/S"}},
		{"two symbols", []string{"S/S", "S/S"}},
		{"three symbols", []string{"S/S", "1", "S/S"}},
		{"missing leading sentinel", sample[1:]},
		{"missing trailing sentinel", sample[:len(sample)-1]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := mustBuild(t, tt.labels, WithCheck(true))

			_, ok := b.CheckChar()
			assert.False(t, ok)
			assert.False(t, b.IsValid())
			assert.Zero(t, b.checksumRuns)
		})
	}
}

func TestBarcode_CheckCharMustBeDigit(t *testing.T) {
	for _, c := range []string{Dash, StartStop} {
		t.Run(c, func(t *testing.T) {
			b := mustBuild(t, withCheckChar(c), WithCheck(true))

			_, ok := b.CheckChar()
			assert.False(t, ok)
			assert.False(t, b.IsValid())
			assert.Zero(t, b.checksumRuns, "checksum must not run")
		})
	}
}

func TestBarcode_MinimalCheckedBarcode(t *testing.T) {
	// One data symbol "1" has weight 1: sum 1, expected 11 - 0 = 11.
	b := mustBuild(t, []string{"S/S", "1", "1", "S/S"}, WithCheck(true))
	assert.False(t, b.IsValid())

	expected, ok := b.Checksum()
	require.True(t, ok)
	assert.Equal(t, 11, expected)
}

func TestBarcode_ExpectedCheckAboveNineNeverMatches(t *testing.T) {
	// Data "0": sum 0, expected 11. No digit check character can match.
	for d := 0; d <= 9; d++ {
		c := string(rune('0' + d))
		b := mustBuild(t, []string{"S/S", "0", c, "S/S"}, WithCheck(true))
		assert.False(t, b.IsValid(), "check %s", c)
	}
}

func TestBarcode_ChecksumMatches(t *testing.T) {
	// Eleven "9"s weighted 11..1: sum 9*66 = 594, 594/11 = 54, 54 % 11 = 10,
	// expected 1.
	labels := []string{"S/S"}
	for range 11 {
		labels = append(labels, "9")
	}
	labels = append(labels, "1", "S/S")

	b := mustBuild(t, labels, WithCheck(true))
	assert.True(t, b.IsValid())
}

func TestBarcode_SentinelInDataFailsChecksum(t *testing.T) {
	labels := []string{"S/S", "1", "S/S", "3", "6", "S/S"}
	b := mustBuild(t, labels, WithCheck(true))

	assert.False(t, b.IsValid())
	_, computed := b.Checksum()
	assert.False(t, computed)
	assert.Equal(t, 1, b.checksumRuns)
}

func TestBarcode_UnknownSymbolInData(t *testing.T) {
	symbols := mustSymbols(t, "S/S", "1", "2", "6", "S/S")
	symbols[2] = Symbol{1, 1, 1, 1, 1, 1}

	b, err := New(symbols, WithCheck(true))
	require.NoError(t, err)

	ok, err := b.Validate()
	require.ErrorIs(t, err, ErrUnknownSymbol)
	assert.False(t, ok)
	assert.Contains(t, err.Error(), "position 2")

	// Errors are not cached; the checksum is attempted again.
	_, err = b.Validate()
	require.ErrorIs(t, err, ErrUnknownSymbol)
	assert.Equal(t, 2, b.checksumRuns)
	assert.False(t, b.IsValid())

	_, err = b.DisplayString()
	require.ErrorIs(t, err, ErrUnknownSymbol)
}

func TestBarcode_UnknownCheckSymbol(t *testing.T) {
	symbols := mustSymbols(t, "S/S", "1", "2", "6", "S/S")
	symbols[3] = Symbol{0, 0, 0, 0, 0, 0}

	b, err := New(symbols, WithCheck(true))
	require.ErrorIs(t, err, ErrUnknownSymbol)
	assert.Nil(t, b)
	assert.Contains(t, err.Error(), "position 3")
}

func TestBarcode_UnknownSymbolWithoutCheck(t *testing.T) {
	symbols := mustSymbols(t, "S/S", "1", "2", "6", "S/S")
	symbols[3] = Symbol{0, 0, 0, 0, 0, 0}

	b, err := New(symbols, WithMinDigits(3))
	require.NoError(t, err, "structural mode decodes nothing")

	ok, err := b.Validate()
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = b.DisplayString()
	require.ErrorIs(t, err, ErrUnknownSymbol)
}

func TestBarcode_UnknownSymbolOutsideChecksumRange(t *testing.T) {
	// Frame failures are decided before any symbol is decoded.
	symbols := mustSymbols(t, "S/S", "1", "2", "6", "S/S")
	symbols[0] = Symbol{1, 1, 1, 1, 1, 1}

	b, err := New(symbols, WithCheck(true))
	require.NoError(t, err)
	ok, err := b.Validate()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBarcode_IsValidIdempotent(t *testing.T) {
	for _, labels := range [][]string{sample, withCheckChar("5")} {
		b := mustBuild(t, labels, WithCheck(true))

		first := b.IsValid()
		for range 5 {
			assert.Equal(t, first, b.IsValid())
		}
		assert.Equal(t, 1, b.checksumRuns)
	}
}

func TestBarcode_SetSymbolsUnknownCheckKeepsState(t *testing.T) {
	b := mustBuild(t, sample, WithCheck(true))
	require.True(t, b.IsValid())

	bad := mustSymbols(t, sample...)
	bad[len(bad)-2] = Symbol{1, 1, 1}
	require.ErrorIs(t, b.SetSymbols(bad), ErrUnknownSymbol)

	c, ok := b.CheckChar()
	require.True(t, ok)
	assert.Equal(t, "6", c)
	assert.True(t, b.IsValid())
	assert.Len(t, b.Symbols(), len(sample))
}

func TestBarcode_CachedResultMasksLaterCorruption(t *testing.T) {
	b := mustBuild(t, sample, WithCheck(true))
	require.True(t, b.IsValid())

	// Corrupt a data symbol in place; the cached verdict masks the error
	// the checksum would now raise.
	b.Symbols()[1] = Symbol{1, 1, 1, 1, 1, 1, 1}
	ok, err := b.Validate()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, b.checksumRuns)
}

func TestBarcode_SetSymbolsRederives(t *testing.T) {
	b := mustBuild(t, sample, WithCheck(true))
	require.True(t, b.IsValid())

	require.NoError(t, b.SetSymbols(mustSymbols(t, withCheckChar("5")...)))
	c, ok := b.CheckChar()
	require.True(t, ok)
	assert.Equal(t, "5", c)
	assert.False(t, b.IsValid())
	assert.Equal(t, 2, b.checksumRuns)

	require.NoError(t, b.SetSymbols(mustSymbols(t, "S/S", "1")))
	_, ok = b.CheckChar()
	assert.False(t, ok)
	_, computed := b.Checksum()
	assert.False(t, computed)
	assert.False(t, b.IsValid())
}

func TestBarcode_DisplayString(t *testing.T) {
	b := mustBuild(t, sample)

	s, err := b.DisplayString()
	require.NoError(t, err)
	assert.Equal(t, "S/S, 1, 2, 3, 4, -, 5, 6, 7, 8, 6, S/S", s)
	assert.Equal(t, s, b.String())
}

func TestBarcode_DisplayStringEmpty(t *testing.T) {
	b, err := New(nil)
	require.NoError(t, err)
	s, err := b.DisplayString()
	require.NoError(t, err)
	assert.Empty(t, s)
}

func TestBarcode_DisplayStringUnknownSymbol(t *testing.T) {
	symbols := mustSymbols(t, "S/S", "1", "S/S")
	symbols[1] = Symbol{1}

	b, err := New(symbols)
	require.NoError(t, err)
	_, err = b.DisplayString()
	require.ErrorIs(t, err, ErrUnknownSymbol)
	assert.Contains(t, err.Error(), "position 1")
	assert.Contains(t, b.String(), "invalid code11")
}

func TestFromCharacters_UnknownCharacterAborts(t *testing.T) {
	b, err := FromCharacters([]string{"S/S", "1", "X", "S/S"})
	require.ErrorIs(t, err, ErrUnknownCharacter)
	assert.Nil(t, b)
	assert.Contains(t, err.Error(), "position 2")
}

func TestFromCharacters_EncodesSymbols(t *testing.T) {
	b := mustBuild(t, sample)
	require.Len(t, b.Symbols(), len(sample))
	for i, sym := range b.Symbols() {
		label, err := SymbolToChar(sym)
		require.NoError(t, err)
		assert.Equal(t, sample[i], label)
	}
}

func TestBarcode_ImplementsInterface(t *testing.T) {
	var bc barcode.Barcode = mustBuild(t, sample)
	assert.Equal(t, barcode.FormatCode11, bc.Format())

	cc, ok := bc.(barcode.CheckCharacterer)
	require.True(t, ok)
	_, has := cc.CheckChar()
	assert.False(t, has)
}

func TestWithOptions(t *testing.T) {
	b := mustBuild(t, sample, WithOptions(barcode.Options{UseCheck: true, MinDigits: 4}))
	assert.True(t, b.UseCheck())
	assert.Equal(t, 4, b.MinDigits())
	assert.True(t, b.IsValid())
}

func TestWeightedSum(t *testing.T) {
	data := mustSymbols(t, "1", "2", "3", "4", "-", "5", "6", "7", "8")
	sum, ok, err := weightedSum(data)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 180, sum)

	sum, ok, err = weightedSum(nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Zero(t, sum)

	_, ok, err = weightedSum(mustSymbols(t, "1", "S/S"))
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = weightedSum([]Symbol{{1, 0, 1}})
	require.ErrorIs(t, err, ErrUnknownSymbol)
}

func TestExpectedCheck(t *testing.T) {
	tests := []struct {
		sum  int
		want int
	}{
		{0, 11},
		{10, 11},
		{11, 10},
		{180, 6},
		{121, 11},
		{120, 1},
		{594, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, expectedCheck(tt.sum), "sum %d", tt.sum)
	}
}

func TestBarcode_Fixtures(t *testing.T) {
	for _, f := range testutil.LoadFixtures(t) {
		t.Run(f.Name, func(t *testing.T) {
			b := mustBuild(t, f.Labels, WithCheck(f.UseCheck), WithMinDigits(f.MinDigits))
			assert.Equal(t, f.Valid, b.IsValid())

			c, ok := b.CheckChar()
			assert.Equal(t, f.CheckChar != "", ok)
			assert.Equal(t, f.CheckChar, c)
		})
	}
}
