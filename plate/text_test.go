package plate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"xyz-456!", "XYZ456"},
		{"ABC 123", "ABC123"},
		{"  ", ""},
		{"粤B12345", "B12345"},
		{"abc.def", "ABCDEF"},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, Format(tc.in), "Format(%q)", tc.in)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		text  string
		valid bool
	}{
		{"valid", "ABC123", true},
		{"too short", "AB12", false},
		{"too long", "ABCDEF123456", false},
		{"letters only", "ABCDEF", false},
		{"digits only", "123456", false},
		{"punctuation", "ABC-123", false},
		{"min length", "AB123", true},
		{"max length", "ABCDE12345", true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := Validate(tc.text, 5, 10)

			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidPlate)
			}
		})
	}
}

func TestParseAllowlist(t *testing.T) {
	t.Parallel()

	allow, err := ParseAllowlist("0-9A-Z")
	require.NoError(t, err)
	assert.Len(t, allow, 36)
	assert.True(t, allow['7'])
	assert.True(t, allow['Q'])
	assert.False(t, allow['q'])
	assert.False(t, allow['-'])

	def, err := ParseAllowlist(DefaultAllowlist)
	require.NoError(t, err)
	assert.Equal(t, allow, def)

	_, err = ParseAllowlist("Z-A")
	assert.Error(t, err)

	_, err = ParseAllowlist("")
	assert.Error(t, err)
}

func TestAllowlistFilter(t *testing.T) {
	t.Parallel()

	allow, err := ParseAllowlist("0-9A-Z")
	require.NoError(t, err)

	assert.Equal(t, "AB12", allow.Filter("A-b B·12"))
}

func TestCombine(t *testing.T) {
	t.Parallel()

	allow, err := ParseAllowlist(DefaultAllowlist)
	require.NoError(t, err)

	text, conf, ok := Combine([]Segment{
		{Text: "ab", Confidence: 0.8},
		{Text: "--", Confidence: 0.1},
		{Text: "123", Confidence: 0.6},
	}, allow)

	require.True(t, ok)
	assert.Equal(t, "AB123", text)
	assert.InDelta(t, 0.7, conf, 1e-9)

	_, _, ok = Combine([]Segment{{Text: "...", Confidence: 0.9}}, allow)
	assert.False(t, ok)

	_, _, ok = Combine(nil, allow)
	assert.False(t, ok)
}

func TestAverageConfidence(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0.0, AverageConfidence(nil))
	assert.InDelta(t, 0.5, AverageConfidence([]float64{0.25, 0.75}), 1e-9)
}
