package time_parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ParseTimestamp_WithSupportedFormats_ReturnsUTC(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected time.Time
	}{
		{
			name:     "RFC3339",
			input:    "2023-12-25T15:30:45Z",
			expected: time.Date(2023, 12, 25, 15, 30, 45, 0, time.UTC),
		},
		{
			name:     "RFC3339 with offset",
			input:    "2023-12-25T15:30:45+02:00",
			expected: time.Date(2023, 12, 25, 13, 30, 45, 0, time.UTC),
		},
		{
			name:     "RFC3339 with nanoseconds",
			input:    "2023-12-25T15:30:45.123456789Z",
			expected: time.Date(2023, 12, 25, 15, 30, 45, 123456789, time.UTC),
		},
		{
			name:     "ISO without zone",
			input:    "2023-12-25T15:30:45",
			expected: time.Date(2023, 12, 25, 15, 30, 45, 0, time.UTC),
		},
		{
			name:     "space separated",
			input:    "2023-12-25 15:30:45",
			expected: time.Date(2023, 12, 25, 15, 30, 45, 0, time.UTC),
		},
		{
			name:     "date only",
			input:    "2023-12-25",
			expected: time.Date(2023, 12, 25, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "unix seconds",
			input:    "1703518245",
			expected: time.Date(2023, 12, 25, 15, 30, 45, 0, time.UTC),
		},
		{
			name:     "unix milliseconds",
			input:    "1703518245123",
			expected: time.Date(2023, 12, 25, 15, 30, 45, 123000000, time.UTC),
		},
		{
			name:     "surrounding spaces",
			input:    "  2023-12-25T15:30:45Z ",
			expected: time.Date(2023, 12, 25, 15, 30, 45, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseTimestamp(tt.input)
			require.NoError(t, err)
			assert.True(t, tt.expected.Equal(result), "expected %v, got %v", tt.expected, result)
			assert.Equal(t, time.UTC, result.Location())
		})
	}
}

func Test_ParseTimestamp_WithGarbage_ReturnsError(t *testing.T) {
	for _, input := range []string{"", "yesterday", "25/12/2023", "2023-13-45"} {
		_, err := ParseTimestamp(input)
		assert.Error(t, err, "input %q", input)
	}
}

func Test_ParseOptionalTimestamp_WhenEmpty_ReturnsNil(t *testing.T) {
	result, err := ParseOptionalTimestamp("  ")
	require.NoError(t, err)
	assert.Nil(t, result)

	result, err = ParseOptionalTimestamp("2024-01-01")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 2024, result.Year())

	_, err = ParseOptionalTimestamp("soon")
	assert.Error(t, err)
}
