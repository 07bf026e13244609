package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want Date
		ok   bool
	}{
		{"05/06/2025", Date{Day: 5, Month: 6, Year: 2025}, true},
		{"5/6/2025", Date{Day: 5, Month: 6, Year: 2025}, true},
		{"xx/06/2025", Date{Day: 0, Month: 6, Year: 2025}, true},
		{"05/jun/2025", Date{Day: 5, Month: 0, Year: 2025}, true},
		{"05/06", Date{}, false},
		{"05/06/2025/1", Date{}, false},
		{"2025-06-05", Date{}, false},
		{"", Date{}, false},
	}
	for _, tc := range cases {
		got, ok := ParseDate(tc.in)
		require.Equal(t, tc.ok, ok, tc.in)
		require.Equal(t, tc.want, got, tc.in)
	}
}

func TestDateIn(t *testing.T) {
	d, ok := ParseDate("05/06/2025")
	require.True(t, ok)
	require.True(t, d.In(2025, 6))
	require.False(t, d.In(2025, 7))
	require.False(t, d.In(2024, 6))
	require.Equal(t, "05/06/2025", d.String())
}

func TestFormatDate(t *testing.T) {
	require.Equal(t, "05/06/2025", FormatDate(time.Date(2025, 6, 5, 23, 0, 0, 0, time.UTC)))
	require.NoError(t, ValidateDate(FormatDate(time.Now())))
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory("alimentación")
	require.NoError(t, err)
	require.Equal(t, Food, c)

	c, err = ParseCategory("todas")
	require.NoError(t, err)
	require.Equal(t, AllCategories, c)
	require.True(t, c.Matches(Housing))
	require.False(t, Food.Matches(Housing))

	_, err = ParseCategory("Viajes")
	require.ErrorIs(t, err, ErrInvalidCategory)
	require.Len(t, Categories(), 9)
}
