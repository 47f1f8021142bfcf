package utils

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/meal-manager/backend/internal/domain"
)

func TestParseDateRangeParams(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		want    domain.DateRange
		wantErr string
	}{
		{"missing", "", domain.DateRange{}, ""},
		{
			"valid",
			"startDate=2024-06-10&endDate=2024-06-16",
			domain.DateRange{Start: time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), End: time.Date(2024, 6, 16, 0, 0, 0, 0, time.UTC)},
			"",
		},
		{"only start", "startDate=2024-06-10", domain.DateRange{}, "必须同时提供"},
		{"bad format", "startDate=2024/06/10&endDate=2024-06-16", domain.DateRange{}, "startDate"},
		{"inverted", "startDate=2024-06-16&endDate=2024-06-10", domain.DateRange{}, "不能早于"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, err := url.ParseQuery(tt.query)
			require.NoError(t, err)

			got, err := ParseDateRangeParams(query)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseMenuCSVRecord(t *testing.T) {
	menu, err := ParseMenuCSVRecord([]string{"2024-06-10", "Lunch", "红烧肉", " 素炒时蔬 ", "", "vegetarian| halal"})
	require.NoError(t, err)
	assert.Equal(t, domain.MealSlotLunch, menu.MealSlot)
	assert.Equal(t, "红烧肉", menu.MainDish)
	require.NotNil(t, menu.AlternativeDish)
	assert.Equal(t, "素炒时蔬", *menu.AlternativeDish)
	assert.Nil(t, menu.Dessert)
	assert.Equal(t, []string{"vegetarian", "halal"}, menu.SpecialDietTags)

	_, err = ParseMenuCSVRecord([]string{"2024-06-10", "supper", "红烧肉"})
	assert.Error(t, err)

	_, err = ParseMenuCSVRecord([]string{"2024-06-10", "lunch"})
	assert.Error(t, err)

	_, err = ParseMenuCSVRecord([]string{"2024-06-10", "lunch", " "})
	assert.Error(t, err)
}

func TestGenerateQRToken(t *testing.T) {
	first, err := GenerateQRToken()
	require.NoError(t, err)
	second, err := GenerateQRToken()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(first, "mq_"))
	assert.NotEqual(t, first, second)
}

func TestGenerateRandomMenuItem(t *testing.T) {
	date := time.Date(2024, 6, 10, 15, 30, 0, 0, time.UTC)
	for _, slot := range domain.MealSlots {
		menu := GenerateRandomMenuItem(date, slot)
		assert.Equal(t, slot, menu.MealSlot)
		assert.NotEmpty(t, menu.MainDish)
		assert.True(t, menu.IsOn(date))
		if menu.AlternativeDish != nil {
			assert.True(t, menu.HasAlternative())
		}
	}
}
