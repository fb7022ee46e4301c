package scraper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNormalizeFieldName(t *testing.T) {
	require.Equal(t, "typical_job_cost", NormalizeFieldName("Typical Job Cost"))
	require.Equal(t, "business_name", NormalizeFieldName("  Business Name "))
	require.Equal(t, "website", NormalizeFieldName("Website"))
}

func TestParsePriceRange(t *testing.T) {
	r, err := ParsePriceRange("$500 - $5,000")
	require.NoError(t, err)
	require.NotNil(t, r)
	require.NotNil(t, r.Low)
	require.Equal(t, 500.0, *r.Low)
	require.NotNil(t, r.High)
	require.Equal(t, 5000.0, *r.High)
}

func TestParsePriceRangeOpenUpperBound(t *testing.T) {
	r, err := ParsePriceRange("$500 -")
	require.NoError(t, err)
	require.NotNil(t, r)
	require.Equal(t, 500.0, *r.Low)
	require.Nil(t, r.High)
}

func TestParsePriceRangeEmpty(t *testing.T) {
	r, err := ParsePriceRange("")
	require.NoError(t, err)
	require.Nil(t, r)

	r, err = ParsePriceRange("   ")
	require.NoError(t, err)
	require.Nil(t, r)
}

func TestParsePriceRangeNoDigits(t *testing.T) {
	_, err := ParsePriceRange("call for pricing")
	require.Error(t, err)
}

func TestNewPropertyDetails(t *testing.T) {
	d, err := NewPropertyDetails(map[string]string{
		"Address":          "12 Main St",
		"Business Name":    "Acme Builders",
		"Followers":        "210",
		"License Number":   "C-36 998877",
		"Phone Number":     "(555) 010-2030",
		"Typical Job Cost": "$1,000 - $20,000",
		"Website":          "https://acme.example",
		"Certifications":   "ignored",
	})
	require.NoError(t, err)
	require.Equal(t, "12 Main St", d.Address)
	require.Equal(t, "Acme Builders", d.BusinessName)
	require.Equal(t, "C-36 998877", d.LicenseNumber)
	require.NotNil(t, d.TypicalJobCost)
	require.Equal(t, 1000.0, *d.TypicalJobCost.Low)
	require.Equal(t, 20000.0, *d.TypicalJobCost.High)
	require.Equal(t, "https://acme.example", d.Website)
}

func TestNewPropertyDetailsBadPriceStillUsable(t *testing.T) {
	d, err := NewPropertyDetails(map[string]string{
		"Business Name":    "Acme Builders",
		"Typical Job Cost": "contact us",
	})
	require.Error(t, err)
	require.Equal(t, "Acme Builders", d.BusinessName)
	require.Nil(t, d.TypicalJobCost)
}

func TestNewPropertyReviews(t *testing.T) {
	r := NewPropertyReviews(map[string]string{
		"Communication": "4.8",
		"Value":         "4.5",
		"Work Quality":  "5",
		"Punctuality":   "4.9",
	}, nil)
	require.NotNil(t, r.Communication)
	require.Equal(t, 4.8, *r.Communication)
	require.NotNil(t, r.Value)
	require.Equal(t, 4.5, *r.Value)
	require.NotNil(t, r.WorkQuality)
	require.Equal(t, 5.0, *r.WorkQuality)
	require.NotNil(t, r.Reviews)
	require.Empty(t, r.Reviews)
}

func TestNewPropertyReviewsUnparseableScoreAbsent(t *testing.T) {
	r := NewPropertyReviews(map[string]string{"Communication": "n/a"}, nil)
	require.Nil(t, r.Communication)
}

func TestNewReviewCard(t *testing.T) {
	reviewer := Reviewer{DisplayName: "Pat"}
	card, err := NewReviewCard(map[string]any{
		"body":                 "Great work, on time.",
		"relationship":         "Hired this pro",
		"projectDate":          "March 2024",
		"projectPrice":         float64(12000),
		"projectPriceAsString": "$12,000",
		"rating":               float64(5),
		"status":               "published",
		"created":              float64(1711929600),
		"modified":             "2024-04-02 10:00:00",
		"numberOfLikes":        float64(3),
		"isLiked":              true,
	}, reviewer)
	require.NoError(t, err)
	require.Equal(t, "Pat", card.Reviewer.DisplayName)
	require.Equal(t, "Great work, on time.", card.Comment)
	require.Equal(t, "Hired this pro", card.RelationshipType)
	require.NotNil(t, card.ProjectPrice)
	require.Equal(t, 12000.0, *card.ProjectPrice)
	require.NotNil(t, card.Rating)
	require.Equal(t, 5.0, *card.Rating)
	require.NotNil(t, card.CreatedAt)
	require.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), *card.CreatedAt)
	require.NotNil(t, card.UpdatedAt)
	require.Equal(t, 3, card.TotalLikes)
	require.True(t, card.IsLiked)
}

func TestNewReviewCardMissingBody(t *testing.T) {
	_, err := NewReviewCard(map[string]any{"rating": float64(4)}, Reviewer{})
	require.Error(t, err)
}

func TestNewReviewCardBadRating(t *testing.T) {
	_, err := NewReviewCard(map[string]any{
		"body":   "fine",
		"rating": "five stars",
	}, Reviewer{})
	require.Error(t, err)
}

func TestCoerceTime(t *testing.T) {
	ts, err := CoerceTime(float64(1711929600))
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), *ts)

	ts, err = CoerceTime(float64(1711929600000))
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), *ts)

	ts, err = CoerceTime("2024-04-01T00:00:00Z")
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), *ts)

	ts, err = CoerceTime("2024-04-01")
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), *ts)

	ts, err = CoerceTime(nil)
	require.NoError(t, err)
	require.Nil(t, ts)

	ts, err = CoerceTime("")
	require.NoError(t, err)
	require.Nil(t, ts)

	_, err = CoerceTime("yesterday")
	require.Error(t, err)

	_, err = CoerceTime(true)
	require.Error(t, err)
}

func TestCoerceScalars(t *testing.T) {
	require.Equal(t, "4.5", CoerceString(float64(4.5)))
	require.Equal(t, "true", CoerceString(true))
	require.Equal(t, "", CoerceString(nil))

	require.True(t, CoerceBool(true))
	require.True(t, CoerceBool(float64(1)))
	require.True(t, CoerceBool("true"))
	require.False(t, CoerceBool("nope"))
	require.False(t, CoerceBool(nil))
}
