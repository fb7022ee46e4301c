package extract

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyBadges(t *testing.T) {
	b := ClassifyBadges([]string{
		"Acme Builders",
		"Verified License",
		"4.9",
		"General Contractors",
		"12 Reviews",
		"3 Hires on Houzz",
		"Responds Quickly",
	})
	require.True(t, b.VerifiedLicense)
	require.True(t, b.RespondsQuickly)
	require.False(t, b.PayOnline)
	require.NotNil(t, b.HiresOnHouzz)
	require.Equal(t, 3, *b.HiresOnHouzz)
	require.Nil(t, b.VerifiedHires)
	require.Equal(t, 12, b.TotalReviews)
	require.Equal(t, []string{"Acme Builders", "4.9", "General Contractors"}, b.Remainder)
}

func TestClassifyBadgesOrderIndependent(t *testing.T) {
	forward := ClassifyBadges([]string{"Name", "Pay Online", "Verified License", "8 Reviews", "Cat"})
	reversed := ClassifyBadges([]string{"Name", "8 Reviews", "Verified License", "Pay Online", "Cat"})
	require.Equal(t, forward.VerifiedLicense, reversed.VerifiedLicense)
	require.Equal(t, forward.PayOnline, reversed.PayOnline)
	require.Equal(t, forward.TotalReviews, reversed.TotalReviews)
	require.Equal(t, forward.Remainder, reversed.Remainder)
}

func TestClassifyBadgesAbsentOptionals(t *testing.T) {
	b := ClassifyBadges([]string{"Name", "Cat"})
	require.Nil(t, b.HiresOnHouzz)
	require.Nil(t, b.VerifiedHires)
	require.Equal(t, 0, b.TotalReviews)
	require.False(t, b.VerifiedLicense)
}

func TestClassifyBadgesVerifiedHireBeforeReviews(t *testing.T) {
	// "Verified Hire" must consume its string before "Reviews" runs, or a
	// combined badge would be double-counted.
	b := ClassifyBadges([]string{"Name", "2 Verified Hires", "40 Reviews", "Cat"})
	require.NotNil(t, b.VerifiedHires)
	require.Equal(t, 2, *b.VerifiedHires)
	require.Equal(t, 40, b.TotalReviews)
}

func TestDecodeRemainderWithRating(t *testing.T) {
	info, err := DecodeRemainder([]string{"Acme Builders", "4.9", "General Contractors"})
	require.NoError(t, err)
	require.Equal(t, "Acme Builders", info.Title)
	require.Equal(t, 4.9, info.Rating)
	require.Equal(t, "General Contractors", info.Category)
}

func TestDecodeRemainderNoRating(t *testing.T) {
	info, err := DecodeRemainder([]string{"Acme Builders", "General Contractor"})
	require.NoError(t, err)
	require.Equal(t, "Acme Builders", info.Title)
	require.Equal(t, "General Contractor", info.Category)
	require.Equal(t, 0.0, info.Rating)
}

func TestDecodeRemainderRatingNotSecondToken(t *testing.T) {
	info, err := DecodeRemainder([]string{"Acme Builders", "Serving Austin", "5", "General Contractor"})
	require.NoError(t, err)
	require.Equal(t, 5.0, info.Rating)
	require.Equal(t, "General Contractor", info.Category)
}

func TestDecodeRemainderTooShort(t *testing.T) {
	_, err := DecodeRemainder([]string{"Acme Builders"})
	require.Error(t, err)

	_, err = DecodeRemainder(nil)
	require.Error(t, err)
}

func TestDecodeRemainderRatingWithoutCategory(t *testing.T) {
	_, err := DecodeRemainder([]string{"Acme Builders", "4.5"})
	require.Error(t, err)
}
