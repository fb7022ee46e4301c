// Package extract turns irregular profile-page HTML and the reviews-feed
// JSON into the validated record graph.
package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Badges holds the six typed values classified out of a profile header's
// free-text badge strings, plus whatever strings were left unmatched, in
// their original relative order.
type Badges struct {
	VerifiedLicense bool
	RespondsQuickly bool
	PayOnline       bool
	HiresOnHouzz    *int
	VerifiedHires   *int
	TotalReviews    int
	Remainder       []string
}

var digitRun = regexp.MustCompile(`\d+`)

// badgeLabels are matched by substring, each consuming the first badge
// string that contains it. Order fixes which badge wins when one string
// could match two labels.
var badgeLabels = []string{
	"Verified License",
	"Responds Quickly",
	"Pay Online",
	"Hires on Houzz",
	"Verified Hire",
	"Reviews",
}

// ClassifyBadges classifies an ordered badge sequence. Boolean kinds are
// true iff their label appears; count kinds parse the first digit run of
// the matched string. Unmatched optional counts stay absent and the
// required review count defaults to zero.
func ClassifyBadges(chunks []string) Badges {
	var b Badges
	remaining := append([]string(nil), chunks...)
	for _, label := range badgeLabels {
		match, rest := takeFirstContaining(remaining, label)
		remaining = rest
		if match == "" {
			continue
		}
		switch label {
		case "Verified License":
			b.VerifiedLicense = true
		case "Responds Quickly":
			b.RespondsQuickly = true
		case "Pay Online":
			b.PayOnline = true
		case "Hires on Houzz":
			b.HiresOnHouzz = firstCount(match)
		case "Verified Hire":
			b.VerifiedHires = firstCount(match)
		case "Reviews":
			if n := firstCount(match); n != nil {
				b.TotalReviews = *n
			}
		}
	}
	b.Remainder = remaining
	return b
}

func takeFirstContaining(chunks []string, label string) (string, []string) {
	for i, chunk := range chunks {
		if strings.Contains(chunk, label) {
			return chunk, append(chunks[:i:i], chunks[i+1:]...)
		}
	}
	return "", chunks
}

func firstCount(chunk string) *int {
	digits := digitRun.FindString(chunk)
	if digits == "" {
		return nil
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return nil
	}
	return &n
}

// HeaderInfo is the labeled decoding of the badge remainder.
type HeaderInfo struct {
	Title    string
	Category string
	Rating   float64
}

var decimalToken = regexp.MustCompile(`^\d+(\.\d+)?$`)

// DecodeRemainder reads title, category, and an optional rating out of the
// classifier's remainder. The title is always the first token. A
// decimal-looking token among the rest is the rating and the token
// immediately after it is the category; with no rating token the second
// token is the category and the rating defaults to zero.
func DecodeRemainder(remainder []string) (HeaderInfo, error) {
	if len(remainder) < 2 {
		return HeaderInfo{}, fmt.Errorf("badge remainder has %d tokens, need title and category", len(remainder))
	}
	info := HeaderInfo{Title: remainder[0]}
	for i := 1; i < len(remainder); i++ {
		if !decimalToken.MatchString(remainder[i]) {
			continue
		}
		rating, err := strconv.ParseFloat(remainder[i], 64)
		if err != nil {
			break
		}
		if i+1 >= len(remainder) {
			return HeaderInfo{}, fmt.Errorf("rating token %q has no category after it", remainder[i])
		}
		info.Rating = rating
		info.Category = remainder[i+1]
		return info, nil
	}
	info.Category = remainder[1]
	return info, nil
}
