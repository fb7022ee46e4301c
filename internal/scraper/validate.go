package scraper

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Field labels scraped from the page arrive with site casing and spacing
// ("Business Name", "Typical Job Cost"). Construction normalizes them and
// ignores anything unrecognized, so markup drift that only adds or renames
// fields never fails validation.

var nonNumeric = regexp.MustCompile(`[^\d.]`)

// NormalizeFieldName lowercases a scraped label and replaces spaces with
// underscores.
func NormalizeFieldName(label string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(label)), " ", "_")
}

// ParsePriceRange parses a hyphen-separated price string such as
// "$500 - $5,000" into a (low, high) pair. An empty input yields a nil
// range, not an error; an open upper bound ("$500 -") yields a nil High.
func ParsePriceRange(raw string) (*PriceRange, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	parts := strings.SplitN(raw, "-", 2)
	var r PriceRange
	low, err := parsePricePart(parts[0])
	if err != nil {
		return nil, fmt.Errorf("price range %q: %w", raw, err)
	}
	r.Low = low
	if len(parts) == 2 {
		high, err := parsePricePart(parts[1])
		if err != nil {
			return nil, fmt.Errorf("price range %q: %w", raw, err)
		}
		r.High = high
	}
	if r.Low == nil && r.High == nil {
		return nil, nil
	}
	return &r, nil
}

func parsePricePart(part string) (*float64, error) {
	if strings.TrimSpace(part) == "" {
		return nil, nil
	}
	digits := nonNumeric.ReplaceAllString(part, "")
	if digits == "" {
		return nil, fmt.Errorf("no digits in %q", part)
	}
	v, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", part, err)
	}
	return &v, nil
}

// NewPropertyDetails builds PropertyDetails from a scraped label→value map.
// Labels are normalized before matching and unknown labels are dropped.
// A malformed price string zeroes the range; the returned error reports it
// so the caller can log, but the details remain usable.
func NewPropertyDetails(fields map[string]string) (PropertyDetails, error) {
	var d PropertyDetails
	var priceErr error
	for label, value := range fields {
		switch NormalizeFieldName(label) {
		case "address":
			d.Address = value
		case "business_name":
			d.BusinessName = value
		case "followers":
			d.Followers = value
		case "license_number":
			d.LicenseNumber = value
		case "phone_number":
			d.PhoneNumber = value
		case "typical_job_cost":
			d.TypicalJobCost, priceErr = ParsePriceRange(value)
		case "website":
			d.Website = value
		}
	}
	return d, priceErr
}

// NewPropertyReviews builds the aggregate review block from the scraped
// aspect-score map and the resolved review cards. Unparseable scores are
// left absent.
func NewPropertyReviews(scores map[string]string, cards []ReviewCard) PropertyReviews {
	r := PropertyReviews{Reviews: cards}
	if r.Reviews == nil {
		r.Reviews = []ReviewCard{}
	}
	for label, value := range scores {
		score, err := parseScore(value)
		if err != nil {
			continue
		}
		switch NormalizeFieldName(label) {
		case "communication":
			r.Communication = score
		case "value":
			r.Value = score
		case "work_quality":
			r.WorkQuality = score
		}
	}
	return r
}

func parseScore(raw string) (*float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return nil, fmt.Errorf("parse score %q: %w", raw, err)
	}
	return &v, nil
}

// NewReviewer builds a Reviewer from one users-mapping entry.
func NewReviewer(user map[string]any) Reviewer {
	return Reviewer{
		DisplayName:    CoerceString(user["displayName"]),
		IsProfessional: CoerceBool(user["isProfessional"]),
		ProfileImage:   CoerceString(user["profileImage"]),
	}
}

// NewReviewCard coerces one raw feed entry into a ReviewCard. A missing
// comment body or an uncoercible present field is a validation failure:
// the caller skips the entry and keeps the batch.
func NewReviewCard(entry map[string]any, reviewer Reviewer) (ReviewCard, error) {
	body, ok := entry["body"]
	if !ok {
		return ReviewCard{}, fmt.Errorf("review entry missing body")
	}
	card := ReviewCard{
		Reviewer:         reviewer,
		Comment:          CoerceString(body),
		RelationshipType: CoerceString(entry["relationship"]),
		ProjectDate:      CoerceString(entry["projectDate"]),
		ProjectPriceText: CoerceString(entry["projectPriceAsString"]),
		Status:           CoerceString(entry["status"]),
		IsLiked:          CoerceBool(entry["isLiked"]),
	}

	var err error
	if card.ProjectPrice, err = coerceOptionalFloat(entry["projectPrice"]); err != nil {
		return ReviewCard{}, fmt.Errorf("project price: %w", err)
	}
	if card.Rating, err = coerceOptionalFloat(entry["rating"]); err != nil {
		return ReviewCard{}, fmt.Errorf("rating: %w", err)
	}
	if card.CreatedAt, err = CoerceTime(entry["created"]); err != nil {
		return ReviewCard{}, fmt.Errorf("created: %w", err)
	}
	if card.UpdatedAt, err = CoerceTime(entry["modified"]); err != nil {
		return ReviewCard{}, fmt.Errorf("modified: %w", err)
	}
	if likes, lerr := coerceOptionalFloat(entry["numberOfLikes"]); lerr != nil {
		return ReviewCard{}, fmt.Errorf("likes: %w", lerr)
	} else if likes != nil {
		card.TotalLikes = int(*likes)
	}
	return card, nil
}

// CoerceString renders a decoded JSON scalar as a string; nil becomes "".
func CoerceString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	default:
		return fmt.Sprint(s)
	}
}

// CoerceBool interprets bools, numbers, and truthy strings; nil is false.
func CoerceBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case float64:
		return b != 0
	case string:
		parsed, err := strconv.ParseBool(b)
		return err == nil && parsed
	default:
		return false
	}
}

func coerceOptionalFloat(v any) (*float64, error) {
	switch n := v.(type) {
	case nil:
		return nil, nil
	case float64:
		out := n
		return &out, nil
	case string:
		if strings.TrimSpace(n) == "" {
			return nil, nil
		}
		out, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return nil, fmt.Errorf("not numeric: %q", n)
		}
		return &out, nil
	default:
		return nil, fmt.Errorf("unsupported numeric type %T", v)
	}
}

// timestampLayouts are tried in order for string timestamps from the feed.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// CoerceTime accepts unix seconds, unix milliseconds, and the feed's
// string layouts. Nil or empty input yields an absent timestamp.
func CoerceTime(v any) (*time.Time, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case float64:
		sec := int64(t)
		// Epoch milliseconds are 13 digits for current dates.
		if sec > 1e11 {
			ts := time.UnixMilli(sec).UTC()
			return &ts, nil
		}
		ts := time.Unix(sec, 0).UTC()
		return &ts, nil
	case string:
		if strings.TrimSpace(t) == "" {
			return nil, nil
		}
		for _, layout := range timestampLayouts {
			if ts, err := time.Parse(layout, t); err == nil {
				ts = ts.UTC()
				return &ts, nil
			}
		}
		return nil, fmt.Errorf("unrecognized timestamp %q", t)
	default:
		return nil, fmt.Errorf("unsupported timestamp type %T", v)
	}
}
