package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"houzz-pro-scraper/internal/metrics"
	"houzz-pro-scraper/internal/scraper"
)

// Feed substructure names. Both are located by recursive key search since
// their nesting depth varies across responses.
const (
	reviewsStoreKey = "ProfessionalReviewsStore"
	usersStoreKey   = "UserStore"
)

// parseReviewFeed decodes the reviews-feed JSON body and locates the
// reviews-by-id and users-by-id mappings anywhere in the nested document.
// The returned order holds the review ids as they appear in the feed
// object, which a decoded map cannot preserve on its own.
func parseReviewFeed(body []byte) (reviews map[string]any, order []string, users map[string]any, err error) {
	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, nil, nil, fmt.Errorf("decode reviews feed: %w", err)
	}
	reviews, err = storeData(payload, reviewsStoreKey)
	if err != nil {
		return nil, nil, nil, err
	}
	users, err = storeData(payload, usersStoreKey)
	if err != nil {
		return nil, nil, nil, err
	}
	order, err = orderedStoreIDs(body, reviewsStoreKey)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("scan review order: %w", err)
	}
	return reviews, order, users, nil
}

func storeData(payload any, key string) (map[string]any, error) {
	store, ok := NestedLookup(payload, key)
	if !ok {
		return nil, fmt.Errorf("feed has no %s", key)
	}
	storeMap, ok := store.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s is not an object", key)
	}
	data, ok := storeMap["data"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s has no data mapping", key)
	}
	return data, nil
}

// orderedStoreIDs re-reads the raw body token by token and collects the
// keys of the store's "data" object in encounter order. Only the first
// matching data object is captured.
func orderedStoreIDs(body []byte, storeKey string) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	var (
		ids  []string
		done bool
	)
	var walk func(parentKey, key string) error
	walk = func(parentKey, key string) error {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		delim, ok := tok.(json.Delim)
		if !ok {
			return nil
		}
		switch delim {
		case '{':
			capture := !done && parentKey == storeKey && key == "data"
			if capture {
				done = true
			}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return err
				}
				childKey, _ := keyTok.(string)
				if capture {
					ids = append(ids, childKey)
				}
				if err := walk(key, childKey); err != nil {
					return err
				}
			}
			_, err = dec.Token()
			return err
		case '[':
			for dec.More() {
				if err := walk(parentKey, key); err != nil {
					return err
				}
			}
			_, err = dec.Token()
			return err
		}
		return nil
	}
	if err := walk("", ""); err != nil {
		return nil, err
	}
	return ids, nil
}

// buildReviewCards resolves each review entry against the users mapping
// and constructs the card sequence in feed order. An entry whose author is
// missing or whose fields fail coercion is logged and skipped; the rest of
// the batch survives.
func buildReviewCards(reviews map[string]any, order []string, users map[string]any, logger *zap.Logger) []scraper.ReviewCard {
	cards := make([]scraper.ReviewCard, 0, len(order))
	for _, id := range order {
		entry, ok := reviews[id].(map[string]any)
		if !ok {
			logger.Warn("review entry is not an object", zap.String("review_id", id))
			metrics.IncReviewsSkipped()
			continue
		}
		reviewer, err := resolveReviewer(entry, users)
		if err != nil {
			logger.Warn("skipping review", zap.String("review_id", id), zap.Error(err))
			metrics.IncReviewsSkipped()
			continue
		}
		card, err := scraper.NewReviewCard(entry, reviewer)
		if err != nil {
			logger.Warn("skipping review", zap.String("review_id", id), zap.Error(err))
			metrics.IncReviewsSkipped()
			continue
		}
		cards = append(cards, card)
	}
	return cards
}

func resolveReviewer(entry map[string]any, users map[string]any) (scraper.Reviewer, error) {
	rawID, ok := entry["userId"]
	if !ok {
		return scraper.Reviewer{}, fmt.Errorf("review has no userId")
	}
	key, err := userKey(rawID)
	if err != nil {
		return scraper.Reviewer{}, err
	}
	user, ok := users[key].(map[string]any)
	if !ok {
		return scraper.Reviewer{}, fmt.Errorf("user %s not in users mapping", key)
	}
	return scraper.NewReviewer(user), nil
}

// userKey coerces the review's numeric user id to the users mapping's
// string key type.
func userKey(rawID any) (string, error) {
	switch id := rawID.(type) {
	case float64:
		return strconv.FormatInt(int64(id), 10), nil
	case string:
		return id, nil
	default:
		return "", fmt.Errorf("unsupported userId type %T", rawID)
	}
}
