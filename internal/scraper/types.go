// Package scraper defines the core types and interfaces for the directory
// scraping engine: the typed record graph extracted from a professional's
// profile page and the contracts between fetch, extract, and persistence
// subsystems.
package scraper

import (
	"net/url"
	"strconv"
	"time"
)

// Reviewer identifies the author of one review. Value type, owned by
// exactly one ReviewCard.
type Reviewer struct {
	DisplayName    string `json:"display_name"`
	IsProfessional bool   `json:"is_professional"`
	ProfileImage   string `json:"profile_image,omitempty"`
}

// ReviewCard is one review resolved from the reviews feed.
type ReviewCard struct {
	Reviewer         Reviewer   `json:"reviewer"`
	Comment          string     `json:"comment"`
	RelationshipType string     `json:"relationship_type,omitempty"`
	ProjectDate      string     `json:"project_date,omitempty"`
	ProjectPrice     *float64   `json:"project_price,omitempty"`
	ProjectPriceText string     `json:"project_price_as_string,omitempty"`
	Rating           *float64   `json:"submitted_rating,omitempty"`
	Status           string     `json:"status,omitempty"`
	CreatedAt        *time.Time `json:"created_at,omitempty"`
	UpdatedAt        *time.Time `json:"updated_at,omitempty"`
	TotalLikes       int        `json:"total_likes"`
	IsLiked          bool       `json:"is_liked"`
}

// PriceRange is the (low, high) pair parsed from a hyphen-separated price
// string. Either bound may be absent.
type PriceRange struct {
	Low  *float64 `json:"low,omitempty"`
	High *float64 `json:"high,omitempty"`
}

// PropertyDetails holds the business-details section of a profile page.
type PropertyDetails struct {
	Address        string      `json:"address,omitempty"`
	BusinessName   string      `json:"business_name,omitempty"`
	Followers      string      `json:"followers,omitempty"`
	LicenseNumber  string      `json:"license_number,omitempty"`
	PhoneNumber    string      `json:"phone_number,omitempty"`
	TypicalJobCost *PriceRange `json:"typical_job_cost,omitempty"`
	Website        string      `json:"website,omitempty"`
}

// PropertyReviews aggregates per-aspect scores plus the ordered review
// sequence. Order follows the feed, not chronology.
type PropertyReviews struct {
	Communication *float64     `json:"communication,omitempty"`
	Value         *float64     `json:"value,omitempty"`
	WorkQuality   *float64     `json:"work_quality,omitempty"`
	Reviews       []ReviewCard `json:"reviews"`
}

// Property is the top-level record persisted per successfully parsed
// detail URL.
type Property struct {
	Title        string          `json:"title"`
	Category     string          `json:"category"`
	CompanyLogo  string          `json:"company_logo,omitempty"`
	Rating       float64         `json:"rating"`
	TotalReviews int             `json:"total_reviews"`
	Details      PropertyDetails `json:"property_details"`
	Reviews      PropertyReviews `json:"property_reviews"`
}

// ReviewFeedQuery is the parameter set for one profile's paginated reviews
// feed, derived from the detail page header.
type ReviewFeedQuery struct {
	ProID        string
	UserID       string
	FromItem     int
	ItemsPerPage int
	SortType     string
}

// Values renders the query in the feed endpoint's wire format.
func (q ReviewFeedQuery) Values() url.Values {
	sort := q.SortType
	if sort == "" {
		sort = "NEWEST"
	}
	perPage := q.ItemsPerPage
	if perPage <= 0 {
		perPage = 1024
	}
	return url.Values{
		"userId":        {q.UserID},
		"proId":         {q.ProID},
		"fromItem":      {strconv.Itoa(q.FromItem)},
		"itemsPerPage":  {strconv.Itoa(perPage)},
		"sortType":      {sort},
		"searchWord":    {""},
		"isPrivateView": {"undefined"},
	}
}

// CrawlRun is the metadata persisted per crawl invocation.
type CrawlRun struct {
	ID        string
	StartURL  string
	Pages     int
	StartedAt time.Time
}

// TaskStatus is the terminal state of one extraction task.
type TaskStatus string

// Task status values persisted in the record store.
const (
	TaskStatusSucceeded TaskStatus = "succeeded"
	TaskStatusFailed    TaskStatus = "failed"
)

// TaskOutcome is persisted per drained extraction task.
type TaskOutcome struct {
	RunID      string
	URL        string
	Status     TaskStatus
	ErrorText  string
	DurationMs int64
	FinishedAt time.Time
}
