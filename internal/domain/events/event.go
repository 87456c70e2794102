package events

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/Togather-Foundation/eventhub/internal/sanitize"
	"github.com/Togather-Foundation/eventhub/internal/validation"
)

var (
	ErrNotFound  = errors.New("event not found")
	ErrForbidden = errors.New("not permitted to modify this event")
)

// CategoryAll disables the category filter when listing.
const CategoryAll = "All"

var Categories = []string{"Conference", "Workshop", "Festival", "Networking", "Webinar", "Social"}

// Event is the joined read view: the event row, its creator and its live
// registration count.
type Event struct {
	ID                int64     `json:"id"`
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	Category          string    `json:"category"`
	Date              string    `json:"date"`
	Time              string    `json:"time"`
	Location          string    `json:"location"`
	Price             float64   `json:"price"`
	ExpectedAttendees int       `json:"expected_attendees"`
	CreatedBy         int64     `json:"created_by"`
	CreatorUsername   string    `json:"creator_username"`
	CreatorName       string    `json:"creator_name"`
	RegisteredCount   int       `json:"registered_count"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Input is the client payload for create and update. Every field is required
// on both.
type Input struct {
	Title             string   `json:"title" validate:"required,min=3,max=200"`
	Description       string   `json:"description" validate:"required,min=10"`
	Category          string   `json:"category" validate:"required,oneof=Conference Workshop Festival Networking Webinar Social"`
	Date              string   `json:"date" validate:"required,isodate,notpast"`
	Time              string   `json:"time" validate:"required,clock"`
	Location          string   `json:"location" validate:"required,min=3,max=200"`
	Price             *float64 `json:"price" validate:"required,gte=0,lte=99999999.99"`
	ExpectedAttendees *int     `json:"expected_attendees" validate:"required,gte=1,lte=2147483647"`
}

var inputMessages = validation.Messages{
	"title":                  "Event title must be between 3 and 200 characters",
	"description":            "Event description must be at least 10 characters",
	"category":               "Invalid event category",
	"date":                   "Please provide a valid date",
	"date.notpast":           "Event date cannot be in the past",
	"time":                   "Please provide a valid time in HH:MM format",
	"location":               "Location must be between 3 and 200 characters",
	"price":                  "Price must be a positive number",
	"price.lte":              "Price must not exceed 99999999.99",
	"expected_attendees":     "Expected attendees must be at least 1",
	"expected_attendees.lte": "Expected attendees must not exceed 2147483647",
}

// Draft is a validated Input ready for storage.
type Draft struct {
	Title             string
	Description       string
	Category          string
	Date              string
	Time              string
	Location          string
	Price             float64
	ExpectedAttendees int
}

// Validate normalizes in and checks every field, reporting all failures at
// once.
func (in Input) Validate() (Draft, error) {
	in.Title = sanitize.Text(in.Title)
	in.Location = sanitize.Text(in.Location)
	in.Description = sanitize.Text(in.Description)
	in.Category = strings.TrimSpace(in.Category)
	in.Date = normalizeDate(in.Date)
	in.Time = normalizeClock(in.Time)

	if err := validation.Struct(in, inputMessages); err != nil {
		return Draft{}, err
	}

	return Draft{
		Title:             in.Title,
		Description:       in.Description,
		Category:          in.Category,
		Date:              in.Date,
		Time:              in.Time,
		Location:          in.Location,
		Price:             math.Round(*in.Price*100) / 100,
		ExpectedAttendees: *in.ExpectedAttendees,
	}, nil
}

// normalizeDate accepts full ISO 8601 timestamps and keeps the calendar date.
func normalizeDate(value string) string {
	value = strings.TrimSpace(value)
	if len(value) <= len(validation.DateLayout) {
		return value
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.Format(validation.DateLayout)
	}
	if t, err := time.Parse("2006-01-02T15:04:05", value); err == nil {
		return t.Format(validation.DateLayout)
	}
	return value
}

// normalizeClock drops a trailing ":SS" so stored "HH:MM:SS" values round-trip.
func normalizeClock(value string) string {
	value = strings.TrimSpace(value)
	if len(value) == len("15:04:05") && value[5] == ':' {
		return value[:5]
	}
	return value
}

// ListResult is one page of events plus the total number of matches.
type ListResult struct {
	Events []Event
	Total  int
}

// Repository is implemented by every storage backend. Missing rows are
// reported as ErrNotFound.
type Repository interface {
	Create(ctx context.Context, ownerID int64, draft Draft) (int64, error)
	GetByID(ctx context.Context, id int64) (Event, error)
	// Owner returns the creator of event id.
	Owner(ctx context.Context, id int64) (int64, error)
	Update(ctx context.Context, id int64, draft Draft) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filters Filters) (ListResult, error)
}

// Notifier receives catalog side effects. Implementations must not block.
type Notifier interface {
	EventCreated(ctx context.Context, creatorID int64, event Event)
}
