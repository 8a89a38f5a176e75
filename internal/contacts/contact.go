package contacts

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound  = errors.New("contact not found")
	ErrDuplicate = errors.New("contact with this email or phone number already exists")
)

const dateLayout = "2006-01-02"

// Date is a calendar date encoded as YYYY-MM-DD.
type Date struct {
	time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return Date{t}, nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	parsed, err := ParseDate(strings.Trim(string(b), `"`))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

type Contact struct {
	ID             int64  `json:"id"`
	OwnerID        int64  `json:"-"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Email          string `json:"email"`
	PhoneNumber    string `json:"phone_number"`
	Birthday       Date   `json:"birthday"`
	AdditionalData string `json:"additional_data,omitempty"`
}

// Page selects a slice of a listing.
type Page struct {
	Skip  int
	Limit int
}

const (
	DefaultLimit = 100
	MaxLimit     = 500
)

func (p Page) normalize() Page {
	if p.Skip < 0 {
		p.Skip = 0
	}
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

// nextBirthday returns the first anniversary of birthday on or after today.
// February 29 falls on February 28 in common years.
func nextBirthday(birthday Date, today time.Time) time.Time {
	today = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	for year := today.Year(); ; year++ {
		month, day := birthday.Month(), birthday.Day()
		if month == time.February && day == 29 && !isLeap(year) {
			day = 28
		}
		next := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
		if !next.Before(today) {
			return next
		}
	}
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}
