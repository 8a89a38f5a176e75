package contacts

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/MrEthical07/goContacts/metrics"
	"go.uber.org/zap"
)

// MaxBirthdayWindow bounds the look-ahead of Upcoming.
const MaxBirthdayWindow = 366

var ErrInvalidWindow = errors.New("days must be between 0 and 366")

// Repository persists contacts. Every method is scoped to an owner.
type Repository interface {
	Create(ctx context.Context, c Contact) (Contact, error)
	Get(ctx context.Context, ownerID, id int64) (Contact, error)
	List(ctx context.Context, ownerID int64, page Page) ([]Contact, error)
	Search(ctx context.Context, ownerID int64, q string) ([]Contact, error)
	All(ctx context.Context, ownerID int64) ([]Contact, error)
	Update(ctx context.Context, c Contact) (Contact, error)
	Delete(ctx context.Context, ownerID, id int64) (Contact, error)
}

type Service struct {
	repo    Repository
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

func NewService(repo Repository, m *metrics.Metrics, logger *zap.Logger, now func() time.Time) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &Service{repo: repo, metrics: m, logger: logger.Named("contacts"), now: now}
}

func (s *Service) Create(ctx context.Context, ownerID int64, c Contact) (Contact, error) {
	c.OwnerID = ownerID
	created, err := s.repo.Create(ctx, c)
	if err != nil {
		return Contact{}, err
	}
	s.metrics.Inc(metrics.ContactCreated)
	s.logger.Debug("contact created", zap.Int64("owner_id", ownerID), zap.Int64("contact_id", created.ID))
	return created, nil
}

func (s *Service) Get(ctx context.Context, ownerID, id int64) (Contact, error) {
	return s.repo.Get(ctx, ownerID, id)
}

func (s *Service) List(ctx context.Context, ownerID int64, page Page) ([]Contact, error) {
	return s.repo.List(ctx, ownerID, page)
}

// Search returns all contacts when q is blank.
func (s *Service) Search(ctx context.Context, ownerID int64, q string) ([]Contact, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return s.repo.All(ctx, ownerID)
	}
	return s.repo.Search(ctx, ownerID, q)
}

func (s *Service) Update(ctx context.Context, ownerID, id int64, c Contact) (Contact, error) {
	c.OwnerID = ownerID
	c.ID = id
	return s.repo.Update(ctx, c)
}

func (s *Service) Delete(ctx context.Context, ownerID, id int64) (Contact, error) {
	c, err := s.repo.Delete(ctx, ownerID, id)
	if err != nil {
		return Contact{}, err
	}
	s.metrics.Inc(metrics.ContactDeleted)
	return c, nil
}

// Upcoming returns contacts whose next birthday falls within the next days
// days, today included, soonest first.
func (s *Service) Upcoming(ctx context.Context, ownerID int64, days int) ([]Contact, error) {
	if days < 0 || days > MaxBirthdayWindow {
		return nil, ErrInvalidWindow
	}
	all, err := s.repo.All(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	today := s.now().UTC()
	limit := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, days)

	type dated struct {
		c    Contact
		next time.Time
	}
	var hits []dated
	for _, c := range all {
		next := nextBirthday(c.Birthday, today)
		if !next.After(limit) {
			hits = append(hits, dated{c: c, next: next})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].next.Before(hits[j].next) })

	out := make([]Contact, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.c)
	}
	return out, nil
}
