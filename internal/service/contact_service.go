package service

import (
	"context"
	"time"

	"github.com/iliyamo/contact-book/internal/apperr"
	"github.com/iliyamo/contact-book/internal/birthday"
	"github.com/iliyamo/contact-book/internal/model"
)

// Page limits of contact listings.
const (
	DefaultLimit = 100
	MaxLimit     = 100
)

// ContactStore persists contacts scoped to an owner.  Lookups of a missing
// or foreign contact return nil and no error.
type ContactStore interface {
	List(ctx context.Context, owner uint64, q model.ContactQuery) ([]*model.Contact, error)
	Get(ctx context.Context, owner, id uint64) (*model.Contact, error)
	Create(ctx context.Context, owner uint64, f model.ContactFields) (*model.Contact, error)
	Update(ctx context.Context, owner, id uint64, p model.ContactPatch) (*model.Contact, error)
	Delete(ctx context.Context, owner, id uint64) (*model.Contact, error)
	ListWithBirthdayIn(ctx context.Context, owner uint64, ranges []birthday.Range) ([]*model.Contact, error)
}

// ContactService implements the address book of one user.
type ContactService struct {
	store ContactStore
}

func NewContactService(store ContactStore) *ContactService {
	return &ContactService{store: store}
}

var errContactNotFound = apperr.NotFound("Contact not found")

// List returns a page of the owner's contacts.  Negative offsets are
// clamped to zero and the limit to [1, MaxLimit].
func (s *ContactService) List(ctx context.Context, owner uint64, q model.ContactQuery) ([]*model.Contact, error) {
	if q.Offset < 0 {
		q.Offset = 0
	}
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	out, err := s.store.List(ctx, owner, q)
	if err != nil {
		return nil, apperr.Internal("could not list contacts", err)
	}
	return out, nil
}

// Get returns one contact of the owner.
func (s *ContactService) Get(ctx context.Context, owner, id uint64) (*model.Contact, error) {
	c, err := s.store.Get(ctx, owner, id)
	if err != nil {
		return nil, apperr.Internal("could not load contact", err)
	}
	if c == nil {
		return nil, errContactNotFound
	}
	return c, nil
}

// Create validates f and stores a new contact for the owner.
func (s *ContactService) Create(ctx context.Context, owner uint64, f model.ContactFields) (*model.Contact, error) {
	if err := validateContactFields(&f); err != nil {
		return nil, err
	}
	c, err := s.store.Create(ctx, owner, f)
	if err != nil {
		return nil, apperr.Internal("could not create contact", err)
	}
	return c, nil
}

// Update applies a partial patch.  An empty patch is valid and only bumps
// updated_at.
func (s *ContactService) Update(ctx context.Context, owner, id uint64, p model.ContactPatch) (*model.Contact, error) {
	if err := validateContactPatch(&p); err != nil {
		return nil, err
	}
	c, err := s.store.Update(ctx, owner, id, p)
	if err != nil {
		return nil, apperr.Internal("could not update contact", err)
	}
	if c == nil {
		return nil, errContactNotFound
	}
	return c, nil
}

// Delete removes a contact and returns it.  Deleting it again is NotFound.
func (s *ContactService) Delete(ctx context.Context, owner, id uint64) (*model.Contact, error) {
	c, err := s.store.Delete(ctx, owner, id)
	if err != nil {
		return nil, apperr.Internal("could not delete contact", err)
	}
	if c == nil {
		return nil, errContactNotFound
	}
	return c, nil
}

// UpcomingBirthdays returns the owner's contacts whose birthday recurs in
// the seven days starting on today.  The store narrows the rows by month and
// day ranges; Filter applies the exact rule, including the February 29
// fallback.
func (s *ContactService) UpcomingBirthdays(ctx context.Context, owner uint64, today time.Time) ([]*model.Contact, error) {
	w := birthday.NewWindow(today)
	rows, err := s.store.ListWithBirthdayIn(ctx, owner, w.Ranges())
	if err != nil {
		return nil, apperr.Internal("could not list birthdays", err)
	}
	return birthday.Filter(rows, w), nil
}
