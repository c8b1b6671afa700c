package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/contact-book/internal/birthday"
	"github.com/iliyamo/contact-book/internal/model"
)

const contactColumns = `id, user_id, first_name, last_name, email, phone_number, birthday, additional_info, created_at, updated_at`

// ContactRepo persists contacts.  Every statement filters on user_id, so a
// contact owned by someone else behaves exactly like a missing one.
type ContactRepo struct {
	db  *sql.DB
	now func() time.Time
}

// NewContactRepo constructs a ContactRepo with the given DB handle.
func NewContactRepo(db *sql.DB) *ContactRepo {
	return &ContactRepo{db: db, now: time.Now}
}

func scanContact(row interface{ Scan(...any) error }) (*model.Contact, error) {
	var (
		c    model.Contact
		bday sql.NullTime
		info sql.NullString
	)
	if err := row.Scan(&c.ID, &c.UserID, &c.FirstName, &c.LastName, &c.Email, &c.PhoneNumber,
		&bday, &info, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	if bday.Valid {
		b := bday.Time
		c.Birthday = &b
	}
	c.AdditionalInfo = info.String
	return &c, nil
}

func (r *ContactRepo) queryContacts(ctx context.Context, q string, args ...any) ([]*model.Contact, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*model.Contact, 0)
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// likePattern escapes the LIKE wildcards of s and wraps it for a substring
// match.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(s)) + "%"
}

// List returns a page of the owner's contacts ordered by id.  A non-empty
// search matches first name, last name, email or phone number, ignoring case.
func (r *ContactRepo) List(ctx context.Context, owner uint64, q model.ContactQuery) ([]*model.Contact, error) {
	var sb strings.Builder
	args := []any{owner}
	sb.WriteString("SELECT " + contactColumns + " FROM contacts WHERE user_id=?")
	if s := strings.TrimSpace(q.Search); s != "" {
		p := likePattern(s)
		sb.WriteString(" AND (LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(phone_number) LIKE ?)")
		args = append(args, p, p, p, p)
	}
	sb.WriteString(" ORDER BY id LIMIT ? OFFSET ?")
	args = append(args, q.Limit, q.Offset)

	out, err := r.queryContacts(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	return out, nil
}

// Get fetches one contact of the owner.  It returns nil, nil when the
// contact does not exist or belongs to another user.
func (r *ContactRepo) Get(ctx context.Context, owner, id uint64) (*model.Contact, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+contactColumns+" FROM contacts WHERE id=? AND user_id=?", id, owner)
	c, err := scanContact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get contact %d: %w", id, err)
	}
	return c, nil
}

// Create inserts a contact for the owner and returns the stored row.
func (r *ContactRepo) Create(ctx context.Context, owner uint64, f model.ContactFields) (*model.Contact, error) {
	const q = `INSERT INTO contacts (user_id, first_name, last_name, email, phone_number, birthday, additional_info, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := r.now().UTC().Truncate(time.Second)
	res, err := r.db.ExecContext(ctx, q, owner, f.FirstName, f.LastName, f.Email, f.PhoneNumber,
		nullDate(f.Birthday), nullString(f.AdditionalInfo), now, now)
	if err != nil {
		return nil, fmt.Errorf("insert contact: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert contact: %w", err)
	}
	return &model.Contact{
		ID:             uint64(id),
		UserID:         owner,
		FirstName:      f.FirstName,
		LastName:       f.LastName,
		Email:          f.Email,
		PhoneNumber:    f.PhoneNumber,
		Birthday:       f.Birthday,
		AdditionalInfo: f.AdditionalInfo,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// Update applies the non-nil fields of p and always bumps updated_at, so an
// empty patch still counts as a modification.  It returns nil, nil when the
// contact is not the owner's.
func (r *ContactRepo) Update(ctx context.Context, owner, id uint64, p model.ContactPatch) (*model.Contact, error) {
	sets := []string{"updated_at=?"}
	args := []any{r.now().UTC().Truncate(time.Second)}
	add := func(col string, v any) {
		sets = append(sets, col+"=?")
		args = append(args, v)
	}
	if p.FirstName != nil {
		add("first_name", *p.FirstName)
	}
	if p.LastName != nil {
		add("last_name", *p.LastName)
	}
	if p.Email != nil {
		add("email", *p.Email)
	}
	if p.PhoneNumber != nil {
		add("phone_number", *p.PhoneNumber)
	}
	if p.Birthday != nil {
		add("birthday", nullDate(p.Birthday))
	}
	if p.AdditionalInfo != nil {
		add("additional_info", nullString(*p.AdditionalInfo))
	}
	args = append(args, id, owner)

	q := "UPDATE contacts SET " + strings.Join(sets, ", ") + " WHERE id=? AND user_id=?"
	if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
		return nil, fmt.Errorf("update contact %d: %w", id, err)
	}
	// RowsAffected counts changed rows only, so re-read to tell absent from unchanged
	return r.Get(ctx, owner, id)
}

// Delete removes a contact of the owner and returns it as it was.  It
// returns nil, nil when there was nothing to delete.
func (r *ContactRepo) Delete(ctx context.Context, owner, id uint64) (*model.Contact, error) {
	c, err := r.Get(ctx, owner, id)
	if err != nil || c == nil {
		return nil, err
	}
	if _, err := r.db.ExecContext(ctx, "DELETE FROM contacts WHERE id=? AND user_id=?", id, owner); err != nil {
		return nil, fmt.Errorf("delete contact %d: %w", id, err)
	}
	return c, nil
}

// ListWithBirthdayIn returns the owner's contacts whose birthday month and
// day fall into one of ranges.  Ranges are matched by month equality, so a
// window spanning December and January needs no special casing.
func (r *ContactRepo) ListWithBirthdayIn(ctx context.Context, owner uint64, ranges []birthday.Range) ([]*model.Contact, error) {
	if len(ranges) == 0 {
		return []*model.Contact{}, nil
	}
	preds := make([]string, 0, len(ranges))
	args := []any{owner}
	for _, rg := range ranges {
		preds = append(preds, "(MONTH(birthday)=? AND DAY(birthday) BETWEEN ? AND ?)")
		args = append(args, int(rg.Month), rg.FromDay, rg.ToDay)
	}
	q := "SELECT " + contactColumns + " FROM contacts WHERE user_id=? AND birthday IS NOT NULL AND (" +
		strings.Join(preds, " OR ") + ") ORDER BY id"

	out, err := r.queryContacts(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list birthdays: %w", err)
	}
	return out, nil
}

func nullDate(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	y, m, d := t.Date()
	return sql.NullTime{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC), Valid: true}
}
