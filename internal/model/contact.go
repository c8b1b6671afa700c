package model

import "time"

// Contact is a person in a user's address book.  It corresponds to a row
// in the `contacts` table and always belongs to exactly one user.
// Birthday is nil when unknown; only its month and day matter for the
// upcoming birthdays query.
type Contact struct {
	ID             uint64     // contacts.id
	UserID         uint64     // contacts.user_id
	FirstName      string     // contacts.first_name
	LastName       string     // contacts.last_name
	Email          string     // contacts.email
	PhoneNumber    string     // contacts.phone_number
	Birthday       *time.Time // contacts.birthday (DATE, nullable)
	AdditionalInfo string     // contacts.additional_info (TEXT, nullable)
	CreatedAt      time.Time  // contacts.created_at
	UpdatedAt      time.Time  // contacts.updated_at
}

// ContactFields holds the values of a new contact.
type ContactFields struct {
	FirstName      string
	LastName       string
	Email          string
	PhoneNumber    string
	Birthday       *time.Time
	AdditionalInfo string
}

// ContactPatch is a partial update.  Nil fields are left unchanged.
type ContactPatch struct {
	FirstName      *string
	LastName       *string
	Email          *string
	PhoneNumber    *string
	Birthday       *time.Time
	AdditionalInfo *string
}

// Empty reports whether the patch sets no field.
func (p ContactPatch) Empty() bool {
	return p.FirstName == nil && p.LastName == nil && p.Email == nil &&
		p.PhoneNumber == nil && p.Birthday == nil && p.AdditionalInfo == nil
}

// ContactQuery filters and paginates a contact listing.
type ContactQuery struct {
	Search string
	Offset int
	Limit  int
}
