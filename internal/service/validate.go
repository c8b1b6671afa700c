package service

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/iliyamo/contact-book/internal/apperr"
	"github.com/iliyamo/contact-book/internal/model"
)

// Field limits.
const (
	usernameMin = 4
	usernameMax = 16
	passwordMin = 6
	passwordMax = 15
	nameMax     = 50
	emailMax    = 50
	phoneMax    = 15
	// TEXT holds 65535 bytes, four per rune in utf8mb4
	infoMax     = 16000
)

// BirthdayLayout is the wire format of contact birthdays.
const BirthdayLayout = time.DateOnly

// ParseBirthday parses a YYYY-MM-DD birthday.
func ParseBirthday(s string) (*time.Time, error) {
	t, err := time.Parse(BirthdayLayout, strings.TrimSpace(s))
	if err != nil {
		return nil, apperr.Validation("birthday must be a date in YYYY-MM-DD format")
	}
	return &t, nil
}

func checkLen(field, v string, lo, hi int) error {
	n := utf8.RuneCountInString(v)
	if n < lo || n > hi {
		if lo == 0 {
			return apperr.Validation(fmt.Sprintf("%s must be at most %d characters", field, hi))
		}
		return apperr.Validation(fmt.Sprintf("%s must be between %d and %d characters", field, lo, hi))
	}
	return nil
}

func checkEmail(field, v string, hi int) error {
	if err := checkLen(field, v, 1, hi); err != nil {
		return err
	}
	addr, err := mail.ParseAddress(v)
	if err != nil || addr.Address != v {
		return apperr.Validation(field + " is not a valid email address")
	}
	return nil
}

func checkPassword(p string) error {
	return checkLen("password", p, passwordMin, passwordMax)
}

func validateSignup(in SignupInput) error {
	if err := checkLen("username", in.Username, usernameMin, usernameMax); err != nil {
		return err
	}
	if err := checkEmail("email", in.Email, 150); err != nil {
		return err
	}
	return checkPassword(in.Password)
}

func validateContactFields(f *model.ContactFields) error {
	f.FirstName = strings.TrimSpace(f.FirstName)
	f.LastName = strings.TrimSpace(f.LastName)
	f.Email = strings.TrimSpace(f.Email)
	f.PhoneNumber = strings.TrimSpace(f.PhoneNumber)

	if err := checkLen("first_name", f.FirstName, 1, nameMax); err != nil {
		return err
	}
	if err := checkLen("last_name", f.LastName, 1, nameMax); err != nil {
		return err
	}
	if f.Email != "" {
		if err := checkEmail("email", f.Email, emailMax); err != nil {
			return err
		}
	}
	if err := checkLen("phone_number", f.PhoneNumber, 0, phoneMax); err != nil {
		return err
	}
	return checkLen("additional_info", f.AdditionalInfo, 0, infoMax)
}

func validateContactPatch(p *model.ContactPatch) error {
	trim := func(s *string) {
		if s != nil {
			*s = strings.TrimSpace(*s)
		}
	}
	trim(p.FirstName)
	trim(p.LastName)
	trim(p.Email)
	trim(p.PhoneNumber)

	if p.FirstName != nil {
		if err := checkLen("first_name", *p.FirstName, 1, nameMax); err != nil {
			return err
		}
	}
	if p.LastName != nil {
		if err := checkLen("last_name", *p.LastName, 1, nameMax); err != nil {
			return err
		}
	}
	if p.Email != nil && *p.Email != "" {
		if err := checkEmail("email", *p.Email, emailMax); err != nil {
			return err
		}
	}
	if p.PhoneNumber != nil {
		if err := checkLen("phone_number", *p.PhoneNumber, 0, phoneMax); err != nil {
			return err
		}
	}
	if p.AdditionalInfo != nil {
		if err := checkLen("additional_info", *p.AdditionalInfo, 0, infoMax); err != nil {
			return err
		}
	}
	return nil
}
