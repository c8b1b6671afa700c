package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/contact-book/internal/apperr"
	"github.com/iliyamo/contact-book/internal/middleware"
	"github.com/iliyamo/contact-book/internal/model"
	"github.com/iliyamo/contact-book/internal/service"
)

// ContactHandler serves /api/contacts.  Every operation is scoped to the
// authenticated owner.
type ContactHandler struct {
	Contacts *service.ContactService
	now      func() time.Time
}

func NewContactHandler(s *service.ContactService) *ContactHandler {
	return &ContactHandler{Contacts: s, now: time.Now}
}

type contactReq struct {
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Email          string `json:"email"`
	PhoneNumber    string `json:"phone_number"`
	Birthday       string `json:"birthday"`
	AdditionalInfo string `json:"additional_info"`
}

type contactPatchReq struct {
	FirstName      *string `json:"first_name"`
	LastName       *string `json:"last_name"`
	Email          *string `json:"email"`
	PhoneNumber    *string `json:"phone_number"`
	Birthday       *string `json:"birthday"`
	AdditionalInfo *string `json:"additional_info"`
}

type contactResp struct {
	ID             uint64    `json:"id"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Email          string    `json:"email"`
	PhoneNumber    string    `json:"phone_number"`
	Birthday       *string   `json:"birthday"`
	AdditionalInfo string    `json:"additional_info"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func toContactResp(c *model.Contact) contactResp {
	out := contactResp{
		ID:             c.ID,
		FirstName:      c.FirstName,
		LastName:       c.LastName,
		Email:          c.Email,
		PhoneNumber:    c.PhoneNumber,
		AdditionalInfo: c.AdditionalInfo,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
	if c.Birthday != nil {
		s := c.Birthday.Format(service.BirthdayLayout)
		out.Birthday = &s
	}
	return out
}

func toContactList(cs []*model.Contact) []contactResp {
	out := make([]contactResp, 0, len(cs))
	for _, c := range cs {
		out = append(out, toContactResp(c))
	}
	return out
}

func (r contactReq) fields() (model.ContactFields, error) {
	f := model.ContactFields{
		FirstName:      r.FirstName,
		LastName:       r.LastName,
		Email:          r.Email,
		PhoneNumber:    r.PhoneNumber,
		AdditionalInfo: r.AdditionalInfo,
	}
	if strings.TrimSpace(r.Birthday) != "" {
		b, err := service.ParseBirthday(r.Birthday)
		if err != nil {
			return f, err
		}
		f.Birthday = b
	}
	return f, nil
}

func (r contactPatchReq) patch() (model.ContactPatch, error) {
	p := model.ContactPatch{
		FirstName:      r.FirstName,
		LastName:       r.LastName,
		Email:          r.Email,
		PhoneNumber:    r.PhoneNumber,
		AdditionalInfo: r.AdditionalInfo,
	}
	if r.Birthday != nil {
		b, err := service.ParseBirthday(*r.Birthday)
		if err != nil {
			return p, err
		}
		p.Birthday = b
	}
	return p, nil
}

func owner(c echo.Context) (uint64, error) {
	u := middleware.CurrentUser(c)
	if u == nil {
		return 0, apperr.Unauthenticated("Not authenticated", nil)
	}
	return u.ID, nil
}

func queryInt(c echo.Context, name string, def int) (int, error) {
	v := c.QueryParam(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperr.Validation(name + " must be an integer")
	}
	return n, nil
}

// List returns a page of contacts, optionally filtered by a search term
// matched against names and email.
func (h *ContactHandler) List(c echo.Context) error {
	uid, err := owner(c)
	if err != nil {
		return err
	}
	skip, err := queryInt(c, "skip", 0)
	if err != nil {
		return err
	}
	limit, err := queryInt(c, "limit", service.DefaultLimit)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	list, err := h.Contacts.List(ctx, uid, model.ContactQuery{
		Search: strings.TrimSpace(c.QueryParam("search")),
		Offset: skip,
		Limit:  limit,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toContactList(list))
}

// Birthdays lists contacts whose birthday falls within the next seven days.
func (h *ContactHandler) Birthdays(c echo.Context) error {
	uid, err := owner(c)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	list, err := h.Contacts.UpcomingBirthdays(ctx, uid, h.now())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toContactList(list))
}

func (h *ContactHandler) Get(c echo.Context) error {
	uid, err := owner(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	ct, err := h.Contacts.Get(ctx, uid, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toContactResp(ct))
}

func (h *ContactHandler) Create(c echo.Context) error {
	uid, err := owner(c)
	if err != nil {
		return err
	}
	var req contactReq
	if err := bind(c, &req); err != nil {
		return err
	}
	f, err := req.fields()
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	ct, err := h.Contacts.Create(ctx, uid, f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toContactResp(ct))
}

// Update applies a partial update; absent fields keep their value.
func (h *ContactHandler) Update(c echo.Context) error {
	uid, err := owner(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req contactPatchReq
	if err := bind(c, &req); err != nil {
		return err
	}
	p, err := req.patch()
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	ct, err := h.Contacts.Update(ctx, uid, id, p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toContactResp(ct))
}

// Delete removes a contact and returns it.
func (h *ContactHandler) Delete(c echo.Context) error {
	uid, err := owner(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	ct, err := h.Contacts.Delete(ctx, uid, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toContactResp(ct))
}
