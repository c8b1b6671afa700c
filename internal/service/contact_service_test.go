package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/contact-book/internal/apperr"
	"github.com/iliyamo/contact-book/internal/model"
)

func strp(s string) *string { return &s }

func bday(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func newContact(first string, b *time.Time) model.ContactFields {
	return model.ContactFields{
		FirstName: first, LastName: "Doe", Email: first + "@example.com", PhoneNumber: "+380501234567", Birthday: b,
	}
}

func TestContactService_CreateAndGet(t *testing.T) {
	svc := NewContactService(newMemContactStore())
	ctx := context.Background()

	c, err := svc.Create(ctx, 1, model.ContactFields{FirstName: "  Ann ", LastName: "Doe", PhoneNumber: "555"})
	require.NoError(t, err)
	assert.Equal(t, "Ann", c.FirstName)
	assert.Equal(t, uint64(1), c.UserID)

	got, err := svc.Get(ctx, 1, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)
}

func TestContactService_CreateValidation(t *testing.T) {
	svc := NewContactService(newMemContactStore())
	long := "abcdefghijabcdefghijabcdefghijabcdefghijabcdefghijX"

	cases := []model.ContactFields{
		{FirstName: "", LastName: "Doe"},
		{FirstName: "Ann", LastName: " "},
		{FirstName: long, LastName: "Doe"},
		{FirstName: "Ann", LastName: "Doe", Email: "nope"},
		{FirstName: "Ann", LastName: "Doe", PhoneNumber: "1234567890123456"},
	}
	for _, f := range cases {
		_, err := svc.Create(context.Background(), 1, f)
		assert.True(t, apperr.Is(err, apperr.KindValidation), "%+v: %v", f, err)
	}
}

func TestContactService_AdditionalInfoLimit(t *testing.T) {
	svc := NewContactService(newMemContactStore())
	ctx := context.Background()

	f := newContact("ann", nil)
	f.AdditionalInfo = strings.Repeat("ж", infoMax)
	c, err := svc.Create(ctx, 1, f)
	require.NoError(t, err)
	assert.Equal(t, f.AdditionalInfo, c.AdditionalInfo)

	f.AdditionalInfo += "x"
	_, err = svc.Create(ctx, 1, f)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = svc.Update(ctx, 1, c.ID, model.ContactPatch{AdditionalInfo: strp(strings.Repeat("x", infoMax+1))})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	got, err := svc.Update(ctx, 1, c.ID, model.ContactPatch{AdditionalInfo: strp(strings.Repeat("x", 300))})
	require.NoError(t, err)
	assert.Len(t, got.AdditionalInfo, 300)
}

func TestContactService_OwnerIsolation(t *testing.T) {
	svc := NewContactService(newMemContactStore())
	ctx := context.Background()

	c, err := svc.Create(ctx, 1, newContact("ann", nil))
	require.NoError(t, err)

	_, err = svc.Get(ctx, 2, c.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	_, err = svc.Update(ctx, 2, c.ID, model.ContactPatch{FirstName: strp("Eve")})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	_, err = svc.Delete(ctx, 2, c.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	list, err := svc.List(ctx, 2, model.ContactQuery{})
	require.NoError(t, err)
	assert.Empty(t, list)

	got, err := svc.Get(ctx, 1, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "ann", got.FirstName)
}

func TestContactService_DeleteTwice(t *testing.T) {
	svc := NewContactService(newMemContactStore())
	ctx := context.Background()

	c, err := svc.Create(ctx, 1, newContact("ann", nil))
	require.NoError(t, err)

	deleted, err := svc.Delete(ctx, 1, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, deleted.ID)

	_, err = svc.Delete(ctx, 1, c.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	_, err = svc.Get(ctx, 1, c.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestContactService_EmptyPatchBumpsUpdatedAt(t *testing.T) {
	svc := NewContactService(newMemContactStore())
	ctx := context.Background()

	c, err := svc.Create(ctx, 1, newContact("ann", bday(1990, time.May, 30)))
	require.NoError(t, err)

	got, err := svc.Update(ctx, 1, c.ID, model.ContactPatch{})
	require.NoError(t, err)
	assert.True(t, got.UpdatedAt.After(c.UpdatedAt))

	got.UpdatedAt = c.UpdatedAt
	assert.Equal(t, c, got)
}

func TestContactService_Patch(t *testing.T) {
	svc := NewContactService(newMemContactStore())
	ctx := context.Background()

	c, err := svc.Create(ctx, 1, newContact("ann", nil))
	require.NoError(t, err)

	got, err := svc.Update(ctx, 1, c.ID, model.ContactPatch{LastName: strp(" Smith "), Birthday: bday(1990, time.June, 1)})
	require.NoError(t, err)
	assert.Equal(t, "Smith", got.LastName)
	assert.Equal(t, "ann", got.FirstName)
	require.NotNil(t, got.Birthday)

	_, err = svc.Update(ctx, 1, c.ID, model.ContactPatch{FirstName: strp("")})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	_, err = svc.Update(ctx, 1, c.ID, model.ContactPatch{Email: strp("bad")})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestContactService_ListPaging(t *testing.T) {
	store := newMemContactStore()
	svc := NewContactService(store)
	ctx := context.Background()

	for _, name := range []string{"ann", "bob", "anna", "carl"} {
		_, err := svc.Create(ctx, 1, newContact(name, nil))
		require.NoError(t, err)
	}

	list, err := svc.List(ctx, 1, model.ContactQuery{Limit: 500, Offset: -3})
	require.NoError(t, err)
	assert.Len(t, list, 4)
	assert.Equal(t, model.ContactQuery{Limit: MaxLimit}, store.lastQ)

	list, err = svc.List(ctx, 1, model.ContactQuery{Search: "ANN"})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = svc.List(ctx, 1, model.ContactQuery{Offset: 1, Limit: 2})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "bob", list[0].FirstName)
}

func TestContactService_UpcomingBirthdays(t *testing.T) {
	svc := NewContactService(newMemContactStore())
	ctx := context.Background()

	for _, f := range []model.ContactFields{
		newContact("dec30", bday(1980, time.December, 30)),
		newContact("jan3", bday(1991, time.January, 3)),
		newContact("jan4", bday(1992, time.January, 4)),
		newContact("nobday", nil),
	} {
		_, err := svc.Create(ctx, 1, f)
		require.NoError(t, err)
	}
	_, err := svc.Create(ctx, 2, newContact("other", bday(1980, time.December, 29)))
	require.NoError(t, err)

	got, err := svc.UpcomingBirthdays(ctx, 1, time.Date(2024, time.December, 28, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	names := []string{}
	for _, c := range got {
		names = append(names, c.FirstName)
	}
	assert.ElementsMatch(t, []string{"dec30", "jan3"}, names)
}

func TestContactService_StoreFailure(t *testing.T) {
	svc := NewContactService(failingContactStore{})
	_, err := svc.Get(context.Background(), 1, 1)
	assert.True(t, apperr.Is(err, apperr.KindInternal))
	assert.ErrorIs(t, err, errStoreDown)
}
