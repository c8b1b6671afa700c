package service

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/contact-book/internal/birthday"
	"github.com/iliyamo/contact-book/internal/model"
	"github.com/iliyamo/contact-book/internal/queue"
	"github.com/iliyamo/contact-book/internal/repository"
)

type memUserStore struct {
	mu     sync.Mutex
	nextID uint64
	users  map[string]*model.User
	err    error
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: map[string]*model.User{}}
}

func (m *memUserStore) byID(id uint64) *model.User {
	for _, u := range m.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func (m *memUserStore) FindByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[email]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (m *memUserStore) Create(_ context.Context, nu model.NewUser) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[nu.Email]; ok {
		return nil, repository.ErrEmailExists
	}
	m.nextID++
	u := &model.User{ID: m.nextID, Username: nu.Username, Email: nu.Email, PasswordHash: nu.PasswordHash, AvatarURL: nu.AvatarURL}
	m.users[nu.Email] = u
	cp := *u
	return &cp, nil
}

func (m *memUserStore) SetRefreshTokenHash(_ context.Context, id uint64, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID(id).RefreshTokenHash = hash
	return nil
}

func (m *memUserStore) Confirm(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[email].Confirmed = true
	return nil
}

func (m *memUserStore) SetPassword(_ context.Context, id uint64, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.byID(id)
	u.PasswordHash = hash
	u.RefreshTokenHash = ""
	return nil
}

func (m *memUserStore) SetAvatar(_ context.Context, id uint64, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID(id).AvatarURL = url
	return nil
}

func (m *memUserStore) get(email string) model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.users[email]
}

type fakeNotifier struct {
	events []queue.MailEvent
	err    error
}

func (f *fakeNotifier) Notify(_ context.Context, ev queue.MailEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeNotifier) last() queue.MailEvent {
	return f.events[len(f.events)-1]
}

type fakeEvictor struct{ forgotten []string }

func (f *fakeEvictor) Forget(_ context.Context, email string) {
	f.forgotten = append(f.forgotten, email)
}

type memContactStore struct {
	nextID   uint64
	contacts map[uint64]*model.Contact
	now      time.Time
	lastQ    model.ContactQuery
}

func newMemContactStore() *memContactStore {
	return &memContactStore{
		contacts: map[uint64]*model.Contact{},
		now:      time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC),
	}
}

// tick advances the store clock so timestamps of successive writes differ.
func (m *memContactStore) tick() time.Time {
	m.now = m.now.Add(time.Second)
	return m.now
}

func (m *memContactStore) owned(owner, id uint64) *model.Contact {
	c, ok := m.contacts[id]
	if !ok || c.UserID != owner {
		return nil
	}
	return c
}

func (m *memContactStore) List(_ context.Context, owner uint64, q model.ContactQuery) ([]*model.Contact, error) {
	m.lastQ = q
	ids := make([]uint64, 0, len(m.contacts))
	for id := range m.contacts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	needle := strings.ToLower(q.Search)
	var all []*model.Contact
	for _, id := range ids {
		c := m.contacts[id]
		if c.UserID != owner {
			continue
		}
		hay := strings.ToLower(c.FirstName + "\x00" + c.LastName + "\x00" + c.Email + "\x00" + c.PhoneNumber)
		if needle != "" && !strings.Contains(hay, needle) {
			continue
		}
		cp := *c
		all = append(all, &cp)
	}
	out := []*model.Contact{}
	for i := q.Offset; i < len(all) && len(out) < q.Limit; i++ {
		out = append(out, all[i])
	}
	return out, nil
}

func (m *memContactStore) Get(_ context.Context, owner, id uint64) (*model.Contact, error) {
	c := m.owned(owner, id)
	if c == nil {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (m *memContactStore) Create(_ context.Context, owner uint64, f model.ContactFields) (*model.Contact, error) {
	m.nextID++
	now := m.tick()
	c := &model.Contact{
		ID: m.nextID, UserID: owner, FirstName: f.FirstName, LastName: f.LastName, Email: f.Email,
		PhoneNumber: f.PhoneNumber, Birthday: f.Birthday, AdditionalInfo: f.AdditionalInfo,
		CreatedAt: now, UpdatedAt: now,
	}
	m.contacts[c.ID] = c
	cp := *c
	return &cp, nil
}

func (m *memContactStore) Update(_ context.Context, owner, id uint64, p model.ContactPatch) (*model.Contact, error) {
	c := m.owned(owner, id)
	if c == nil {
		return nil, nil
	}
	if p.FirstName != nil {
		c.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		c.LastName = *p.LastName
	}
	if p.Email != nil {
		c.Email = *p.Email
	}
	if p.PhoneNumber != nil {
		c.PhoneNumber = *p.PhoneNumber
	}
	if p.Birthday != nil {
		c.Birthday = p.Birthday
	}
	if p.AdditionalInfo != nil {
		c.AdditionalInfo = *p.AdditionalInfo
	}
	c.UpdatedAt = m.tick()
	cp := *c
	return &cp, nil
}

func (m *memContactStore) Delete(_ context.Context, owner, id uint64) (*model.Contact, error) {
	c := m.owned(owner, id)
	if c == nil {
		return nil, nil
	}
	delete(m.contacts, id)
	return c, nil
}

func (m *memContactStore) ListWithBirthdayIn(_ context.Context, owner uint64, ranges []birthday.Range) ([]*model.Contact, error) {
	out := []*model.Contact{}
	for _, c := range m.contacts {
		if c.UserID != owner || c.Birthday == nil {
			continue
		}
		for _, r := range ranges {
			if c.Birthday.Month() == r.Month && c.Birthday.Day() >= r.FromDay && c.Birthday.Day() <= r.ToDay {
				cp := *c
				out = append(out, &cp)
				break
			}
		}
	}
	return out, nil
}

type failingContactStore struct{ ContactStore }

var errStoreDown = errors.New("store down")

func (failingContactStore) Get(context.Context, uint64, uint64) (*model.Contact, error) {
	return nil, errStoreDown
}

type fakeUploader struct {
	url  string
	err  error
	body string
}

func (f *fakeUploader) UploadAvatar(_ context.Context, _ uint64, _ string, body io.Reader, _ int64) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	b, _ := io.ReadAll(body)
	f.body = string(b)
	return f.url, nil
}
