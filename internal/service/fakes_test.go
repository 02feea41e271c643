package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/aryan0dhankhar/grievanceportal/internal/domain"
	"github.com/aryan0dhankhar/grievanceportal/internal/imagestore"
)

// memStore is an in-memory domain.Store. WithTx restores the previous
// contents when fn fails.
type memStore struct {
	mu          sync.Mutex
	users       map[int64]domain.User
	grievances  map[int64]domain.Grievance
	nextID      int64
	userCreates int
	failWrites  error
}

func newMemStore() *memStore {
	return &memStore{users: map[int64]domain.User{}, grievances: map[int64]domain.Grievance{}}
}

func (s *memStore) Users() domain.UserRepository           { return memUsers{s} }
func (s *memStore) Grievances() domain.GrievanceRepository { return memGrievances{s} }

func (s *memStore) WithTx(ctx context.Context, fn func(domain.Repositories) error) error {
	s.mu.Lock()
	users := make(map[int64]domain.User, len(s.users))
	for k, v := range s.users {
		users[k] = v
	}
	griev := make(map[int64]domain.Grievance, len(s.grievances))
	for k, v := range s.grievances {
		griev[k] = v
	}
	next := s.nextID
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.users, s.grievances, s.nextID = users, griev, next
		s.mu.Unlock()
		return err
	}
	return nil
}

type memUsers struct{ s *memStore }

func (m memUsers) Create(_ context.Context, u *domain.User) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.failWrites != nil {
		return m.s.failWrites
	}
	for _, existing := range m.s.users {
		if existing.Username == u.Username {
			return &domain.DuplicateUserError{Field: "username"}
		}
		if existing.Email == u.Email {
			return &domain.DuplicateUserError{Field: "email"}
		}
	}
	m.s.nextID++
	u.ID = m.s.nextID
	u.CreatedAt = time.Now()
	m.s.users[u.ID] = *u
	m.s.userCreates++
	return nil
}

func (m memUsers) find(match func(domain.User) bool) (*domain.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, u := range m.s.users {
		if match(u) {
			return &u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m memUsers) GetByID(_ context.Context, id int64) (*domain.User, error) {
	return m.find(func(u domain.User) bool { return u.ID == id })
}

func (m memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	return m.find(func(u domain.User) bool { return u.Email == email })
}

func (m memUsers) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	return m.find(func(u domain.User) bool { return u.Username == username })
}

func (m memUsers) Update(_ context.Context, u *domain.User) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.failWrites != nil {
		return m.s.failWrites
	}
	if _, ok := m.s.users[u.ID]; !ok {
		return domain.ErrNotFound
	}
	m.s.users[u.ID] = *u
	return nil
}

type memGrievances struct{ s *memStore }

func (m memGrievances) Create(_ context.Context, g *domain.Grievance) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.failWrites != nil {
		return m.s.failWrites
	}
	m.s.nextID++
	g.ID = m.s.nextID
	stored := *g
	stored.Author = nil
	m.s.grievances[g.ID] = stored
	return nil
}

func (m memGrievances) GetByID(_ context.Context, id int64) (*domain.Grievance, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	g, ok := m.s.grievances[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return m.s.withAuthor(g), nil
}

func (m memGrievances) Update(_ context.Context, g *domain.Grievance) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.failWrites != nil {
		return m.s.failWrites
	}
	cur, ok := m.s.grievances[g.ID]
	if !ok {
		return domain.ErrNotFound
	}
	cur.Category, cur.Title, cur.Content, cur.ImageFile = g.Category, g.Title, g.Content, g.ImageFile
	m.s.grievances[g.ID] = cur
	return nil
}

func (m memGrievances) Delete(_ context.Context, id int64) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.failWrites != nil {
		return m.s.failWrites
	}
	if _, ok := m.s.grievances[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.s.grievances, id)
	return nil
}

func (m memGrievances) List(ctx context.Context, limit, offset int) ([]*domain.Grievance, int, error) {
	return m.list(limit, offset, func(domain.Grievance) bool { return true })
}

func (m memGrievances) ListByAuthor(ctx context.Context, authorID int64, limit, offset int) ([]*domain.Grievance, int, error) {
	return m.list(limit, offset, func(g domain.Grievance) bool { return g.AuthorID == authorID })
}

func (m memGrievances) list(limit, offset int, keep func(domain.Grievance) bool) ([]*domain.Grievance, int, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var all []*domain.Grievance
	for _, g := range m.s.grievances {
		if keep(g) {
			all = append(all, m.s.withAuthor(g))
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].DatePosted.Equal(all[j].DatePosted) {
			return all[i].DatePosted.After(all[j].DatePosted)
		}
		return all[i].ID > all[j].ID
	})
	total := len(all)
	if offset >= total {
		return []*domain.Grievance{}, total, nil
	}
	return all[offset:min(offset+limit, total)], total, nil
}

func (s *memStore) withAuthor(g domain.Grievance) *domain.Grievance {
	if u, ok := s.users[g.AuthorID]; ok {
		g.Author = &u
	}
	return &g
}

// fakeImages records stored and deleted names instead of writing files
type fakeImages struct {
	mu          sync.Mutex
	stored      []string
	deleted     []string
	transformed int
	err         error
}

func (f *fakeImages) Store(_ context.Context, kind imagestore.Kind, filename string, body io.Reader, transform imagestore.Transform) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", &imagestore.StorageError{Op: "store", Kind: kind, Err: f.err}
	}
	if _, err := io.ReadAll(body); err != nil {
		return "", err
	}
	if transform != nil {
		f.transformed++
	}
	name := fmt.Sprintf("img%d%s", len(f.stored)+1, imagestore.Extension(filename))
	f.stored = append(f.stored, name)
	return name, nil
}

func (f *fakeImages) Delete(_ context.Context, _ imagestore.Kind, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, name)
	return nil
}

type stubClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStubClock() *stubClock {
	return &stubClock{now: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)}
}

func (c *stubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stubClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var errDiskFull = errors.New("disk full")
