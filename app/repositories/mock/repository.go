package mock

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"postwall/app/models"
	"postwall/app/repositories"
)

// PostRepository is an in-memory PostStore. Each post has its own lock, so
// updates to one post never wait on another.
type PostRepository struct {
	posts map[string]*postEntry
	mutex sync.RWMutex

	// Err, when set, is returned by every call.
	Err error
}

type postEntry struct {
	mu   sync.Mutex
	post *models.Post
}

// UserRepository is an in-memory UserRepository.
type UserRepository struct {
	users   map[string]*models.User
	byEmail map[string]string
	mutex   sync.RWMutex
}

func NewPostRepository() *PostRepository {
	return &PostRepository{posts: make(map[string]*postEntry)}
}

func (m *PostRepository) Clear() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.posts = make(map[string]*postEntry)
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		users:   make(map[string]*models.User),
		byEmail: make(map[string]string),
	}
}

func (m *PostRepository) check(ctx context.Context) error {
	if m.Err != nil {
		return m.Err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", repositories.ErrStoreUnavailable, err)
	}
	return nil
}

// PostStore implementation
func (m *PostRepository) Insert(ctx context.Context, post *models.Post) error {
	if err := m.check(ctx); err != nil {
		return err
	}
	if err := post.Validate(); err != nil {
		return fmt.Errorf("%w: %w", repositories.ErrInvalidRecord, err)
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()
	if _, exists := m.posts[post.ID]; exists {
		return repositories.ErrDuplicate
	}
	m.posts[post.ID] = &postEntry{post: post.Clone()}
	return nil
}

func (m *PostRepository) FindByID(ctx context.Context, id string) (*models.Post, error) {
	if err := m.check(ctx); err != nil {
		return nil, err
	}
	m.mutex.RLock()
	entry, exists := m.posts[id]
	m.mutex.RUnlock()
	if !exists {
		return nil, repositories.ErrNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.post.Clone(), nil
}

func (m *PostRepository) FindByTopic(ctx context.Context, topic models.Topic) ([]*models.Post, error) {
	return m.filter(ctx, func(p *models.Post) bool { return p.Topic == topic })
}

func (m *PostRepository) FindExpiredByTopic(ctx context.Context, topic models.Topic, now time.Time) ([]*models.Post, error) {
	return m.filter(ctx, func(p *models.Post) bool {
		return p.Topic == topic && !p.ExpiresAt.After(now)
	})
}

func (m *PostRepository) List(ctx context.Context) ([]*models.Post, error) {
	return m.filter(ctx, func(*models.Post) bool { return true })
}

func (m *PostRepository) filter(ctx context.Context, keep func(*models.Post) bool) ([]*models.Post, error) {
	if err := m.check(ctx); err != nil {
		return nil, err
	}
	m.mutex.RLock()
	entries := make([]*postEntry, 0, len(m.posts))
	for _, e := range m.posts {
		entries = append(entries, e)
	}
	m.mutex.RUnlock()

	posts := []*models.Post{}
	for _, e := range entries {
		e.mu.Lock()
		if keep(e.post) {
			posts = append(posts, e.post.Clone())
		}
		e.mu.Unlock()
	}
	slices.SortFunc(posts, func(a, b *models.Post) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return posts, nil
}

// UpdateIfPresent holds the post's lock across read, mutate and write.
func (m *PostRepository) UpdateIfPresent(ctx context.Context, id string, mutate repositories.Mutator) (*models.Post, error) {
	if err := m.check(ctx); err != nil {
		return nil, err
	}
	m.mutex.RLock()
	entry, exists := m.posts[id]
	m.mutex.RUnlock()
	if !exists {
		return nil, repositories.ErrNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	working := entry.post.Clone()
	if err := mutate(working); err != nil {
		return nil, err
	}
	if err := working.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", repositories.ErrInvalidRecord, err)
	}
	working.Version++
	entry.post = working
	return working.Clone(), nil
}

// UserRepository implementation
func (m *UserRepository) Create(ctx context.Context, user *models.User) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	email := strings.ToLower(user.Email)
	if _, taken := m.byEmail[email]; taken {
		return repositories.ErrDuplicate
	}
	cp := *user
	m.users[user.ID] = &cp
	m.byEmail[email] = user.ID
	return nil
}

func (m *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	user, exists := m.users[id]
	if !exists {
		return nil, repositories.ErrNotFound
	}
	cp := *user
	return &cp, nil
}

func (m *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mutex.RLock()
	id, exists := m.byEmail[strings.ToLower(email)]
	m.mutex.RUnlock()
	if !exists {
		return nil, repositories.ErrNotFound
	}
	return m.GetByID(ctx, id)
}

func (m *UserRepository) List(ctx context.Context) ([]*models.User, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	users := make([]*models.User, 0, len(m.users))
	for _, u := range m.users {
		cp := *u
		users = append(users, &cp)
	}
	slices.SortFunc(users, func(a, b *models.User) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return users, nil
}
