package memory

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"dispatch-system/internal/entities"
	"dispatch-system/internal/repositories"
	apperrors "dispatch-system/pkg/errors"
)

type attachmentRepository struct {
	s *Store
}

func (r *attachmentRepository) Create(ctx context.Context, a *entities.Attachment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *a
	r.s.attachments = append(r.s.attachments, &c)
	return nil
}

func (r *attachmentRepository) FindByDispatch(ctx context.Context, dispatchID string) ([]*entities.Attachment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	list := make([]*entities.Attachment, 0)
	for i := len(r.s.attachments) - 1; i >= 0; i-- {
		if a := r.s.attachments[i]; a.DispatchID == dispatchID {
			c := *a
			list = append(list, &c)
		}
	}
	return list, nil
}

type noteRepository struct {
	s *Store
}

func (r *noteRepository) Create(ctx context.Context, n *entities.Note) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *n
	r.s.notes = append(r.s.notes, &c)
	return nil
}

func (r *noteRepository) FindByDispatch(ctx context.Context, dispatchID string) ([]*entities.Note, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	list := make([]*entities.Note, 0)
	for i := len(r.s.notes) - 1; i >= 0; i-- {
		if n := r.s.notes[i]; n.DispatchID == dispatchID {
			c := *n
			list = append(list, &c)
		}
	}
	return list, nil
}

type jobCatalog struct {
	s *Store
}

func (c *jobCatalog) FindByID(ctx context.Context, id string) (*entities.CatalogJob, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	j, ok := c.s.jobs[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("job", id)
	}
	cp := *j
	cp.RequiredSkills = append([]string{}, j.RequiredSkills...)
	return &cp, nil
}

type cacheItem struct {
	value     string
	expiresAt time.Time
}

// Cache - замена Redis для режима в памяти.
type Cache struct {
	mu    sync.Mutex
	items map[string]cacheItem
	now   func() time.Time
}

func NewCache() *Cache {
	return &Cache{items: make(map[string]cacheItem), now: time.Now}
}

var _ repositories.CacheRepositoryInterface = (*Cache)(nil)

func (c *Cache) get(key string) (cacheItem, bool) {
	item, ok := c.items[key]
	if !ok {
		return cacheItem{}, false
	}
	if !item.expiresAt.IsZero() && !c.now().Before(item.expiresAt) {
		delete(c.items, key)
		return cacheItem{}, false
	}
	return item, true
}

func (c *Cache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	item := cacheItem{}
	switch v := value.(type) {
	case string:
		item.value = v
	case []byte:
		item.value = string(v)
	default:
		item.value = fmt.Sprint(v)
	}
	if expiration > 0 {
		item.expiresAt = c.now().Add(expiration)
	}
	c.items[key] = item
	return nil
}

func (c *Cache) Get(ctx context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	item, ok := c.get(key)
	if !ok {
		return "", repositories.ErrCacheMiss
	}
	return item.value, nil
}

func (c *Cache) Del(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.items, k)
	}
	return nil
}

func (c *Cache) Incr(ctx context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	item, _ := c.get(key)
	n := int64(0)
	if item.value != "" {
		parsed, err := strconv.ParseInt(item.value, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("значение %q не является целым числом", key)
		}
		n = parsed
	}
	n++
	item.value = strconv.FormatInt(n, 10)
	c.items[key] = item
	return n, nil
}

func (c *Cache) Expire(ctx context.Context, key string, expiration time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	item, ok := c.get(key)
	if !ok {
		return false, nil
	}
	item.expiresAt = c.now().Add(expiration)
	c.items[key] = item
	return true, nil
}
