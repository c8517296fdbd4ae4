package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"realty/catalog/internal/search"
)

// SavedSearchesKey is the KVStore key holding the saved-search list.
const SavedSearchesKey = "savedSearches"

var ErrSavedSearchNotFound = errors.New("saved search not found")

// SavedSearch is a named snapshot of search criteria. Names are not unique.
type SavedSearch struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Query     string    `json:"query"` // criteria in query-string form
	CreatedAt time.Time `json:"createdAt"`
}

// Criteria decodes the stored snapshot.
func (s SavedSearch) Criteria() (search.Criteria, error) {
	v, err := url.ParseQuery(s.Query)
	if err != nil {
		return search.Criteria{}, fmt.Errorf("saved search %s has a malformed query: %w", s.ID, err)
	}
	return search.ParseCriteria(v)
}

// SavedSearches manages the saved-search list kept in a KVStore.
type SavedSearches struct {
	mu    sync.Mutex
	store KVStore
	now   func() time.Time
	newID func() string
}

func NewSavedSearches(store KVStore) *SavedSearches {
	return &SavedSearches{
		store: store,
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
	}
}

// List returns saved searches in creation order.
func (s *SavedSearches) List(ctx context.Context) ([]SavedSearch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Save stores a snapshot of c under name. Saving an existing name adds another entry.
func (s *SavedSearches) Save(ctx context.Context, name string, c search.Criteria) (SavedSearch, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return SavedSearch{}, errors.New("saved search name cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load(ctx)
	if err != nil {
		return SavedSearch{}, err
	}
	entry := SavedSearch{
		ID:        s.newID(),
		Name:      name,
		Query:     c.Normalized().Encode(),
		CreatedAt: s.now().UTC(),
	}
	list = append(list, entry)
	if err := s.persist(ctx, list); err != nil {
		return SavedSearch{}, err
	}
	return entry, nil
}

// Get returns the saved search with the given id.
func (s *SavedSearches) Get(ctx context.Context, id string) (SavedSearch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load(ctx)
	if err != nil {
		return SavedSearch{}, err
	}
	i := slices.IndexFunc(list, func(e SavedSearch) bool { return e.ID == id })
	if i < 0 {
		return SavedSearch{}, ErrSavedSearchNotFound
	}
	return list[i], nil
}

// Delete removes the saved search with the given id.
func (s *SavedSearches) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load(ctx)
	if err != nil {
		return err
	}
	i := slices.IndexFunc(list, func(e SavedSearch) bool { return e.ID == id })
	if i < 0 {
		return ErrSavedSearchNotFound
	}
	return s.persist(ctx, slices.Delete(list, i, i+1))
}

func (s *SavedSearches) load(ctx context.Context) ([]SavedSearch, error) {
	data, ok, err := s.store.Get(ctx, SavedSearchesKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load saved searches: %w", err)
	}
	if !ok {
		return []SavedSearch{}, nil
	}
	var list []SavedSearch
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to decode saved searches: %w", err)
	}
	return list, nil
}

func (s *SavedSearches) persist(ctx context.Context, list []SavedSearch) error {
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("failed to encode saved searches: %w", err)
	}
	if err := s.store.Set(ctx, SavedSearchesKey, data); err != nil {
		return fmt.Errorf("failed to persist saved searches: %w", err)
	}
	return nil
}
