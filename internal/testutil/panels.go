package testutil

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	panelserrors "planner/internal/panels/errors"
	panelsrepo "planner/internal/panels/repository"
	mongotx "planner/pkg/db/mongo"
	"planner/pkg/model"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	_ panelsrepo.PanelRepository = (*PanelStore)(nil)
	_ panelsrepo.LockRepository  = (*LockStore)(nil)
)

type PanelStore struct {
	mu     sync.Mutex
	panels map[string]*model.Panel

	Promotions int
}

func NewPanelStore() *PanelStore {
	return &PanelStore{panels: make(map[string]*model.Panel)}
}

func (s *PanelStore) Get(id string) *model.Panel {
	s.mu.Lock()
	defer s.mu.Unlock()
	if panel, ok := s.panels[id]; ok {
		return clonePanel(panel)
	}
	return nil
}

func (s *PanelStore) Put(panel *model.Panel) *model.Panel {
	s.mu.Lock()
	defer s.mu.Unlock()
	if panel.ID == "" {
		panel.ID = primitive.NewObjectID().Hex()
	}
	if panel.Version == 0 {
		panel.Version = 1
	}
	s.panels[panel.ID] = clonePanel(panel)
	return panel
}

func (s *PanelStore) Create(ctx context.Context, panel *model.Panel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	panel.ID = primitive.NewObjectID().Hex()
	panel.Version = 1
	panel.CreatedAt = now
	panel.UpdatedAt = now
	s.panels[panel.ID] = clonePanel(panel)
	return nil
}

func (s *PanelStore) FindByID(ctx context.Context, id string) (*model.Panel, error) {
	if !primitive.IsValidObjectID(id) {
		return nil, panelserrors.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	panel, ok := s.panels[id]
	if !ok {
		return nil, panelserrors.ErrNotFound
	}
	return clonePanel(panel), nil
}

func (s *PanelStore) FindByIDs(ctx context.Context, ids []string) ([]*model.Panel, error) {
	for _, id := range ids {
		if !primitive.IsValidObjectID(id) {
			return nil, panelserrors.ErrInvalidID
		}
	}
	return s.filter(func(p *model.Panel) bool { return slices.Contains(ids, p.ID) }), nil
}

func (s *PanelStore) FindByTimeRange(ctx context.Context, from, to time.Time) ([]*model.Panel, error) {
	return s.filter(func(p *model.Panel) bool { return !p.Time.Before(from) && p.Time.Before(to) }), nil
}

func (s *PanelStore) filter(match func(*model.Panel) bool) []*model.Panel {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*model.Panel{}
	for _, p := range s.panels {
		if match(p) {
			out = append(out, clonePanel(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out
}

func (s *PanelStore) Replace(ctx context.Context, panel *model.Panel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.panels[panel.ID]
	if !ok || current.Version != panel.Version {
		return panelserrors.ErrVersionConflict
	}
	panel.Version++
	s.panels[panel.ID] = clonePanel(panel)
	return nil
}

func (s *PanelStore) Promote(ctx context.Context, id string, actor string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	panel, ok := s.panels[id]
	if !ok || panel.IsPublished() {
		return false, nil
	}
	panel.Status = model.StatusPublished
	panel.Version++
	panel.Touch(actor, at)
	s.Promotions++
	return true, nil
}

func (s *PanelStore) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(ctx)
}

func clonePanel(p *model.Panel) *model.Panel {
	c := *p
	c.Panelists = slices.Clone(p.Panelists)
	c.LastModifiedTimeline = slices.Clone(p.LastModifiedTimeline)
	return &c
}

// LockStore mirrors the duplicate-key lock collection.
type LockStore struct {
	mu    sync.Mutex
	locks map[string]model.Lock

	Acquired int
}

func NewLockStore() *LockStore {
	return &LockStore{locks: make(map[string]model.Lock)}
}

func (s *LockStore) Acquire(ctx context.Context, panelID string, ttl time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := panelsrepo.LockKey(panelID)
	now := time.Now()
	if lock, held := s.locks[key]; held && now.Before(lock.ExpiresAt) {
		return "", panelserrors.ErrLockHeld
	}
	lock := model.Lock{ID: key, Owner: uuid.NewString(), CreatedAt: now, ExpiresAt: now.Add(ttl)}
	s.locks[key] = lock
	s.Acquired++
	return lock.Owner, nil
}

func (s *LockStore) Release(ctx context.Context, panelID, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := panelsrepo.LockKey(panelID)
	if lock, held := s.locks[key]; held && lock.Owner == owner {
		delete(s.locks, key)
	}
	return nil
}

// Held reports whether a live lock exists for panelID.
func (s *LockStore) Held(panelID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, held := s.locks[panelsrepo.LockKey(panelID)]
	return held && time.Now().Before(lock.ExpiresAt)
}
