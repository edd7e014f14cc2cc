// Package testutil provides in-memory stores that honor the same version and
// lock semantics as the Mongo repositories.
package testutil

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	slotserrors "planner/internal/slots/errors"
	slotsrepo "planner/internal/slots/repository"
	mongotx "planner/pkg/db/mongo"
	"planner/pkg/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var _ slotsrepo.SlotRepository = (*SlotStore)(nil)

type SlotStore struct {
	mu    sync.Mutex
	slots map[string]*model.Slot

	// ReplaceErr, when set, is returned by Replace instead of writing.
	ReplaceErr   error
	Replaces     int
	Transactions int
}

func NewSlotStore() *SlotStore {
	return &SlotStore{slots: make(map[string]*model.Slot)}
}

// Put stores slot as-is, assigning an id and version when missing.
func (s *SlotStore) Put(slot *model.Slot) *model.Slot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slot.ID == "" {
		slot.ID = primitive.NewObjectID().Hex()
	}
	if slot.Version == 0 {
		slot.Version = 1
	}
	s.slots[slot.ID] = CloneSlot(slot)
	return slot
}

// Get returns a copy of the stored slot, or nil.
func (s *SlotStore) Get(id string) *model.Slot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slot, ok := s.slots[id]; ok {
		return CloneSlot(slot)
	}
	return nil
}

func (s *SlotStore) Create(ctx context.Context, slot *model.Slot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insert(slot)
	return nil
}

func (s *SlotStore) CreateMany(ctx context.Context, slots []*model.Slot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, slot := range slots {
		s.insert(slot)
	}
	return nil
}

func (s *SlotStore) insert(slot *model.Slot) {
	now := time.Now().UTC()
	slot.ID = primitive.NewObjectID().Hex()
	slot.Version = 1
	slot.CreatedAt = now
	slot.UpdatedAt = now
	s.slots[slot.ID] = CloneSlot(slot)
}

func (s *SlotStore) FindByID(ctx context.Context, id string) (*model.Slot, error) {
	if !primitive.IsValidObjectID(id) {
		return nil, slotserrors.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.slots[id]
	if !ok {
		return nil, slotserrors.ErrNotFound
	}
	return CloneSlot(slot), nil
}

func (s *SlotStore) FindByIDs(ctx context.Context, ids []string) ([]*model.Slot, error) {
	for _, id := range ids {
		if !primitive.IsValidObjectID(id) {
			return nil, slotserrors.ErrInvalidID
		}
	}
	return s.filter(func(slot *model.Slot) bool { return slices.Contains(ids, slot.ID) }), nil
}

func (s *SlotStore) FindByPanel(ctx context.Context, panelID string) ([]*model.Slot, error) {
	return s.filter(func(slot *model.Slot) bool { return slot.InPanel() && *slot.PanelID == panelID }), nil
}

func (s *SlotStore) FindByTimeRange(ctx context.Context, from, to time.Time) ([]*model.Slot, error) {
	return s.filter(func(slot *model.Slot) bool {
		return !slot.Time.Before(from) && slot.Time.Before(to)
	}), nil
}

func (s *SlotStore) filter(match func(*model.Slot) bool) []*model.Slot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*model.Slot{}
	for _, slot := range s.slots {
		if match(slot) {
			out = append(out, CloneSlot(slot))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out
}

func (s *SlotStore) Replace(ctx context.Context, slot *model.Slot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ReplaceErr != nil {
		return s.ReplaceErr
	}
	current, ok := s.slots[slot.ID]
	if !ok || current.Version != slot.Version {
		return slotserrors.ErrVersionConflict
	}
	slot.Version++
	s.slots[slot.ID] = CloneSlot(slot)
	s.Replaces++
	return nil
}

func (s *SlotStore) PublishMany(ctx context.Context, ids []string, panelIDs []string, actor string, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var modified int64
	for _, slot := range s.slots {
		if slot.IsPublished() {
			continue
		}
		inPanel := slot.InPanel() && slices.Contains(panelIDs, *slot.PanelID)
		if !slices.Contains(ids, slot.ID) && !inPanel {
			continue
		}
		slot.Status = model.StatusPublished
		slot.Version++
		slot.Touch(actor, at)
		modified++
	}
	return modified, nil
}

func (s *SlotStore) PublishOne(ctx context.Context, id string, actor string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.slots[id]
	if !ok || slot.IsPublished() {
		return false, nil
	}
	slot.Status = model.StatusPublished
	slot.Version++
	slot.Touch(actor, at)
	return true, nil
}

func (s *SlotStore) CountUnpublishedInPanel(ctx context.Context, panelID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, slot := range s.slots {
		if slot.InPanel() && *slot.PanelID == panelID && !slot.IsPublished() {
			count++
		}
	}
	return count, nil
}

func (s *SlotStore) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	s.mu.Lock()
	s.Transactions++
	s.mu.Unlock()
	return fn(ctx)
}

func CloneSlot(slot *model.Slot) *model.Slot {
	c := *slot
	c.Panelists = slices.Clone(slot.Panelists)
	c.TakeSlot.ApplicationIDs = slices.Clone(slot.TakeSlot.ApplicationIDs)
	c.TakeSlot.PanelistIDs = slices.Clone(slot.TakeSlot.PanelistIDs)
	c.LastModifiedTimeline = slices.Clone(slot.LastModifiedTimeline)
	if slot.PanelID != nil {
		id := *slot.PanelID
		c.PanelID = &id
	}
	return &c
}
