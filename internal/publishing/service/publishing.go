package service

import (
	"context"
	"slices"
	"time"

	dirrepo "planner/internal/directory/repository"
	"planner/internal/notifications"
	panelsrepo "planner/internal/panels/repository"
	slotsrepo "planner/internal/slots/repository"
	timelinerepo "planner/internal/timeline/repository"
	"planner/pkg/config"
	apperrors "planner/pkg/errors"
	"planner/pkg/metrics"
	"planner/pkg/middleware"
	"planner/pkg/model"
	"planner/pkg/sanitizer"
	"planner/pkg/timecalc"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PublishService interface {
	// PublishByIDs publishes the given slots and panels, or everything
	// scheduled on asOf's day when ids is empty.
	PublishByIDs(ctx context.Context, ids []string, asOf *time.Time) (*PublishResult, error)
}

type PublishResult struct {
	PublishedSlots int64    `json:"published_slots"`
	PromotedPanels []string `json:"promoted_panels"`
	PendingPanels  []string `json:"pending_panels"`
	Unresolved     []string `json:"unresolved,omitempty"`
}

type publishService struct {
	slots     slotsrepo.SlotRepository
	panels    panelsrepo.PanelRepository
	directory dirrepo.Directory
	timeline  timelinerepo.TimelineRepository
	notifier  notifications.Notifier
	cfg       *config.Config
	now       func() time.Time
}

func NewPublishService(
	slots slotsrepo.SlotRepository,
	panels panelsrepo.PanelRepository,
	directory dirrepo.Directory,
	timeline timelinerepo.TimelineRepository,
	notifier notifications.Notifier,
	cfg *config.Config,
) PublishService {
	return &publishService{
		slots:     slots,
		panels:    panels,
		directory: directory,
		timeline:  timeline,
		notifier:  notifier,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

// resolution is the set of slots and panels a publish request names.
type resolution struct {
	slots      []*model.Slot
	panelIDs   []string
	unresolved []string
}

func (s *publishService) PublishByIDs(ctx context.Context, ids []string, asOf *time.Time) (*PublishResult, error) {
	ids = sanitizer.NormalizeIDs(ids)
	if len(ids) == 0 && asOf == nil {
		s.cfg.Log.Warn("Publish request without ids or date")
		return nil, apperrors.Validation("Either ids or date is required", map[string]any{"fields": []string{"ids", "date"}})
	}
	if len(ids) > 0 && asOf != nil {
		s.cfg.Log.Warn("Publish request with both ids and date")
		return nil, apperrors.Validation("Only one of ids or date may be given", map[string]any{"fields": []string{"ids", "date"}})
	}

	var res *resolution
	var err error
	if len(ids) > 0 {
		res, err = s.resolveIDs(ctx, ids)
	} else {
		res, err = s.resolveDay(ctx, *asOf)
	}
	if err != nil {
		s.cfg.Log.Error("Failed to resolve publish targets", "error", err)
		return nil, err
	}
	if len(res.slots) == 0 && len(res.panelIDs) == 0 {
		if len(ids) > 0 {
			return nil, apperrors.NotFound("Slots or panels for the given ids").
				WithDetails(map[string]any{"ids": res.unresolved})
		}
		return &PublishResult{PromotedPanels: []string{}, PendingPanels: []string{}}, nil
	}

	actor := middleware.ActorFromContext(ctx)
	now := s.now()

	var panelSlotIDs []string
	var standalone []*model.Slot
	for _, slot := range res.slots {
		if slot.InPanel() {
			panelSlotIDs = append(panelSlotIDs, slot.ID)
		} else {
			standalone = append(standalone, slot)
		}
	}

	published, err := s.slots.PublishMany(ctx, panelSlotIDs, res.panelIDs, actor, now)
	if err != nil {
		s.cfg.Log.Error("Failed to publish slots", "error", err)
		return nil, apperrors.Internal("Failed to publish slots", err)
	}

	// Standalone slots have no panel promotion. Only the call that flips a
	// slot to published notifies its occupants.
	for _, slot := range standalone {
		flipped, err := s.slots.PublishOne(ctx, slot.ID, actor, now)
		if err != nil {
			s.cfg.Log.Error("Failed to publish slot", "slot_id", slot.ID, "error", err)
			return nil, apperrors.Internal("Failed to publish slot", err)
		}
		if !flipped {
			continue
		}
		published++
		slot.Status = model.StatusPublished
		s.notifyOccupants(ctx, slot)
	}
	metrics.SlotsPublished.Add(float64(published))

	result := &PublishResult{
		PublishedSlots: published,
		PromotedPanels: []string{},
		PendingPanels:  []string{},
		Unresolved:     res.unresolved,
	}

	for _, panelID := range promotionCandidates(res) {
		promoted, err := s.promote(ctx, panelID, actor, now)
		if err != nil {
			s.cfg.Log.Error("Failed to promote panel", "panel_id", panelID, "error", err)
			return nil, err
		}
		if promoted {
			result.PromotedPanels = append(result.PromotedPanels, panelID)
		} else {
			result.PendingPanels = append(result.PendingPanels, panelID)
		}
	}

	s.cfg.Log.Info("Publish completed",
		"published_slots", result.PublishedSlots,
		"promoted_panels", len(result.PromotedPanels),
		"pending_panels", len(result.PendingPanels),
		"unresolved", len(result.Unresolved),
	)
	return result, nil
}

func (s *publishService) resolveIDs(ctx context.Context, ids []string) (*resolution, error) {
	res := &resolution{}
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if primitive.IsValidObjectID(id) {
			valid = append(valid, id)
		} else {
			res.unresolved = append(res.unresolved, id)
		}
	}
	if len(valid) == 0 {
		return res, nil
	}

	slots, err := s.slots.FindByIDs(ctx, valid)
	if err != nil {
		return nil, apperrors.Internal("Failed to load slots", err)
	}
	panels, err := s.panels.FindByIDs(ctx, valid)
	if err != nil {
		return nil, apperrors.Internal("Failed to load panels", err)
	}

	res.slots = slots
	for _, p := range panels {
		res.panelIDs = append(res.panelIDs, p.ID)
	}
	for _, id := range valid {
		found := slices.Contains(res.panelIDs, id) ||
			slices.ContainsFunc(slots, func(sl *model.Slot) bool { return sl.ID == id })
		if !found {
			res.unresolved = append(res.unresolved, id)
		}
	}
	return res, nil
}

func (s *publishService) resolveDay(ctx context.Context, date time.Time) (*resolution, error) {
	from, to := timecalc.DayRange(date)

	slots, err := s.slots.FindByTimeRange(ctx, from, to)
	if err != nil {
		return nil, apperrors.Internal("Failed to load slots", err)
	}
	panels, err := s.panels.FindByTimeRange(ctx, from, to)
	if err != nil {
		return nil, apperrors.Internal("Failed to load panels", err)
	}

	res := &resolution{slots: slots}
	for _, p := range panels {
		res.panelIDs = append(res.panelIDs, p.ID)
	}
	return res, nil
}

// promote publishes the panel once all of its slots are published. Only the
// caller whose conditional update flips the status notifies the occupants.
func (s *publishService) promote(ctx context.Context, panelID, actor string, now time.Time) (bool, error) {
	unpublished, err := s.slots.CountUnpublishedInPanel(ctx, panelID)
	if err != nil {
		return false, apperrors.Internal("Failed to count unpublished slots", err)
	}
	if unpublished > 0 {
		return false, nil
	}

	promoted, err := s.panels.Promote(ctx, panelID, actor, now)
	if err != nil {
		return false, apperrors.Internal("Failed to promote panel", err)
	}
	if !promoted {
		return false, nil
	}

	metrics.PanelsPromoted.Inc()
	s.cfg.Log.Info("Panel promoted to published", "panel_id", panelID)
	if err := s.timeline.RecordEvent(ctx, panelID, timelinerepo.EventPanelPublished, timelinerepo.StatusSuccess, "All panel slots published"); err != nil {
		s.cfg.Log.Warn("Failed to record timeline event", "entity_id", panelID, "error", err)
	}

	slots, err := s.slots.FindByPanel(ctx, panelID)
	if err != nil {
		s.cfg.Log.Warn("Failed to load promoted panel slots for notification", "panel_id", panelID, "error", err)
		return true, nil
	}
	for _, slot := range slots {
		s.notifyOccupants(ctx, slot)
	}
	return true, nil
}

func (s *publishService) notifyOccupants(ctx context.Context, slot *model.Slot) {
	for _, id := range slot.TakeSlot.ApplicationIDs {
		occupant := model.Occupant{ID: id, Type: model.OccupantApplication}
		if application, err := s.directory.FindApplicationByID(ctx, id); err == nil {
			occupant.Name, occupant.Email = application.Name, application.Email
		} else {
			s.cfg.Log.Warn("Failed to resolve application for notification", "application_id", id, "error", err)
		}
		s.notifier.NotifyBooked(occupant, slot)
	}
	for _, id := range slot.TakeSlot.PanelistIDs {
		occupant := model.Occupant{ID: id, Type: model.OccupantPanelist}
		if panelist, err := s.directory.FindPanelistByID(ctx, id); err == nil {
			occupant.Name, occupant.Email = panelist.Name, panelist.Email
		} else {
			s.cfg.Log.Warn("Failed to resolve panelist for notification", "panelist_id", id, "error", err)
		}
		s.notifier.NotifyBooked(occupant, slot)
	}
}

// promotionCandidates is every resolved panel plus the panels owning resolved slots.
func promotionCandidates(res *resolution) []string {
	out := slices.Clone(res.panelIDs)
	for _, slot := range res.slots {
		if slot.InPanel() && !slices.Contains(out, *slot.PanelID) {
			out = append(out, *slot.PanelID)
		}
	}
	return out
}
