package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	appsrepo "planner/internal/applications/repository"
	panelserrors "planner/internal/panels/errors"
	panelsrepo "planner/internal/panels/repository"
	"planner/internal/scheduling/validator"
	slotserrors "planner/internal/slots/errors"
	slotsrepo "planner/internal/slots/repository"
	timelinerepo "planner/internal/timeline/repository"
	"planner/pkg/config"
	apperrors "planner/pkg/errors"
	"planner/pkg/metrics"
	"planner/pkg/middleware"
	"planner/pkg/model"
	"planner/pkg/retry"
	"planner/pkg/sanitizer"
	"planner/pkg/timecalc"
)

type SchedulingService interface {
	CreatePanel(ctx context.Context, req *model.PanelCreate) (*model.Panel, []*model.Slot, error)
	CreateSlot(ctx context.Context, req *model.SlotCreate) (*model.Slot, error)
	InsertSlotIntoPanel(ctx context.Context, panelID string, slot *model.Slot) (*model.Slot, error)
	RebalancePanelSlotTimes(ctx context.Context, panelID string, req *model.RebalanceRequest) (*model.Panel, []*model.Slot, error)
	UpdatePanel(ctx context.Context, id string, upd *model.PanelUpdate) (*model.Panel, error)
	UpdateSlot(ctx context.Context, id string, upd *model.SlotUpdate) (*model.Slot, error)
	GetPanel(ctx context.Context, id string) (*model.Panel, error)
	GetSlot(ctx context.Context, id string) (*model.Slot, error)
	ListPanelSlots(ctx context.Context, panelID string) ([]*model.Slot, error)
}

type schedulingService struct {
	slots        slotsrepo.SlotRepository
	panels       panelsrepo.PanelRepository
	locks        panelsrepo.LockRepository
	applications appsrepo.ApplicationRepository
	timeline     timelinerepo.TimelineRepository
	validator    *validator.SchedulingValidator
	cfg          *config.Config
	policy       retry.Policy
	now          func() time.Time
}

func NewSchedulingService(
	slots slotsrepo.SlotRepository,
	panels panelsrepo.PanelRepository,
	locks panelsrepo.LockRepository,
	applications appsrepo.ApplicationRepository,
	timeline timelinerepo.TimelineRepository,
	validator *validator.SchedulingValidator,
	cfg *config.Config,
) SchedulingService {
	return &schedulingService{
		slots:        slots,
		panels:       panels,
		locks:        locks,
		applications: applications,
		timeline:     timeline,
		validator:    validator,
		cfg:          cfg,
		policy:       retry.NewPolicy(cfg.ConflictMaxAttempts, cfg.RetryInitialInterval),
		now:          func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

func (s *schedulingService) CreatePanel(ctx context.Context, req *model.PanelCreate) (*model.Panel, []*model.Slot, error) {
	s.applyPanelDefaults(req)
	s.sanitizePanel(req)
	if err := s.validator.ValidatePanelCreate(req); err != nil {
		return nil, nil, s.validationError("Panel validation failed", err)
	}

	if err := timecalc.ValidatePanelWindow(req.Time, req.EndTime, *req.PanelDuration); err != nil {
		s.cfg.Log.Warn("Panel window mismatch", "error", err)
		return nil, nil, apperrors.DurationMismatch(err)
	}

	count, duration, gap := *req.SlotCount, *req.SlotDuration, *req.GapBetweenSlots
	totals := timecalc.ComputeTotals(count, duration, gap)
	available, err := timecalc.AvailableTime(*req.PanelDuration, totals.SlotGapDuration)
	if err != nil {
		s.cfg.Log.Warn("Panel cannot fit its slots", "error", err)
		return nil, nil, apperrors.InsufficientCapacity(err.Error())
	}

	actor := middleware.ActorFromContext(ctx)
	now := s.now()

	panel := &model.Panel{
		PanelName:            req.PanelName,
		SlotType:             req.SlotType,
		PanelType:            req.PanelType,
		InterviewMode:        req.InterviewMode,
		InterviewListID:      req.InterviewListID,
		Panelists:            req.Panelists,
		Time:                 req.Time,
		EndTime:              req.EndTime,
		PanelDuration:        *req.PanelDuration,
		SlotCount:            count,
		SlotDuration:         duration,
		GapBetweenSlots:      gap,
		TotalSlotDuration:    totals.TotalSlotDuration,
		TotalGapBetweenSlots: totals.TotalGapDuration,
		SlotGapDuration:      totals.SlotGapDuration,
		AvailableTime:        available,
		Status:               req.Status,
		UserLimit:            req.UserLimit,
	}
	panel.Touch(actor, now)

	windows := timecalc.Sequence(req.Time, slices.Repeat([]int{duration}, count), gap)
	slots := make([]*model.Slot, 0, len(windows))
	for _, w := range windows {
		slot := panelSlot(panel, w)
		slot.Touch(actor, now)
		slots = append(slots, slot)
	}

	err = s.panels.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		if err := s.panels.Create(txCtx, panel); err != nil {
			return apperrors.Internal("Failed to create panel", err)
		}
		for _, slot := range slots {
			panelID := panel.ID
			slot.PanelID = &panelID
		}
		if err := s.slots.CreateMany(txCtx, slots); err != nil {
			return apperrors.Internal("Failed to create panel slots", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to create panel", "error", err)
		return nil, nil, err
	}

	metrics.PanelsCreated.Inc()
	metrics.SlotsCreated.WithLabelValues("panel").Add(float64(len(slots)))
	s.cfg.Log.Info("Panel created successfully",
		"id", panel.ID,
		"slot_count", panel.SlotCount,
		"time", panel.Time,
		"available_time", panel.AvailableTime,
	)
	s.recordEvent(ctx, panel.ID, timelinerepo.EventPanelCreated, fmt.Sprintf("Panel created with %d slots", len(slots)))

	return panel, slots, nil
}

func (s *schedulingService) CreateSlot(ctx context.Context, req *model.SlotCreate) (*model.Slot, error) {
	s.sanitizeSlot(req)
	if err := s.validator.ValidateSlotCreate(req); err != nil {
		return nil, s.validationError("Slot validation failed", err)
	}

	duration := timecalc.DurationMinutes(req.Time, req.EndTime)
	if duration < 1 {
		return nil, apperrors.Validation("Slot must last at least one minute", map[string]any{"slot_duration": duration})
	}

	slot := &model.Slot{
		SlotType:        req.SlotType,
		InterviewMode:   req.InterviewMode,
		Time:            req.Time,
		EndTime:         req.EndTime,
		SlotDuration:    duration,
		Status:          req.Status,
		AvailableSlot:   model.AvailabilityOpen,
		UserLimit:       req.UserLimit,
		Panelists:       req.Panelists,
		TakeSlot:        emptyTakeSlot(),
		InterviewListID: req.InterviewListID,
	}

	if req.PanelID != "" {
		return s.InsertSlotIntoPanel(ctx, req.PanelID, slot)
	}

	if slot.UserLimit == 0 {
		slot.UserLimit = s.cfg.DefaultUserLimit
	}
	if slot.Status == "" {
		slot.Status = model.StatusDraft
	}
	slot.Touch(middleware.ActorFromContext(ctx), s.now())

	if err := s.slots.Create(ctx, slot); err != nil {
		s.cfg.Log.Error("Failed to create slot", "error", err)
		return nil, apperrors.Internal("Failed to create slot", err)
	}

	metrics.SlotsCreated.WithLabelValues("standalone").Inc()
	s.cfg.Log.Info("Slot created successfully", "id", slot.ID, "time", slot.Time, "end_time", slot.EndTime)
	return slot, nil
}

// InsertSlotIntoPanel adds slot to the panel. If the slot overlaps the panel's
// latest slot it is moved to start one gap after that slot ends.
func (s *schedulingService) InsertSlotIntoPanel(ctx context.Context, panelID string, slot *model.Slot) (*model.Slot, error) {
	panelID = sanitizer.SanitizeID(panelID)
	if err := s.validator.ValidateID("panel_id", panelID); err != nil {
		return nil, s.validationError("Invalid panel ID", err)
	}

	actor := middleware.ActorFromContext(ctx)
	var inserted *model.Slot

	err := s.withPanelLock(ctx, panelID, "insert_slot", func() error {
		panel, err := s.loadPanel(ctx, panelID)
		if err != nil {
			return err
		}
		existing, err := s.slots.FindByPanel(ctx, panelID)
		if err != nil {
			return apperrors.Internal("Failed to load panel slots", err)
		}

		candidate := *slot
		duration := timecalc.DurationMinutes(candidate.Time, candidate.EndTime)
		if panel.AvailableTime < panel.GapBetweenSlots+duration {
			return apperrors.InsufficientCapacity(fmt.Sprintf(
				"Panel has %d minutes available, slot needs %d plus a %d minute gap",
				panel.AvailableTime, duration, panel.GapBetweenSlots))
		}

		if latest := latestEnding(existing); latest != nil &&
			timecalc.Overlaps(candidate.Time, candidate.EndTime, latest.Time, latest.EndTime) {
			candidate.Time = timecalc.EndTime(latest.EndTime, panel.GapBetweenSlots)
			candidate.EndTime = timecalc.EndTime(candidate.Time, duration)
		}

		inheritPanel(&candidate, panel)
		candidate.SlotDuration = duration
		candidate.Touch(actor, s.now())

		durations := make([]int, 0, len(existing)+1)
		for _, e := range existing {
			durations = append(durations, e.SlotDuration)
		}
		durations = append(durations, duration)
		if err := applyTotals(panel, durations, panel.GapBetweenSlots); err != nil {
			return err
		}
		panel.Touch(actor, s.now())

		err = s.panels.ExecuteTransaction(ctx, func(txCtx context.Context) error {
			if err := s.slots.Create(txCtx, &candidate); err != nil {
				return apperrors.Internal("Failed to create slot", err)
			}
			return s.replacePanel(txCtx, panel)
		})
		if err != nil {
			return err
		}

		inserted = &candidate
		return nil
	})
	if err != nil {
		s.logFailure("Failed to insert slot into panel", err, "panel_id", panelID)
		return nil, err
	}

	metrics.SlotsCreated.WithLabelValues("panel").Inc()
	s.cfg.Log.Info("Slot inserted into panel",
		"panel_id", panelID,
		"slot_id", inserted.ID,
		"time", inserted.Time,
		"end_time", inserted.EndTime,
	)
	return inserted, nil
}

func (s *schedulingService) RebalancePanelSlotTimes(ctx context.Context, panelID string, req *model.RebalanceRequest) (*model.Panel, []*model.Slot, error) {
	panelID = sanitizer.SanitizeID(panelID)
	if err := s.validator.ValidateID("panel_id", panelID); err != nil {
		return nil, nil, s.validationError("Invalid panel ID", err)
	}
	if req == nil {
		req = &model.RebalanceRequest{}
	}
	req.FromSlotID = sanitizer.SanitizeID(req.FromSlotID)
	if err := s.validator.ValidateRebalance(req); err != nil {
		return nil, nil, s.validationError("Rebalance validation failed", err)
	}

	actor := middleware.ActorFromContext(ctx)
	var result *model.Panel
	var resultSlots []*model.Slot

	err := s.withPanelLock(ctx, panelID, "rebalance_panel", func() error {
		panel, err := s.loadPanel(ctx, panelID)
		if err != nil {
			return err
		}
		slots, err := s.slots.FindByPanel(ctx, panelID)
		if err != nil {
			return apperrors.Internal("Failed to load panel slots", err)
		}
		if len(slots) == 0 {
			result, resultSlots = panel, slots
			return nil
		}

		for id := range req.SlotDurations {
			if !slices.ContainsFunc(slots, func(sl *model.Slot) bool { return sl.ID == id }) {
				return apperrors.Validation("Slot duration override for a slot outside the panel", map[string]any{"slot_id": id})
			}
		}

		start := 0
		if req.FromSlotID != "" {
			start = slices.IndexFunc(slots, func(sl *model.Slot) bool { return sl.ID == req.FromSlotID })
			if start < 0 {
				return apperrors.NotFoundWithID("Slot in panel", req.FromSlotID)
			}
		}

		gap := panel.GapBetweenSlots
		if req.GapOverride != nil {
			gap = *req.GapOverride
		}

		durations := make([]int, len(slots))
		for i, sl := range slots {
			durations[i] = sl.SlotDuration
			if d, ok := req.SlotDurations[sl.ID]; ok && i >= start {
				durations[i] = d
			}
		}

		windows := timecalc.Sequence(slots[start].Time, durations[start:], gap)
		if last := windows[len(windows)-1]; last.End.After(panel.EndTime) {
			return apperrors.InsufficientCapacity(fmt.Sprintf("Rebalanced slots would end at %s, after the panel ends", last.End.Format(time.RFC3339)))
		}

		panel.GapBetweenSlots = gap
		if err := applyTotals(panel, durations, gap); err != nil {
			return err
		}

		now := s.now()
		changed := make([]*model.Slot, 0, len(windows))
		for i, w := range windows {
			sl := slots[start+i]
			if sl.Time.Equal(w.Start) && sl.EndTime.Equal(w.End) {
				continue
			}
			sl.Time, sl.EndTime, sl.SlotDuration = w.Start, w.End, w.Minutes()
			sl.Touch(actor, now)
			changed = append(changed, sl)
		}
		panel.Touch(actor, now)

		err = s.panels.ExecuteTransaction(ctx, func(txCtx context.Context) error {
			for _, sl := range changed {
				if err := s.replaceSlot(txCtx, sl); err != nil {
					return err
				}
			}
			if err := s.refreshBookings(txCtx, changed); err != nil {
				return err
			}
			return s.replacePanel(txCtx, panel)
		})
		if err != nil {
			return err
		}

		result, resultSlots = panel, slots
		return nil
	})
	if err != nil {
		s.logFailure("Failed to rebalance panel", err, "panel_id", panelID)
		return nil, nil, err
	}

	s.cfg.Log.Info("Panel rebalanced",
		"panel_id", panelID,
		"gap_between_slots", result.GapBetweenSlots,
		"available_time", result.AvailableTime,
	)
	s.recordEvent(ctx, panelID, timelinerepo.EventPanelRebalanced, fmt.Sprintf("Panel slots re-timed, %d minutes available", result.AvailableTime))
	return result, resultSlots, nil
}

func (s *schedulingService) UpdatePanel(ctx context.Context, id string, upd *model.PanelUpdate) (*model.Panel, error) {
	id = sanitizer.SanitizeID(id)
	if err := s.validator.ValidateID("id", id); err != nil {
		return nil, s.validationError("Invalid panel ID", err)
	}
	sanitizePanelUpdate(upd)
	if err := s.validator.ValidatePanelUpdate(upd); err != nil {
		return nil, s.validationError("Panel update validation failed", err)
	}

	actor := middleware.ActorFromContext(ctx)
	var updated *model.Panel

	err := s.withPanelLock(ctx, id, "update_panel", func() error {
		panel, err := s.loadPanel(ctx, id)
		if err != nil {
			return err
		}
		slots, err := s.slots.FindByPanel(ctx, id)
		if err != nil {
			return apperrors.Internal("Failed to load panel slots", err)
		}

		upd.PanelName.Apply(&panel.PanelName)
		upd.InterviewMode.Apply(&panel.InterviewMode)
		upd.Panelists.Apply(&panel.Panelists)
		s.applyUserLimit(upd.UserLimit, &panel.UserLimit)
		if panel.Panelists == nil {
			panel.Panelists = []string{}
		}

		now := s.now()
		changed := make([]*model.Slot, 0, len(slots))
		if !propagatesToSlots(upd) {
			slots = nil
		}
		for _, sl := range slots {
			upd.InterviewMode.Apply(&sl.InterviewMode)
			upd.Panelists.Apply(&sl.Panelists)
			if sl.Panelists == nil {
				sl.Panelists = []string{}
			}
			if !upd.UserLimit.IsUnset() {
				if panel.UserLimit < sl.BookedUser {
					return apperrors.Validation("user_limit is below the bookings of a panel slot",
						map[string]any{"slot_id": sl.ID, "booked_user": sl.BookedUser, "user_limit": panel.UserLimit})
				}
				sl.UserLimit = panel.UserLimit
				sl.RefreshAvailability()
			}
			sl.Touch(actor, now)
			changed = append(changed, sl)
		}
		panel.Touch(actor, now)

		err = s.panels.ExecuteTransaction(ctx, func(txCtx context.Context) error {
			for _, sl := range changed {
				if err := s.replaceSlot(txCtx, sl); err != nil {
					return err
				}
			}
			if upd.InterviewMode.IsSet() {
				if err := s.refreshBookings(txCtx, changed); err != nil {
					return err
				}
			}
			return s.replacePanel(txCtx, panel)
		})
		if err != nil {
			return err
		}

		updated = panel
		return nil
	})
	if err != nil {
		s.logFailure("Failed to update panel", err, "id", id)
		return nil, err
	}

	s.cfg.Log.Info("Panel updated successfully", "id", id)
	return updated, nil
}

func (s *schedulingService) UpdateSlot(ctx context.Context, id string, upd *model.SlotUpdate) (*model.Slot, error) {
	id = sanitizer.SanitizeID(id)
	if err := s.validator.ValidateID("id", id); err != nil {
		return nil, s.validationError("Invalid slot ID", err)
	}
	sanitizeSlotUpdate(upd)
	if err := s.validator.ValidateSlotUpdate(upd); err != nil {
		return nil, s.validationError("Slot update validation failed", err)
	}

	actor := middleware.ActorFromContext(ctx)
	var updated *model.Slot

	err := retry.OnConflict(ctx, s.policy, "update_slot", func() error {
		slot, err := s.loadSlot(ctx, id)
		if err != nil {
			return err
		}

		if (upd.Time.IsSet() || upd.EndTime.IsSet()) && slot.InPanel() {
			return apperrors.Validation("Panel slots are re-timed through a panel rebalance", map[string]any{"panel_id": *slot.PanelID})
		}

		upd.InterviewMode.Apply(&slot.InterviewMode)
		upd.Panelists.Apply(&slot.Panelists)
		upd.InterviewListID.Apply(&slot.InterviewListID)
		upd.Time.Apply(&slot.Time)
		upd.EndTime.Apply(&slot.EndTime)
		s.applyUserLimit(upd.UserLimit, &slot.UserLimit)
		if slot.Panelists == nil {
			slot.Panelists = []string{}
		}

		if slot.UserLimit < slot.BookedUser {
			return apperrors.Validation("user_limit cannot be below booked_user",
				map[string]any{"booked_user": slot.BookedUser, "user_limit": slot.UserLimit})
		}
		duration := timecalc.DurationMinutes(slot.Time, slot.EndTime)
		if duration < 1 {
			return apperrors.Validation("end_time must be at least one minute after time", nil)
		}
		slot.SlotDuration = duration
		slot.RefreshAvailability()
		slot.Touch(actor, s.now())

		err = s.slots.ExecuteTransaction(ctx, func(txCtx context.Context) error {
			if err := s.replaceSlot(txCtx, slot); err != nil {
				return err
			}
			if upd.Time.IsSet() || upd.EndTime.IsSet() || upd.InterviewMode.IsSet() {
				return s.refreshBookings(txCtx, []*model.Slot{slot})
			}
			return nil
		})
		if err != nil {
			return err
		}
		updated = slot
		return nil
	})
	if err != nil {
		s.logFailure("Failed to update slot", err, "id", id)
		return nil, err
	}

	s.cfg.Log.Info("Slot updated successfully", "id", id)
	return updated, nil
}

// refreshBookings repoints the meeting details of every application booked into
// slots at their current time and mode.
func (s *schedulingService) refreshBookings(ctx context.Context, slots []*model.Slot) error {
	for _, sl := range slots {
		details := model.MeetingDetailsFor(sl)
		for _, id := range sl.TakeSlot.ApplicationIDs {
			if err := s.applications.RefreshMeetingDetails(ctx, id, details); err != nil {
				return apperrors.Internal("Failed to refresh meeting details", err)
			}
		}
	}
	return nil
}

func (s *schedulingService) GetPanel(ctx context.Context, id string) (*model.Panel, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Panel ID cannot be empty")
	}
	return s.loadPanel(ctx, sanitizer.SanitizeID(id))
}

func (s *schedulingService) GetSlot(ctx context.Context, id string) (*model.Slot, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Slot ID cannot be empty")
	}
	return s.loadSlot(ctx, sanitizer.SanitizeID(id))
}

func (s *schedulingService) ListPanelSlots(ctx context.Context, panelID string) ([]*model.Slot, error) {
	panel, err := s.GetPanel(ctx, panelID)
	if err != nil {
		return nil, err
	}
	slots, err := s.slots.FindByPanel(ctx, panel.ID)
	if err != nil {
		return nil, apperrors.Internal("Failed to load panel slots", err)
	}
	return slots, nil
}

// withPanelLock runs fn while holding the panel's advisory lock. Lock
// contention and version conflicts inside fn are retried with backoff.
func (s *schedulingService) withPanelLock(ctx context.Context, panelID, operation string, fn func() error) error {
	return retry.OnConflict(ctx, s.policy, operation, func() error {
		owner, err := s.locks.Acquire(ctx, panelID, s.cfg.PanelLockTTL)
		if err != nil {
			if errors.Is(err, panelserrors.ErrLockHeld) {
				return apperrors.ConcurrencyConflict("Panel is being modified by another request", err)
			}
			return apperrors.Internal("Failed to lock panel", err)
		}
		defer func() {
			if err := s.locks.Release(context.WithoutCancel(ctx), panelID, owner); err != nil {
				s.cfg.Log.Warn("Failed to release panel lock", "panel_id", panelID, "error", err)
			}
		}()
		return fn()
	})
}

func (s *schedulingService) loadPanel(ctx context.Context, id string) (*model.Panel, error) {
	panel, err := s.panels.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, panelserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Panel", id)
		}
		if errors.Is(err, panelserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid panel ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve panel", err)
	}
	return panel, nil
}

func (s *schedulingService) loadSlot(ctx context.Context, id string) (*model.Slot, error) {
	slot, err := s.slots.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, slotserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Slot", id)
		}
		if errors.Is(err, slotserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid slot ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve slot", err)
	}
	return slot, nil
}

func (s *schedulingService) replacePanel(ctx context.Context, panel *model.Panel) error {
	if err := s.panels.Replace(ctx, panel); err != nil {
		if errors.Is(err, panelserrors.ErrVersionConflict) {
			return apperrors.ConcurrencyConflict("Panel was modified concurrently", err)
		}
		return apperrors.Internal("Failed to update panel", err)
	}
	return nil
}

func (s *schedulingService) replaceSlot(ctx context.Context, slot *model.Slot) error {
	if err := s.slots.Replace(ctx, slot); err != nil {
		if errors.Is(err, slotserrors.ErrVersionConflict) {
			return apperrors.ConcurrencyConflict("Slot was modified concurrently", err)
		}
		return apperrors.Internal("Failed to update slot", err)
	}
	return nil
}

func (s *schedulingService) applyUserLimit(f model.Field[int], dst *int) {
	switch {
	case f.IsSet():
		*dst = f.Value()
	case f.IsClear():
		*dst = s.cfg.DefaultUserLimit
	}
}

func (s *schedulingService) applyPanelDefaults(req *model.PanelCreate) {
	if req.UserLimit == 0 {
		req.UserLimit = s.cfg.DefaultUserLimit
	}
	if req.Status == "" {
		req.Status = model.StatusDraft
	}
	if strings.TrimSpace(req.InterviewMode) == "" {
		req.InterviewMode = model.DefaultInterviewMode
	}
}

func (s *schedulingService) sanitizePanel(req *model.PanelCreate) {
	req.PanelName = sanitizer.NormalizeName(req.PanelName)
	req.SlotType = strings.ToUpper(strings.TrimSpace(req.SlotType))
	req.PanelType = sanitizer.NormalizeLabel(req.PanelType)
	req.InterviewMode = sanitizer.SanitizeMode(req.InterviewMode)
	req.InterviewListID = sanitizer.SanitizeID(req.InterviewListID)
	req.Panelists = sanitizer.NormalizeIDs(req.Panelists)
	req.Status = sanitizer.NormalizeLabel(req.Status)
}

func (s *schedulingService) sanitizeSlot(req *model.SlotCreate) {
	req.SlotType = strings.ToUpper(strings.TrimSpace(req.SlotType))
	req.InterviewMode = sanitizer.SanitizeMode(req.InterviewMode)
	req.Panelists = sanitizer.NormalizeIDs(req.Panelists)
	req.PanelID = sanitizer.SanitizeID(req.PanelID)
	req.InterviewListID = sanitizer.SanitizeID(req.InterviewListID)
	req.Status = sanitizer.NormalizeLabel(req.Status)
}

func sanitizePanelUpdate(upd *model.PanelUpdate) {
	if upd.PanelName.IsSet() {
		upd.PanelName = model.Set(sanitizer.NormalizeName(upd.PanelName.Value()))
	}
	if upd.InterviewMode.IsSet() {
		upd.InterviewMode = model.Set(sanitizer.SanitizeMode(upd.InterviewMode.Value()))
	}
	if upd.Panelists.IsSet() {
		upd.Panelists = model.Set(sanitizer.NormalizeIDs(upd.Panelists.Value()))
	}
}

func sanitizeSlotUpdate(upd *model.SlotUpdate) {
	if upd.InterviewMode.IsSet() {
		upd.InterviewMode = model.Set(sanitizer.SanitizeMode(upd.InterviewMode.Value()))
	}
	if upd.Panelists.IsSet() {
		upd.Panelists = model.Set(sanitizer.NormalizeIDs(upd.Panelists.Value()))
	}
	if upd.InterviewListID.IsSet() {
		upd.InterviewListID = model.Set(sanitizer.SanitizeID(upd.InterviewListID.Value()))
	}
}

func (s *schedulingService) validationError(message string, err error) error {
	s.cfg.Log.Warn(message, "error", err)
	return apperrors.Validation(message, map[string]any{"error": err.Error()})
}

func (s *schedulingService) recordEvent(ctx context.Context, entityID, eventType, message string) {
	if err := s.timeline.RecordEvent(ctx, entityID, eventType, timelinerepo.StatusSuccess, message); err != nil {
		s.cfg.Log.Warn("Failed to record timeline event", "entity_id", entityID, "event_type", eventType, "error", err)
	}
}

func (s *schedulingService) logFailure(msg string, err error, args ...any) {
	args = append(args, "error", err)
	if apperrors.HasCode(err, apperrors.CodeInternal) {
		s.cfg.Log.Error(msg, args...)
		return
	}
	s.cfg.Log.Warn(msg, args...)
}

func propagatesToSlots(upd *model.PanelUpdate) bool {
	return !upd.InterviewMode.IsUnset() || !upd.Panelists.IsUnset() || !upd.UserLimit.IsUnset()
}

// applyTotals recomputes the panel aggregates for the given slot durations.
func applyTotals(panel *model.Panel, durations []int, gap int) error {
	totals := timecalc.TotalsFromDurations(durations, gap)
	available, err := timecalc.AvailableTime(panel.PanelDuration, totals.SlotGapDuration)
	if err != nil {
		return apperrors.InsufficientCapacity(err.Error())
	}
	panel.SlotCount = len(durations)
	panel.TotalSlotDuration = totals.TotalSlotDuration
	panel.TotalGapBetweenSlots = totals.TotalGapDuration
	panel.SlotGapDuration = totals.SlotGapDuration
	panel.AvailableTime = available
	return nil
}

func panelSlot(panel *model.Panel, w timecalc.Window) *model.Slot {
	return &model.Slot{
		SlotType:        panel.SlotType,
		InterviewMode:   panel.InterviewMode,
		Time:            w.Start,
		EndTime:         w.End,
		SlotDuration:    w.Minutes(),
		Status:          panel.Status,
		AvailableSlot:   model.AvailabilityOpen,
		UserLimit:       panel.UserLimit,
		Panelists:       slices.Clone(panel.Panelists),
		TakeSlot:        emptyTakeSlot(),
		InterviewListID: panel.InterviewListID,
	}
}

// inheritPanel fills slot fields left empty from the panel. A slot added to a
// published panel is published too, so the panel stays fully published.
func inheritPanel(slot *model.Slot, panel *model.Panel) {
	panelID := panel.ID
	slot.PanelID = &panelID
	slot.Panelists = slices.Clone(slot.Panelists)
	if slot.UserLimit == 0 {
		slot.UserLimit = panel.UserLimit
	}
	if slot.InterviewListID == "" {
		slot.InterviewListID = panel.InterviewListID
	}
	if slot.Status == "" || panel.IsPublished() {
		slot.Status = panel.Status
	}
	slot.AvailableSlot = model.AvailabilityOpen
	slot.TakeSlot = emptyTakeSlot()
	slot.BookedUser = 0
}

func latestEnding(slots []*model.Slot) *model.Slot {
	var latest *model.Slot
	for _, sl := range slots {
		if latest == nil || sl.EndTime.After(latest.EndTime) {
			latest = sl
		}
	}
	return latest
}

func emptyTakeSlot() model.TakeSlot {
	return model.TakeSlot{ApplicationIDs: []string{}, PanelistIDs: []string{}}
}
