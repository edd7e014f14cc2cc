package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	appserrors "planner/internal/applications/errors"
	appsrepo "planner/internal/applications/repository"
	"planner/internal/bookings/validator"
	direrrors "planner/internal/directory/errors"
	dirrepo "planner/internal/directory/repository"
	"planner/internal/notifications"
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
)

const (
	MessageAssigned        = "Application assigned to slot"
	MessageSlotFull        = "Slot is already full"
	MessageAlreadyAssigned = "Application is already assigned to this slot"
)

type BookingService interface {
	TakeSlot(ctx context.Context, slotID, occupantID string, kind model.OccupantType) (*model.Slot, error)
	// AssignApplication is TakeSlot for applications that reports a full or
	// duplicate booking as an unassigned result instead of an error.
	AssignApplication(ctx context.Context, slotID, applicationID string) (*AssignResult, error)
	ReleaseSlot(ctx context.Context, slotID, occupantID string, kind model.OccupantType) (*model.Slot, error)
	ReleaseAllOccupants(ctx context.Context, slotID string) ([]model.Occupant, error)
}

type AssignResult struct {
	Assigned bool        `json:"assigned"`
	Message  string      `json:"message"`
	Slot     *model.Slot `json:"slot,omitempty"`
}

type bookingService struct {
	slots        slotsrepo.SlotRepository
	applications appsrepo.ApplicationRepository
	lists        appsrepo.InterviewListRepository
	directory    dirrepo.Directory
	timeline     timelinerepo.TimelineRepository
	notifier     notifications.Notifier
	validator    *validator.BookingValidator
	cfg          *config.Config
	policy       retry.Policy
	now          func() time.Time
}

func NewBookingService(
	slots slotsrepo.SlotRepository,
	applications appsrepo.ApplicationRepository,
	lists appsrepo.InterviewListRepository,
	directory dirrepo.Directory,
	timeline timelinerepo.TimelineRepository,
	notifier notifications.Notifier,
	validator *validator.BookingValidator,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		slots:        slots,
		applications: applications,
		lists:        lists,
		directory:    directory,
		timeline:     timeline,
		notifier:     notifier,
		validator:    validator,
		cfg:          cfg,
		policy:       retry.NewPolicy(cfg.ConflictMaxAttempts, cfg.RetryInitialInterval),
		now:          func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

func (s *bookingService) TakeSlot(ctx context.Context, slotID, occupantID string, kind model.OccupantType) (*model.Slot, error) {
	slotID, occupantID = sanitizer.SanitizeID(slotID), sanitizer.SanitizeID(occupantID)
	if err := s.validate(slotID, occupantID, kind); err != nil {
		return nil, err
	}

	occupant, err := s.lookupOccupant(ctx, occupantID, kind)
	if err != nil {
		return nil, err
	}

	actor := middleware.ActorFromContext(ctx)
	var booked, full *model.Slot

	err = retry.OnConflict(ctx, s.policy, "take_slot", func() error {
		full = nil
		return s.slots.ExecuteTransaction(ctx, func(txCtx context.Context) error {
			slot, err := s.loadSlot(txCtx, slotID)
			if err != nil {
				return err
			}

			if kind == model.OccupantApplication && slot.IsFull() {
				full = slot
				return apperrors.SlotFull(slotID)
			}
			if slot.HasOccupant(occupantID, kind) {
				return apperrors.AlreadyAssigned(occupantLabel(kind), slotID)
			}
			if kind == model.OccupantPanelist && len(slot.TakeSlot.PanelistIDs) >= model.MaxPanelistsPerSlot {
				return apperrors.CapacityExceeded(fmt.Sprintf("A slot can have at most %d panelists", model.MaxPanelistsPerSlot))
			}

			slot.AddOccupant(occupantID, kind)
			slot.Touch(actor, s.now())
			if err := s.replaceSlot(txCtx, slot); err != nil {
				return err
			}

			if kind == model.OccupantApplication {
				if err := s.attachApplication(txCtx, slot, occupantID); err != nil {
					return err
				}
			}

			booked = slot
			return nil
		})
	})

	metrics.SlotsTaken.WithLabelValues(string(kind), metrics.Outcome(err)).Inc()
	if err != nil {
		if full != nil {
			s.closeSlot(ctx, full, actor)
		}
		s.logFailure("Failed to take slot", err, "slot_id", slotID, "occupant_id", occupantID, "occupant_type", kind)
		return nil, err
	}

	s.cfg.Log.Info("Slot taken",
		"slot_id", booked.ID,
		"occupant_id", occupantID,
		"occupant_type", kind,
		"booked_user", booked.BookedUser,
		"available_slot", booked.AvailableSlot,
	)

	s.recordEvent(ctx, booked.ID, timelinerepo.EventSlotBooked, fmt.Sprintf("%s %s booked slot %s", kind, occupantID, booked.ID))
	// Draft slots are announced when their panel is published.
	if booked.IsPublished() {
		s.notifier.NotifyBooked(*occupant, booked)
	}

	return booked, nil
}

func (s *bookingService) AssignApplication(ctx context.Context, slotID, applicationID string) (*AssignResult, error) {
	slot, err := s.TakeSlot(ctx, slotID, applicationID, model.OccupantApplication)
	switch {
	case err == nil:
		return &AssignResult{Assigned: true, Message: MessageAssigned, Slot: slot}, nil
	case apperrors.HasCode(err, apperrors.CodeSlotFull):
		return &AssignResult{Assigned: false, Message: MessageSlotFull}, nil
	case apperrors.HasCode(err, apperrors.CodeAlreadyAssigned):
		return &AssignResult{Assigned: false, Message: MessageAlreadyAssigned}, nil
	default:
		return nil, err
	}
}

func (s *bookingService) ReleaseSlot(ctx context.Context, slotID, occupantID string, kind model.OccupantType) (*model.Slot, error) {
	slotID, occupantID = sanitizer.SanitizeID(slotID), sanitizer.SanitizeID(occupantID)
	if err := s.validate(slotID, occupantID, kind); err != nil {
		return nil, err
	}

	actor := middleware.ActorFromContext(ctx)
	var released *model.Slot

	err := retry.OnConflict(ctx, s.policy, "release_slot", func() error {
		return s.slots.ExecuteTransaction(ctx, func(txCtx context.Context) error {
			slot, err := s.loadSlot(txCtx, slotID)
			if err != nil {
				return err
			}
			if !slot.RemoveOccupant(occupantID, kind) {
				return apperrors.NotFoundWithID(occupantLabel(kind)+" in slot", occupantID)
			}
			slot.Touch(actor, s.now())
			if err := s.replaceSlot(txCtx, slot); err != nil {
				return err
			}

			if kind == model.OccupantApplication {
				if err := s.applications.ClearMeetingDetails(txCtx, occupantID, slot.ID); err != nil {
					return s.mapApplicationError(err, occupantID)
				}
			}

			released = slot
			return nil
		})
	})
	if err != nil {
		s.logFailure("Failed to release slot", err, "slot_id", slotID, "occupant_id", occupantID, "occupant_type", kind)
		return nil, err
	}

	metrics.SlotsReleased.WithLabelValues(string(kind)).Inc()
	s.cfg.Log.Info("Slot occupant released", "slot_id", slotID, "occupant_id", occupantID, "occupant_type", kind)
	s.recordEvent(ctx, slotID, timelinerepo.EventSlotUnassigned, fmt.Sprintf("%s %s released from slot %s", kind, occupantID, slotID))

	return released, nil
}

func (s *bookingService) ReleaseAllOccupants(ctx context.Context, slotID string) ([]model.Occupant, error) {
	slotID = sanitizer.SanitizeID(slotID)
	if err := s.validator.ValidateSlotID(slotID); err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	actor := middleware.ActorFromContext(ctx)
	var cleared *model.Slot
	var removed []string

	err := retry.OnConflict(ctx, s.policy, "release_all", func() error {
		removed = nil
		return s.slots.ExecuteTransaction(ctx, func(txCtx context.Context) error {
			slot, err := s.loadSlot(txCtx, slotID)
			if err != nil {
				return err
			}
			cleared = slot
			if len(slot.TakeSlot.ApplicationIDs) == 0 {
				return nil
			}

			removed = slot.ClearApplications()
			slot.Touch(actor, s.now())
			if err := s.replaceSlot(txCtx, slot); err != nil {
				return err
			}

			for _, id := range removed {
				if err := s.applications.ClearMeetingDetails(txCtx, id, slot.ID); err != nil {
					return s.mapApplicationError(err, id)
				}
			}
			return nil
		})
	})
	if err != nil {
		s.logFailure("Failed to release slot occupants", err, "slot_id", slotID)
		return nil, err
	}

	occupants := make([]model.Occupant, 0, len(removed))
	emails := make([]string, 0, len(removed))
	for _, id := range removed {
		occupant := model.Occupant{ID: id, Type: model.OccupantApplication}
		if application, err := s.directory.FindApplicationByID(ctx, id); err == nil {
			occupant.Name = application.Name
			occupant.Email = application.Email
			if application.Email != "" {
				emails = append(emails, application.Email)
			}
		} else {
			s.cfg.Log.Warn("Displaced application missing from directory", "application_id", id, "error", err)
		}
		occupants = append(occupants, occupant)
	}

	if len(removed) == 0 {
		return occupants, nil
	}

	metrics.SlotsReleased.WithLabelValues(string(model.OccupantApplication)).Add(float64(len(removed)))
	s.cfg.Log.Info("Slot cleared", "slot_id", slotID, "released", len(removed))
	s.recordEvent(ctx, slotID, timelinerepo.EventSlotUnassigned, fmt.Sprintf("%d applications released from slot %s", len(removed), slotID))
	s.notifier.NotifyUnassigned(cleared, emails)

	return occupants, nil
}

func (s *bookingService) validate(slotID, occupantID string, kind model.OccupantType) error {
	if err := s.validator.ValidateOccupancy(slotID, occupantID, kind); err != nil {
		s.cfg.Log.Warn("Booking validation failed", "slot_id", slotID, "occupant_id", occupantID, "error", err)
		return apperrors.Validation("Booking validation failed", map[string]any{"error": err.Error()})
	}
	return nil
}

// attachApplication points the application at slot and makes the slot's
// interview list its only list membership.
func (s *bookingService) attachApplication(ctx context.Context, slot *model.Slot, applicationID string) error {
	if err := s.applications.SetMeetingDetails(ctx, applicationID, model.MeetingDetailsFor(slot)); err != nil {
		return s.mapApplicationError(err, applicationID)
	}

	if slot.InterviewListID == "" {
		return nil
	}
	if err := s.lists.RemoveApplicationFromOthers(ctx, applicationID, slot.InterviewListID); err != nil {
		return s.mapApplicationError(err, applicationID)
	}
	if err := s.lists.AddApplication(ctx, slot.InterviewListID, applicationID); err != nil {
		return s.mapApplicationError(err, slot.InterviewListID)
	}
	if err := s.applications.ReplaceInterviewLists(ctx, applicationID, []string{slot.InterviewListID}); err != nil {
		return s.mapApplicationError(err, applicationID)
	}
	return nil
}

// closeSlot persists available_slot=Closed on a slot found full. Losing the
// race is fine: whoever won already wrote a consistent state.
func (s *bookingService) closeSlot(ctx context.Context, slot *model.Slot, actor string) {
	if slot.AvailableSlot == model.AvailabilityClosed {
		return
	}
	slot.AvailableSlot = model.AvailabilityClosed
	slot.Touch(actor, s.now())
	if err := s.slots.Replace(ctx, slot); err != nil && !errors.Is(err, slotserrors.ErrVersionConflict) {
		s.cfg.Log.Warn("Failed to close full slot", "slot_id", slot.ID, "error", err)
	}
}

func (s *bookingService) lookupOccupant(ctx context.Context, id string, kind model.OccupantType) (*model.Occupant, error) {
	occupant := &model.Occupant{ID: id, Type: kind}

	if kind == model.OccupantPanelist {
		panelist, err := s.directory.FindPanelistByID(ctx, id)
		if err != nil {
			return nil, s.mapDirectoryError(err, "Panelist", id)
		}
		occupant.Name, occupant.Email = panelist.Name, panelist.Email
		return occupant, nil
	}

	application, err := s.directory.FindApplicationByID(ctx, id)
	if err != nil {
		return nil, s.mapDirectoryError(err, "Application", id)
	}
	occupant.Name, occupant.Email = application.Name, application.Email
	return occupant, nil
}

func (s *bookingService) loadSlot(ctx context.Context, id string) (*model.Slot, error) {
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

func (s *bookingService) replaceSlot(ctx context.Context, slot *model.Slot) error {
	if err := s.slots.Replace(ctx, slot); err != nil {
		if errors.Is(err, slotserrors.ErrVersionConflict) {
			return apperrors.ConcurrencyConflict("Slot was modified concurrently", err)
		}
		return apperrors.Internal("Failed to update slot", err)
	}
	return nil
}

func (s *bookingService) mapApplicationError(err error, id string) error {
	switch {
	case errors.Is(err, appserrors.ErrApplicationNotFound):
		return apperrors.NotFoundWithID("Application", id)
	case errors.Is(err, appserrors.ErrInterviewListNotFound):
		return apperrors.NotFoundWithID("Interview list", id)
	case errors.Is(err, appserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid ID format: " + id)
	default:
		return apperrors.Internal("Failed to update application booking", err)
	}
}

func (s *bookingService) mapDirectoryError(err error, resource, id string) error {
	switch {
	case errors.Is(err, direrrors.ErrPanelistNotFound), errors.Is(err, direrrors.ErrApplicationNotFound):
		return apperrors.NotFoundWithID(resource, id)
	case errors.Is(err, direrrors.ErrInvalidID):
		return apperrors.InvalidInput(fmt.Sprintf("Invalid %s ID format", resource))
	default:
		return apperrors.Internal("Failed to look up "+resource, err)
	}
}

func (s *bookingService) recordEvent(ctx context.Context, entityID, eventType, message string) {
	if err := s.timeline.RecordEvent(ctx, entityID, eventType, timelinerepo.StatusSuccess, message); err != nil {
		s.cfg.Log.Warn("Failed to record timeline event", "entity_id", entityID, "event_type", eventType, "error", err)
	}
}

func (s *bookingService) logFailure(msg string, err error, args ...any) {
	args = append(args, "error", err)
	if apperrors.HasCode(err, apperrors.CodeInternal) {
		s.cfg.Log.Error(msg, args...)
		return
	}
	s.cfg.Log.Warn(msg, args...)
}

func occupantLabel(kind model.OccupantType) string {
	if kind == model.OccupantPanelist {
		return "Panelist"
	}
	return "Application"
}
