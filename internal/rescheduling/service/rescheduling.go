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

	"golang.org/x/sync/errgroup"
)

type RescheduleService interface {
	Reschedule(ctx context.Context, req *model.RescheduleRequest) (*RescheduleResult, error)
}

type RescheduleResult struct {
	Origin      *model.Slot        `json:"origin"`
	Target      *model.Slot        `json:"target"`
	Application *model.Application `json:"application"`
}

type rescheduleService struct {
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

func NewRescheduleService(
	slots slotsrepo.SlotRepository,
	applications appsrepo.ApplicationRepository,
	lists appsrepo.InterviewListRepository,
	directory dirrepo.Directory,
	timeline timelinerepo.TimelineRepository,
	notifier notifications.Notifier,
	validator *validator.BookingValidator,
	cfg *config.Config,
) RescheduleService {
	return &rescheduleService{
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

// moveState is everything a reschedule reads before it writes.
type moveState struct {
	origin      *model.Slot
	target      *model.Slot
	application *model.Application
}

func (s *rescheduleService) Reschedule(ctx context.Context, req *model.RescheduleRequest) (*RescheduleResult, error) {
	req.OriginSlotID = sanitizer.SanitizeID(req.OriginSlotID)
	req.TargetSlotID = sanitizer.SanitizeID(req.TargetSlotID)
	req.ApplicationID = sanitizer.SanitizeID(req.ApplicationID)
	if err := s.validator.ValidateReschedule(req); err != nil {
		s.cfg.Log.Warn("Reschedule validation failed", "error", err)
		return nil, apperrors.Validation("Reschedule validation failed", map[string]any{"error": err.Error()})
	}

	actor := middleware.ActorFromContext(ctx)
	var result *RescheduleResult

	err := retry.OnConflict(ctx, s.policy, "reschedule", func() error {
		state, err := s.load(ctx, req)
		if err != nil {
			return err
		}

		if !state.origin.HasOccupant(req.ApplicationID, model.OccupantApplication) {
			return apperrors.NotFoundWithID("Application in origin slot", req.ApplicationID)
		}
		inTarget := state.target.HasOccupant(req.ApplicationID, model.OccupantApplication)

		if !inTarget && state.target.BookedUser >= state.target.UserLimit {
			return apperrors.CapacityExceeded(fmt.Sprintf("Target slot already holds %d of %d applications",
				state.target.BookedUser, state.target.UserLimit))
		}

		err = s.slots.ExecuteTransaction(ctx, func(txCtx context.Context) error {
			return s.move(txCtx, state, req.ApplicationID, actor, inTarget)
		})
		if err != nil {
			return err
		}

		result = &RescheduleResult{
			Origin:      state.origin,
			Target:      state.target,
			Application: state.application,
		}
		return nil
	})

	metrics.Reschedules.WithLabelValues(metrics.Outcome(err)).Inc()
	if err != nil {
		s.logFailure("Failed to reschedule application", err,
			"application_id", req.ApplicationID,
			"origin_slot_id", req.OriginSlotID,
			"target_slot_id", req.TargetSlotID,
		)
		return nil, err
	}

	s.cfg.Log.Info("Application rescheduled",
		"application_id", req.ApplicationID,
		"origin_slot_id", req.OriginSlotID,
		"target_slot_id", req.TargetSlotID,
	)

	message := fmt.Sprintf("Moved from slot %s to slot %s", req.OriginSlotID, req.TargetSlotID)
	if err := s.timeline.RecordEvent(ctx, req.ApplicationID, timelinerepo.EventRescheduled, timelinerepo.StatusSuccess, message); err != nil {
		s.cfg.Log.Warn("Failed to record timeline event", "entity_id", req.ApplicationID, "error", err)
	}
	if result.Target.IsPublished() {
		s.notifier.NotifyRescheduled(result.Application, result.Target)
	}

	return result, nil
}

// load reads both slots and the application concurrently, then checks that
// the interview lists they reference exist.
func (s *rescheduleService) load(ctx context.Context, req *model.RescheduleRequest) (*moveState, error) {
	state := &moveState{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slot, err := s.loadSlot(gctx, req.OriginSlotID, "Origin slot")
		state.origin = slot
		return err
	})
	g.Go(func() error {
		slot, err := s.loadSlot(gctx, req.TargetSlotID, "Target slot")
		state.target = slot
		return err
	})
	g.Go(func() error {
		application, err := s.directory.FindApplicationByID(gctx, req.ApplicationID)
		if err != nil {
			if errors.Is(err, direrrors.ErrApplicationNotFound) {
				return apperrors.NotFoundWithID("Application", req.ApplicationID)
			}
			return apperrors.Internal("Failed to retrieve application", err)
		}
		state.application = application
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	g, gctx = errgroup.WithContext(ctx)
	for _, listID := range []string{state.origin.InterviewListID, state.target.InterviewListID} {
		if listID == "" {
			continue
		}
		g.Go(func() error {
			if _, err := s.lists.FindByID(gctx, listID); err != nil {
				return s.mapListError(err, listID)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return state, nil
}

// move applies the reschedule inside one transaction. The target is appended to
// at the end of its occupant list, and list writes are set-semantic.
func (s *rescheduleService) move(ctx context.Context, state *moveState, applicationID, actor string, inTarget bool) error {
	now := s.now()

	state.origin.RemoveOccupant(applicationID, model.OccupantApplication)
	state.origin.RefreshAvailability()
	state.origin.Touch(actor, now)
	if err := s.replaceSlot(ctx, state.origin); err != nil {
		return err
	}
	if !inTarget {
		state.target.AppendApplication(applicationID)
		state.target.Touch(actor, now)
		if err := s.replaceSlot(ctx, state.target); err != nil {
			return err
		}
	}

	originList, targetList := state.origin.InterviewListID, state.target.InterviewListID
	if originList != "" && originList != targetList {
		if err := s.applications.RemoveInterviewList(ctx, applicationID, originList); err != nil {
			return s.mapApplicationError(err, applicationID)
		}
		if err := s.lists.RemoveApplication(ctx, originList, applicationID); err != nil {
			return s.mapListError(err, originList)
		}
	}
	if targetList != "" {
		if err := s.applications.AddInterviewList(ctx, applicationID, targetList); err != nil {
			return s.mapApplicationError(err, applicationID)
		}
		if err := s.lists.AddApplication(ctx, targetList, applicationID); err != nil {
			return s.mapListError(err, targetList)
		}
	}

	details := model.MeetingDetailsFor(state.target)
	if err := s.applications.SetMeetingDetails(ctx, applicationID, details); err != nil {
		return s.mapApplicationError(err, applicationID)
	}
	state.application.MeetingDetails = details
	return nil
}

func (s *rescheduleService) loadSlot(ctx context.Context, id, resource string) (*model.Slot, error) {
	slot, err := s.slots.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, slotserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID(resource, id)
		}
		if errors.Is(err, slotserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid slot ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve slot", err)
	}
	return slot, nil
}

func (s *rescheduleService) replaceSlot(ctx context.Context, slot *model.Slot) error {
	if err := s.slots.Replace(ctx, slot); err != nil {
		if errors.Is(err, slotserrors.ErrVersionConflict) {
			return apperrors.ConcurrencyConflict("Slot was modified concurrently", err)
		}
		return apperrors.Internal("Failed to update slot", err)
	}
	return nil
}

func (s *rescheduleService) mapApplicationError(err error, id string) error {
	switch {
	case errors.Is(err, appserrors.ErrApplicationNotFound):
		return apperrors.NotFoundWithID("Application", id)
	case errors.Is(err, appserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid application ID format")
	default:
		return apperrors.Internal("Failed to update application", err)
	}
}

func (s *rescheduleService) mapListError(err error, id string) error {
	switch {
	case errors.Is(err, appserrors.ErrInterviewListNotFound):
		return apperrors.NotFoundWithID("Interview list", id)
	case errors.Is(err, appserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid interview list ID format")
	default:
		return apperrors.Internal("Failed to update interview list", err)
	}
}

func (s *rescheduleService) logFailure(msg string, err error, args ...any) {
	args = append(args, "error", err)
	if apperrors.HasCode(err, apperrors.CodeInternal) {
		s.cfg.Log.Error(msg, args...)
		return
	}
	s.cfg.Log.Warn(msg, args...)
}
