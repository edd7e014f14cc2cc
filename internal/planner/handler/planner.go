package handler

import (
	"net/http"
	"time"

	bookingsvc "planner/internal/bookings/service"
	publishsvc "planner/internal/publishing/service"
	reschedulesvc "planner/internal/rescheduling/service"
	schedulingsvc "planner/internal/scheduling/service"
	"planner/pkg/contracts"
	httputil "planner/pkg/http"
	"planner/pkg/logger"
	"planner/pkg/model"

	"github.com/julienschmidt/httprouter"
)

var (
	_ contracts.Handler = (*PlannerHandler)(nil)
	_ contracts.Handler = (*HealthHandler)(nil)
)

type PlannerHandler struct {
	scheduling   schedulingsvc.SchedulingService
	bookings     bookingsvc.BookingService
	publishing   publishsvc.PublishService
	rescheduling reschedulesvc.RescheduleService
	log          *logger.Logger
}

func NewPlannerHandler(
	scheduling schedulingsvc.SchedulingService,
	bookings bookingsvc.BookingService,
	publishing publishsvc.PublishService,
	rescheduling reschedulesvc.RescheduleService,
	log *logger.Logger,
) *PlannerHandler {
	return &PlannerHandler{
		scheduling:   scheduling,
		bookings:     bookings,
		publishing:   publishing,
		rescheduling: rescheduling,
		log:          log,
	}
}

// PanelWithSlots is the response body for panel creation and rebalancing.
type PanelWithSlots struct {
	Panel *model.Panel  `json:"panel"`
	Slots []*model.Slot `json:"slots"`
}

func (h *PlannerHandler) Name() string { return "planner" }

func (h *PlannerHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/panels", h.CreatePanel)
	router.GET("/api/v1/panels/id/:id", h.GetPanel)
	router.PATCH("/api/v1/panels/id/:id", h.UpdatePanel)
	router.GET("/api/v1/panels/id/:id/slots", h.ListPanelSlots)
	router.POST("/api/v1/panels/id/:id/rebalance", h.RebalancePanel)

	router.POST("/api/v1/slots", h.CreateSlot)
	router.GET("/api/v1/slots/id/:id", h.GetSlot)
	router.PATCH("/api/v1/slots/id/:id", h.UpdateSlot)
	router.POST("/api/v1/slots/id/:id/take", h.TakeSlot)
	router.POST("/api/v1/slots/id/:id/assign", h.AssignApplication)
	router.POST("/api/v1/slots/id/:id/unassign", h.Unassign)
	router.POST("/api/v1/slots/publish", h.Publish)
	router.POST("/api/v1/slots/reschedule", h.Reschedule)
}

func (h *PlannerHandler) CreatePanel(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.PanelCreate
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "CreatePanel", err)
		return
	}

	panel, slots, err := h.scheduling.CreatePanel(r.Context(), &req)
	if err != nil {
		h.writeError(w, "CreatePanel", err)
		return
	}

	if err := httputil.WriteCreated(w, PanelWithSlots{Panel: panel, Slots: slots}, "Panel created"); err != nil {
		h.log.Error("failed to write created response", "handler", "CreatePanel", "operation", "WriteCreated", "error", err)
	}
}

func (h *PlannerHandler) GetPanel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	panel, err := h.scheduling.GetPanel(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetPanel", err)
		return
	}
	h.writeSuccess(w, "GetPanel", panel, "")
}

func (h *PlannerHandler) UpdatePanel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var upd model.PanelUpdate
	if err := httputil.DecodeJSON(r, &upd); err != nil {
		h.writeError(w, "UpdatePanel", err)
		return
	}

	panel, err := h.scheduling.UpdatePanel(r.Context(), ps.ByName("id"), &upd)
	if err != nil {
		h.writeError(w, "UpdatePanel", err)
		return
	}
	h.writeSuccess(w, "UpdatePanel", panel, "Panel updated")
}

func (h *PlannerHandler) ListPanelSlots(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	slots, err := h.scheduling.ListPanelSlots(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "ListPanelSlots", err)
		return
	}
	h.writeSuccess(w, "ListPanelSlots", slots, "")
}

func (h *PlannerHandler) RebalancePanel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req model.RebalanceRequest
	if r.ContentLength != 0 {
		if err := httputil.DecodeJSON(r, &req); err != nil {
			h.writeError(w, "RebalancePanel", err)
			return
		}
	}

	panel, slots, err := h.scheduling.RebalancePanelSlotTimes(r.Context(), ps.ByName("id"), &req)
	if err != nil {
		h.writeError(w, "RebalancePanel", err)
		return
	}
	h.writeSuccess(w, "RebalancePanel", PanelWithSlots{Panel: panel, Slots: slots}, "Panel slots rebalanced")
}

func (h *PlannerHandler) CreateSlot(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.SlotCreate
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "CreateSlot", err)
		return
	}

	slot, err := h.scheduling.CreateSlot(r.Context(), &req)
	if err != nil {
		h.writeError(w, "CreateSlot", err)
		return
	}

	if err := httputil.WriteCreated(w, slot, "Slot created"); err != nil {
		h.log.Error("failed to write created response", "handler", "CreateSlot", "operation", "WriteCreated", "error", err)
	}
}

func (h *PlannerHandler) GetSlot(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	slot, err := h.scheduling.GetSlot(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetSlot", err)
		return
	}
	h.writeSuccess(w, "GetSlot", slot, "")
}

func (h *PlannerHandler) UpdateSlot(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var upd model.SlotUpdate
	if err := httputil.DecodeJSON(r, &upd); err != nil {
		h.writeError(w, "UpdateSlot", err)
		return
	}

	slot, err := h.scheduling.UpdateSlot(r.Context(), ps.ByName("id"), &upd)
	if err != nil {
		h.writeError(w, "UpdateSlot", err)
		return
	}
	h.writeSuccess(w, "UpdateSlot", slot, "Slot updated")
}

func (h *PlannerHandler) TakeSlot(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req model.TakeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "TakeSlot", err)
		return
	}

	slot, err := h.bookings.TakeSlot(r.Context(), ps.ByName("id"), req.OccupantID, req.OccupantType)
	if err != nil {
		h.writeError(w, "TakeSlot", err)
		return
	}
	h.writeSuccess(w, "TakeSlot", slot, "Slot booked")
}

func (h *PlannerHandler) AssignApplication(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req model.AssignRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "AssignApplication", err)
		return
	}

	result, err := h.bookings.AssignApplication(r.Context(), ps.ByName("id"), req.ApplicationID)
	if err != nil {
		h.writeError(w, "AssignApplication", err)
		return
	}
	h.writeSuccess(w, "AssignApplication", result, result.Message)
}

func (h *PlannerHandler) Unassign(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req model.UnassignRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Unassign", err)
		return
	}

	if req.All {
		occupants, err := h.bookings.ReleaseAllOccupants(r.Context(), ps.ByName("id"))
		if err != nil {
			h.writeError(w, "Unassign", err)
			return
		}
		h.writeSuccess(w, "Unassign", occupants, "All applications unassigned")
		return
	}

	slot, err := h.bookings.ReleaseSlot(r.Context(), ps.ByName("id"), req.OccupantID, req.OccupantType)
	if err != nil {
		h.writeError(w, "Unassign", err)
		return
	}
	h.writeSuccess(w, "Unassign", slot, "Occupant unassigned")
}

func (h *PlannerHandler) Publish(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.PublishRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Publish", err)
		return
	}

	var asOf *time.Time
	if req.Date != "" {
		date, err := httputil.ParseDate(req.Date)
		if err != nil {
			h.writeError(w, "Publish", err)
			return
		}
		asOf = &date
	}

	result, err := h.publishing.PublishByIDs(r.Context(), req.IDs, asOf)
	if err != nil {
		h.writeError(w, "Publish", err)
		return
	}
	h.writeSuccess(w, "Publish", result, "Publish completed")
}

func (h *PlannerHandler) Reschedule(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.RescheduleRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Reschedule", err)
		return
	}

	result, err := h.rescheduling.Reschedule(r.Context(), &req)
	if err != nil {
		h.writeError(w, "Reschedule", err)
		return
	}
	h.writeSuccess(w, "Reschedule", result, "Application rescheduled")
}

func (h *PlannerHandler) writeSuccess(w http.ResponseWriter, handler string, data any, message string) {
	if err := httputil.WriteSuccess(w, data, message); err != nil {
		h.log.Error("failed to write success response", "handler", handler, "operation", "WriteSuccess", "error", err)
	}
}

func (h *PlannerHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}
