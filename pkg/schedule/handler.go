package schedule

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/NescAdmin/nesc-planering/internal/rest"
	"github.com/NescAdmin/nesc-planering/pkg/allocation"
	"github.com/NescAdmin/nesc-planering/pkg/period"
	"github.com/NescAdmin/nesc-planering/pkg/person"
	"github.com/NescAdmin/nesc-planering/pkg/project"
)

var plansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "planering_schedule_plans_total",
	Help: "Auto-scheduler runs by outcome.",
}, []string{"outcome"})

type planRequestDTO struct {
	PersonId    string `json:"person_id"`
	WorkItemId  string `json:"work_item_id"`
	From        string `json:"from"`
	To          string `json:"to"`
	SlotMinutes int64  `json:"slot_minutes,omitempty"`
}

type PlanDTO struct {
	Allocations  []allocation.UnitDTO `json:"allocations"`
	TotalMinutes int64                `json:"total_minutes"`
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// PlanWorkItem godoc
// @Summary Auto-plan a work item
// @Description Fills the person's free workday minutes with unit allocations
// @Description until the work item's remaining minutes run out. The plan
// @Description commits as one batch; a scope overage answers 409 and books
// @Description nothing. Answers 200 with no allocations when there is nothing
// @Description left to book.
// @Tags Schedule
// @Accept json
// @Produce json
// @Param plan body planRequestDTO true "Planning window"
// @Success 201 {object} PlanDTO
// @Success 200 {object} PlanDTO "Nothing to book"
// @Failure 400 {object} rest.ErrorResponse "Invalid request"
// @Failure 404 {object} rest.ErrorResponse "Person or work item not found"
// @Failure 409 {object} allocation.ScopeConflictDTO "Scope exceeded"
// @Router /api/schedule/plan [post]
func (h *Handler) PlanWorkItem(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var dto planRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		plansTotal.WithLabelValues("invalid").Inc()
		writeBadRequest(w, "Invalid request body format", nil)
		return
	}
	req, err := dtoToRequest(dto)
	if err != nil {
		plansTotal.WithLabelValues("invalid").Inc()
		writeBadRequest(w, "Invalid plan request", err)
		return
	}

	plan, err := h.service.Plan(r.Context(), req)
	if err != nil {
		plansTotal.WithLabelValues(writePlanError(w, err)).Inc()
		return
	}

	if len(plan.Allocations) == 0 {
		plansTotal.WithLabelValues("empty").Inc()
		w.WriteHeader(http.StatusOK)
	} else {
		plansTotal.WithLabelValues("ok").Inc()
		w.WriteHeader(http.StatusCreated)
	}
	if err := json.NewEncoder(w).Encode(planToDTO(plan)); err != nil {
		log.Errorf("failed to encode plan: %v", err)
	}
}

func dtoToRequest(dto planRequestDTO) (Request, error) {
	from, err := period.ParseDate(dto.From)
	if err != nil {
		return Request{}, err
	}
	to, err := period.ParseDate(dto.To)
	if err != nil {
		return Request{}, err
	}
	return Request{
		PersonId:    dto.PersonId,
		WorkItemId:  dto.WorkItemId,
		From:        from,
		To:          to,
		SlotMinutes: dto.SlotMinutes,
	}, nil
}

func planToDTO(plan Plan) PlanDTO {
	dto := PlanDTO{
		Allocations:  make([]allocation.UnitDTO, 0, len(plan.Allocations)),
		TotalMinutes: plan.TotalMinutes,
	}
	for _, u := range plan.Allocations {
		dto.Allocations = append(dto.Allocations, allocation.UnitDTO{
			Id:         u.Id,
			PersonId:   u.PersonId,
			WorkItemId: u.WorkItemId,
			ProjectId:  u.ProjectId,
			StartDate:  period.FormatDate(u.StartDate),
			EndDate:    period.FormatDate(u.EndDate),
			Minutes:    u.Minutes,
			Note:       u.Note,
		})
	}
	return dto
}

func writePlanError(w http.ResponseWriter, err error) string {
	switch {
	case allocation.WriteConflict(w, err):
		return "conflict"
	case errors.Is(err, ErrInvalidPlan),
		errors.Is(err, allocation.ErrInvalidAllocation),
		errors.Is(err, period.ErrInvalidPeriod):
		writeBadRequest(w, "Invalid plan request", err)
		return "invalid"
	case errors.Is(err, person.ErrPersonNotFound),
		errors.Is(err, project.ErrProjectNotFound),
		errors.Is(err, project.ErrWorkItemNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
		return "not_found"
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return "error"
	}
}

func writeBadRequest(w http.ResponseWriter, message string, err error) {
	w.WriteHeader(http.StatusBadRequest)
	body := rest.ErrorResponse{Error: message}
	if err != nil {
		body.Details = err.Error()
	}
	if encodeErr := json.NewEncoder(w).Encode(body); encodeErr != nil {
		http.Error(w, encodeErr.Error(), http.StatusInternalServerError)
	}
}
