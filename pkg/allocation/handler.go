package allocation

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/NescAdmin/nesc-planering/internal/rest"
	"github.com/NescAdmin/nesc-planering/pkg/period"
	"github.com/NescAdmin/nesc-planering/pkg/person"
	"github.com/NescAdmin/nesc-planering/pkg/project"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
)

var conflictsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "planering_allocation_conflicts_total",
	Help: "Soft conflicts raised by the allocation validator, by kind.",
}, []string{"kind"})

// The allocation API keeps the original planner's snake_case wire format so
// the existing grid client keeps working unchanged.

type PercentDTO struct {
	Id        string `json:"id"`
	PersonId  string `json:"person_id"`
	ProjectId string `json:"project_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Percent   int    `json:"percent"`
	Note      string `json:"note,omitempty"`
	AllowOver bool   `json:"allow_over,omitempty"`
}

type UnitDTO struct {
	Id         string `json:"id"`
	PersonId   string `json:"person_id"`
	WorkItemId string `json:"work_item_id"`
	ProjectId  string `json:"project_id,omitempty"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
	Minutes    int64  `json:"minutes"`
	Note       string `json:"note,omitempty"`
	AllowOver  bool   `json:"allow_over,omitempty"`
}

type AdhocDTO struct {
	Id        string `json:"id"`
	PersonId  string `json:"person_id"`
	Title     string `json:"title"`
	Color     string `json:"color"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Percent   int    `json:"percent"`
	Note      string `json:"note,omitempty"`
	AllowOver bool   `json:"allow_over,omitempty"`
}

type percentPatchDTO struct {
	PersonId  *string `json:"person_id"`
	StartDate *string `json:"start_date"`
	EndDate   *string `json:"end_date"`
	Percent   *int    `json:"percent"`
	Note      *string `json:"note"`
	AllowOver bool    `json:"allow_over"`
}

type unitPatchDTO struct {
	PersonId  *string `json:"person_id"`
	StartDate *string `json:"start_date"`
	EndDate   *string `json:"end_date"`
	Minutes   *int64  `json:"minutes"`
	Note      *string `json:"note"`
	AllowOver bool    `json:"allow_over"`
}

type adhocPatchDTO struct {
	PersonId  *string `json:"person_id"`
	Title     *string `json:"title"`
	Color     *string `json:"color"`
	StartDate *string `json:"start_date"`
	EndDate   *string `json:"end_date"`
	Percent   *int    `json:"percent"`
	Note      *string `json:"note"`
	AllowOver bool    `json:"allow_over"`
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// WriteConflict renders the 409 body for a soft conflict and reports whether
// err was one. Everything the confirmation prompt shows (minutes plus
// one-decimal hours) is in the body so the client never re-queries. The grid
// gesture endpoints reuse it so both surfaces answer conflicts identically.
func WriteConflict(w http.ResponseWriter, err error) bool {
	var scope *ScopeConflict
	if errors.As(err, &scope) {
		conflictsTotal.WithLabelValues("scope").Inc()
		w.WriteHeader(http.StatusConflict)
		if encodeErr := json.NewEncoder(w).Encode(NewScopeConflictDTO(scope)); encodeErr != nil {
			log.Errorf("failed to encode scope conflict: %v", encodeErr)
		}
		return true
	}
	var over *OverbookingConflict
	if errors.As(err, &over) {
		conflictsTotal.WithLabelValues("overbooking").Inc()
		w.WriteHeader(http.StatusConflict)
		if encodeErr := json.NewEncoder(w).Encode(NewOverbookingConflictDTO(over)); encodeErr != nil {
			log.Errorf("failed to encode overbooking conflict: %v", encodeErr)
		}
		return true
	}
	return false
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

// writeMutationError maps service errors to status codes shared by all three
// allocation families.
func writeMutationError(w http.ResponseWriter, err error) {
	switch {
	case WriteConflict(w, err):
	case errors.Is(err, ErrAllocationNotFound):
		http.Error(w, "allocation not found", http.StatusNotFound)
	case errors.Is(err, ErrInvalidAllocation):
		writeBadRequest(w, "Invalid allocation data", err)
	case errors.Is(err, person.ErrPersonNotFound),
		errors.Is(err, project.ErrProjectNotFound),
		errors.Is(err, project.ErrWorkItemNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// allowOver combines the body flag with the ?allow_over=true query parameter.
func allowOver(r *http.Request, body bool) bool {
	return body || r.URL.Query().Get("allow_over") == "true"
}

func parseRangeQuery(r *http.Request) (from, to time.Time, personIds []string, err error) {
	q := r.URL.Query()
	from, err = period.ParseDate(q.Get("from"))
	if err != nil {
		return
	}
	to, err = period.ParseDate(q.Get("to"))
	if err != nil {
		return
	}
	personIds = q["person_id"]
	return
}

// CreatePercent godoc
// @Summary Create a percent allocation
// @Description Books a share of a person's time on a project. A scope or
// @Description overbooking overage answers 409 unless allow_over is set.
// @Tags Allocation
// @Accept json
// @Produce json
// @Param allocation body PercentDTO true "Allocation"
// @Success 201 {object} PercentDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid request"
// @Failure 409 {object} ScopeConflictDTO "Scope exceeded"
// @Router /api/allocations [post]
func (h *Handler) CreatePercent(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var dto PercentDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeBadRequest(w, "Invalid request body format", nil)
		return
	}
	a, err := dtoToPercent(dto)
	if err != nil {
		writeBadRequest(w, "Invalid allocation data", err)
		return
	}

	created, err := h.service.CreatePercent(r.Context(), a, allowOver(r, dto.AllowOver))
	if err != nil {
		writeMutationError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(percentToDTO(created)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// ListPercent godoc
// @Summary List percent allocations overlapping a date range
// @Tags Allocation
// @Produce json
// @Param from query string true "Range start (YYYY-MM-DD)"
// @Param to query string true "Range end (YYYY-MM-DD)"
// @Param person_id query string false "Filter on people (repeatable)"
// @Success 200 {array} PercentDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid date range"
// @Router /api/allocations [get]
func (h *Handler) ListPercent(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	from, to, personIds, err := parseRangeQuery(r)
	if err != nil {
		writeBadRequest(w, "Invalid date range", err)
		return
	}
	allocations, err := h.service.ListPercent(r.Context(), personIds, from, to)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	dtos := make([]PercentDTO, 0, len(allocations))
	for _, a := range allocations {
		dtos = append(dtos, percentToDTO(a))
	}
	if err := json.NewEncoder(w).Encode(dtos); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// UpdatePercent godoc
// @Summary Update a percent allocation
// @Description Partial update: absent fields keep their stored values. The
// @Description resulting state is validated, not the delta.
// @Tags Allocation
// @Accept json
// @Produce json
// @Success 200 {object} PercentDTO
// @Failure 404 {string} string "Allocation not found"
// @Failure 409 {object} ScopeConflictDTO "Scope exceeded"
// @Router /api/allocations/{allocationId} [put]
func (h *Handler) UpdatePercent(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	id := mux.Vars(r)["allocationId"]

	var dto percentPatchDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeBadRequest(w, "Invalid request body format", nil)
		return
	}
	existing, err := h.service.GetPercent(r.Context(), id)
	if err != nil {
		writeMutationError(w, err)
		return
	}
	if err := applyPercentPatch(&existing, dto); err != nil {
		writeBadRequest(w, "Invalid allocation data", err)
		return
	}

	updated, err := h.service.UpdatePercent(r.Context(), existing, allowOver(r, dto.AllowOver))
	if err != nil {
		writeMutationError(w, err)
		return
	}
	if err := json.NewEncoder(w).Encode(percentToDTO(updated)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// DeletePercent godoc
// @Summary Delete a percent allocation
// @Description Deletion only reduces load, so it is never scope-checked.
// @Tags Allocation
// @Success 204 {string} string "Deleted"
// @Failure 404 {string} string "Allocation not found"
// @Router /api/allocations/{allocationId} [delete]
func (h *Handler) DeletePercent(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["allocationId"]

	if err := h.service.DeletePercent(r.Context(), id); err != nil {
		writeMutationError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MovePercent godoc
// @Summary Move a percent allocation (form fallback)
// @Description Relocates the allocation to a new person and/or start date,
// @Description preserving its length. Form-encoded path for clients without
// @Description scripting; errors come back as plain text.
// @Tags Allocation
// @Accept x-www-form-urlencoded
// @Success 303 {string} string "Moved"
// @Failure 400 {string} string "Invalid form data"
// @Failure 404 {string} string "Allocation not found"
// @Failure 409 {string} string "Scope exceeded"
// @Router /api/allocations/{allocationId}/move [post]
func (h *Handler) MovePercent(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["allocationId"]

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form data", http.StatusBadRequest)
		return
	}
	existing, err := h.service.GetPercent(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrAllocationNotFound) {
			http.Error(w, "allocation not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if personId := r.PostFormValue("person_id"); personId != "" {
		existing.PersonId = personId
	}
	if start := r.PostFormValue("start"); start != "" {
		newStart, err := period.ParseDate(start)
		if err != nil {
			http.Error(w, "start must be formatted as YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		length := existing.EndDate.Sub(existing.StartDate)
		existing.StartDate = newStart
		existing.EndDate = newStart.Add(length)
	}

	if _, err := h.service.UpdatePercent(r.Context(), existing, false); err != nil {
		var scope *ScopeConflict
		if errors.As(err, &scope) {
			conflictsTotal.WithLabelValues("scope").Inc()
			http.Error(w, scope.Error(), http.StatusConflict)
			return
		}
		var over *OverbookingConflict
		if errors.As(err, &over) {
			conflictsTotal.WithLabelValues("overbooking").Inc()
			http.Error(w, over.Error(), http.StatusConflict)
			return
		}
		if errors.Is(err, ErrInvalidAllocation) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// The non-JS client relies on the page reload for fresh state.
	target := r.Referer()
	if target == "" {
		target = "/"
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// CreateUnit godoc
// @Summary Create a unit allocation
// @Description Books minutes on a work item. Minutes must be a multiple of
// @Description 15 and at least 15.
// @Tags Allocation
// @Accept json
// @Produce json
// @Param allocation body UnitDTO true "Allocation"
// @Success 201 {object} UnitDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid request"
// @Failure 409 {object} ScopeConflictDTO "Scope exceeded"
// @Router /api/unit_allocations [post]
func (h *Handler) CreateUnit(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var dto UnitDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeBadRequest(w, "Invalid request body format", nil)
		return
	}
	a, err := dtoToUnit(dto)
	if err != nil {
		writeBadRequest(w, "Invalid allocation data", err)
		return
	}

	created, err := h.service.CreateUnit(r.Context(), a, allowOver(r, dto.AllowOver))
	if err != nil {
		writeMutationError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(unitToDTO(created)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// ListUnit godoc
// @Summary List unit allocations overlapping a date range
// @Tags Allocation
// @Produce json
// @Success 200 {array} UnitDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid date range"
// @Router /api/unit_allocations [get]
func (h *Handler) ListUnit(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	from, to, personIds, err := parseRangeQuery(r)
	if err != nil {
		writeBadRequest(w, "Invalid date range", err)
		return
	}
	allocations, err := h.service.ListUnit(r.Context(), personIds, from, to)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	dtos := make([]UnitDTO, 0, len(allocations))
	for _, a := range allocations {
		dtos = append(dtos, unitToDTO(a))
	}
	if err := json.NewEncoder(w).Encode(dtos); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// UpdateUnit godoc
// @Summary Update a unit allocation
// @Tags Allocation
// @Accept json
// @Produce json
// @Success 200 {object} UnitDTO
// @Failure 404 {string} string "Allocation not found"
// @Failure 409 {object} ScopeConflictDTO "Scope exceeded"
// @Router /api/unit_allocations/{allocationId} [put]
func (h *Handler) UpdateUnit(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	id := mux.Vars(r)["allocationId"]

	var dto unitPatchDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeBadRequest(w, "Invalid request body format", nil)
		return
	}
	existing, err := h.service.GetUnit(r.Context(), id)
	if err != nil {
		writeMutationError(w, err)
		return
	}
	if err := applyUnitPatch(&existing, dto); err != nil {
		writeBadRequest(w, "Invalid allocation data", err)
		return
	}

	updated, err := h.service.UpdateUnit(r.Context(), existing, allowOver(r, dto.AllowOver))
	if err != nil {
		writeMutationError(w, err)
		return
	}
	if err := json.NewEncoder(w).Encode(unitToDTO(updated)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// DeleteUnit godoc
// @Summary Delete a unit allocation
// @Tags Allocation
// @Success 204 {string} string "Deleted"
// @Failure 404 {string} string "Allocation not found"
// @Router /api/unit_allocations/{allocationId} [delete]
func (h *Handler) DeleteUnit(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["allocationId"]

	if err := h.service.DeleteUnit(r.Context(), id); err != nil {
		writeMutationError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateAdhoc godoc
// @Summary Create an ad-hoc allocation
// @Description Free-text percent work without a project. Never checked
// @Description against any scope, still checked for overbooking.
// @Tags Allocation
// @Accept json
// @Produce json
// @Param allocation body AdhocDTO true "Allocation"
// @Success 201 {object} AdhocDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid request"
// @Failure 409 {object} OverbookingConflictDTO "Person overbooked"
// @Router /api/adhoc_allocations [post]
func (h *Handler) CreateAdhoc(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var dto AdhocDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeBadRequest(w, "Invalid request body format", nil)
		return
	}
	a, err := dtoToAdhoc(dto)
	if err != nil {
		writeBadRequest(w, "Invalid allocation data", err)
		return
	}

	created, err := h.service.CreateAdhoc(r.Context(), a, allowOver(r, dto.AllowOver))
	if err != nil {
		writeMutationError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(adhocToDTO(created)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// ListAdhoc godoc
// @Summary List ad-hoc allocations overlapping a date range
// @Tags Allocation
// @Produce json
// @Success 200 {array} AdhocDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid date range"
// @Router /api/adhoc_allocations [get]
func (h *Handler) ListAdhoc(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	from, to, personIds, err := parseRangeQuery(r)
	if err != nil {
		writeBadRequest(w, "Invalid date range", err)
		return
	}
	allocations, err := h.service.ListAdhoc(r.Context(), personIds, from, to)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	dtos := make([]AdhocDTO, 0, len(allocations))
	for _, a := range allocations {
		dtos = append(dtos, adhocToDTO(a))
	}
	if err := json.NewEncoder(w).Encode(dtos); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// UpdateAdhoc godoc
// @Summary Update an ad-hoc allocation
// @Tags Allocation
// @Accept json
// @Produce json
// @Success 200 {object} AdhocDTO
// @Failure 404 {string} string "Allocation not found"
// @Failure 409 {object} OverbookingConflictDTO "Person overbooked"
// @Router /api/adhoc_allocations/{allocationId} [put]
func (h *Handler) UpdateAdhoc(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	id := mux.Vars(r)["allocationId"]

	var dto adhocPatchDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeBadRequest(w, "Invalid request body format", nil)
		return
	}
	existing, err := h.service.GetAdhoc(r.Context(), id)
	if err != nil {
		writeMutationError(w, err)
		return
	}
	if err := applyAdhocPatch(&existing, dto); err != nil {
		writeBadRequest(w, "Invalid allocation data", err)
		return
	}

	updated, err := h.service.UpdateAdhoc(r.Context(), existing, allowOver(r, dto.AllowOver))
	if err != nil {
		writeMutationError(w, err)
		return
	}
	if err := json.NewEncoder(w).Encode(adhocToDTO(updated)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// DeleteAdhoc godoc
// @Summary Delete an ad-hoc allocation
// @Tags Allocation
// @Success 204 {string} string "Deleted"
// @Failure 404 {string} string "Allocation not found"
// @Router /api/adhoc_allocations/{allocationId} [delete]
func (h *Handler) DeleteAdhoc(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["allocationId"]

	if err := h.service.DeleteAdhoc(r.Context(), id); err != nil {
		writeMutationError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func percentToDTO(a Percent) PercentDTO {
	return PercentDTO{
		Id:        a.Id,
		PersonId:  a.PersonId,
		ProjectId: a.ProjectId,
		StartDate: period.FormatDate(a.StartDate),
		EndDate:   period.FormatDate(a.EndDate),
		Percent:   a.Percent,
		Note:      a.Note,
	}
}

func dtoToPercent(dto PercentDTO) (Percent, error) {
	start, err := period.ParseDate(dto.StartDate)
	if err != nil {
		return Percent{}, err
	}
	end, err := period.ParseDate(dto.EndDate)
	if err != nil {
		return Percent{}, err
	}
	return Percent{
		Id:        dto.Id,
		PersonId:  dto.PersonId,
		ProjectId: dto.ProjectId,
		StartDate: start,
		EndDate:   end,
		Percent:   dto.Percent,
		Note:      dto.Note,
	}, nil
}

func applyPercentPatch(a *Percent, dto percentPatchDTO) error {
	if dto.PersonId != nil {
		a.PersonId = *dto.PersonId
	}
	if dto.StartDate != nil {
		start, err := period.ParseDate(*dto.StartDate)
		if err != nil {
			return err
		}
		a.StartDate = start
	}
	if dto.EndDate != nil {
		end, err := period.ParseDate(*dto.EndDate)
		if err != nil {
			return err
		}
		a.EndDate = end
	}
	if dto.Percent != nil {
		a.Percent = *dto.Percent
	}
	if dto.Note != nil {
		a.Note = *dto.Note
	}
	return nil
}

func unitToDTO(a Unit) UnitDTO {
	return UnitDTO{
		Id:         a.Id,
		PersonId:   a.PersonId,
		WorkItemId: a.WorkItemId,
		ProjectId:  a.ProjectId,
		StartDate:  period.FormatDate(a.StartDate),
		EndDate:    period.FormatDate(a.EndDate),
		Minutes:    a.Minutes,
		Note:       a.Note,
	}
}

func dtoToUnit(dto UnitDTO) (Unit, error) {
	start, err := period.ParseDate(dto.StartDate)
	if err != nil {
		return Unit{}, err
	}
	end, err := period.ParseDate(dto.EndDate)
	if err != nil {
		return Unit{}, err
	}
	return Unit{
		Id:         dto.Id,
		PersonId:   dto.PersonId,
		WorkItemId: dto.WorkItemId,
		StartDate:  start,
		EndDate:    end,
		Minutes:    dto.Minutes,
		Note:       dto.Note,
	}, nil
}

func applyUnitPatch(a *Unit, dto unitPatchDTO) error {
	if dto.PersonId != nil {
		a.PersonId = *dto.PersonId
	}
	if dto.StartDate != nil {
		start, err := period.ParseDate(*dto.StartDate)
		if err != nil {
			return err
		}
		a.StartDate = start
	}
	if dto.EndDate != nil {
		end, err := period.ParseDate(*dto.EndDate)
		if err != nil {
			return err
		}
		a.EndDate = end
	}
	if dto.Minutes != nil {
		a.Minutes = *dto.Minutes
	}
	if dto.Note != nil {
		a.Note = *dto.Note
	}
	return nil
}

func adhocToDTO(a Adhoc) AdhocDTO {
	return AdhocDTO{
		Id:        a.Id,
		PersonId:  a.PersonId,
		Title:     a.Label,
		Color:     a.Color,
		StartDate: period.FormatDate(a.StartDate),
		EndDate:   period.FormatDate(a.EndDate),
		Percent:   a.Percent,
		Note:      a.Note,
	}
}

func dtoToAdhoc(dto AdhocDTO) (Adhoc, error) {
	start, err := period.ParseDate(dto.StartDate)
	if err != nil {
		return Adhoc{}, err
	}
	end, err := period.ParseDate(dto.EndDate)
	if err != nil {
		return Adhoc{}, err
	}
	return Adhoc{
		Id:        dto.Id,
		PersonId:  dto.PersonId,
		Label:     dto.Title,
		Color:     dto.Color,
		StartDate: start,
		EndDate:   end,
		Percent:   dto.Percent,
		Note:      dto.Note,
	}, nil
}

func applyAdhocPatch(a *Adhoc, dto adhocPatchDTO) error {
	if dto.PersonId != nil {
		a.PersonId = *dto.PersonId
	}
	if dto.Title != nil && *dto.Title != "" {
		a.Label = *dto.Title
	}
	if dto.Color != nil && *dto.Color != "" {
		a.Color = *dto.Color
	}
	if dto.StartDate != nil {
		start, err := period.ParseDate(*dto.StartDate)
		if err != nil {
			return err
		}
		a.StartDate = start
	}
	if dto.EndDate != nil {
		end, err := period.ParseDate(*dto.EndDate)
		if err != nil {
			return err
		}
		a.EndDate = end
	}
	if dto.Percent != nil {
		a.Percent = *dto.Percent
	}
	if dto.Note != nil {
		a.Note = *dto.Note
	}
	return nil
}
