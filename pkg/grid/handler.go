package grid

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/NescAdmin/nesc-planering/internal/rest"
	"github.com/NescAdmin/nesc-planering/pkg/allocation"
	"github.com/NescAdmin/nesc-planering/pkg/company"
	"github.com/NescAdmin/nesc-planering/pkg/period"
	"github.com/NescAdmin/nesc-planering/pkg/person"
	"github.com/NescAdmin/nesc-planering/pkg/project"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var gesturesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "planering_grid_gestures_total",
	Help: "Grid gestures processed, by gesture and outcome.",
}, []string{"gesture", "outcome"})

type SessionDTO struct {
	Id          string `json:"session_id"`
	Granularity string `json:"granularity"`
}

type openSessionDTO struct {
	Granularity string `json:"granularity"`
}

type RefreshHintDTO struct {
	// PersonIds lists the stale rows; empty means every row.
	PersonIds []string `json:"person_ids,omitempty"`
	From      string   `json:"from"`
	To        string   `json:"to"`
}

type ChangesDTO struct {
	Hints []RefreshHintDTO `json:"hints"`
}

type dropDTO struct {
	Payload   string `json:"payload"`
	PersonId  string `json:"person_id"`
	Date      string `json:"date"`
	Percent   int    `json:"percent"`
	Minutes   int64  `json:"minutes"`
	Confirmed bool   `json:"confirmed"`
}

type resizeDTO struct {
	Target    string `json:"target"`
	Edge      string `json:"edge"`
	Date      string `json:"date"`
	Confirmed bool   `json:"confirmed"`
}

type selectDTO struct {
	PersonId   string `json:"person_id"`
	From       string `json:"from"`
	To         string `json:"to"`
	Action     string `json:"action"`
	ProjectId  string `json:"project_id"`
	WorkItemId string `json:"work_item_id"`
	Label      string `json:"label"`
	Color      string `json:"color"`
	Percent    int    `json:"percent"`
	Minutes    int64  `json:"minutes"`
	Confirmed  bool   `json:"confirmed"`
}

type deleteDTO struct {
	Target string `json:"target"`
}

type RefsDTO struct {
	Refs []Ref `json:"refs"`
}

type ViewDTO struct {
	Granularity string      `json:"granularity"`
	From        string      `json:"from"`
	To          string      `json:"to"`
	Columns     []ColumnDTO `json:"columns"`
	Rows        []RowDTO    `json:"rows"`
}

type ColumnDTO struct {
	Label string `json:"label"`
	Start string `json:"start"`
	End   string `json:"end"`
}

type RowDTO struct {
	PersonId    string    `json:"person_id"`
	PersonName  string    `json:"person_name"`
	Lanes       int       `json:"lanes"`
	AvgPercent  int       `json:"avg_percent"`
	PeakPercent int       `json:"peak_percent"`
	Cells       []CellDTO `json:"cells"`
}

type CellDTO struct {
	Percent int        `json:"percent"`
	Off     bool       `json:"off,omitempty"`
	Entries []EntryDTO `json:"entries,omitempty"`
}

type EntryDTO struct {
	Family     Family `json:"family"`
	Id         string `json:"id"`
	Label      string `json:"label"`
	Color      string `json:"color"`
	Percent    int    `json:"percent,omitempty"`
	Minutes    int64  `json:"minutes,omitempty"`
	Lane       int    `json:"lane"`
	StartsHere bool   `json:"starts_here"`
	EndsHere   bool   `json:"ends_here"`
}

type Handler struct {
	registry   *Registry
	controller *Controller
	view       *ViewBuilder
}

func NewHandler(registry *Registry, controller *Controller, view *ViewBuilder) *Handler {
	return &Handler{registry: registry, controller: controller, view: view}
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

// session resolves the company-scoped session named in the path, writing the
// error response itself when it cannot.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	companyId, err := company.CurrentId(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return nil, false
	}
	s, err := h.registry.Get(companyId, mux.Vars(r)["sessionId"])
	if err != nil {
		http.Error(w, "grid session not found", http.StatusNotFound)
		return nil, false
	}
	return s, true
}

// writeGestureError maps a controller error onto the wire and returns the
// outcome label for the gesture metric. Conflicts answer with the same 409
// bodies as the allocation API, so the client's confirmation prompt works
// identically whichever surface raised them.
func writeGestureError(w http.ResponseWriter, err error) string {
	switch {
	case allocation.WriteConflict(w, err):
		return "conflict"
	case errors.Is(err, ErrBadPayload), errors.Is(err, ErrInvalidGesture):
		writeBadRequest(w, "Invalid gesture", err)
		return "invalid"
	case errors.Is(err, allocation.ErrInvalidAllocation), errors.Is(err, period.ErrInvalidPeriod):
		writeBadRequest(w, "Invalid gesture", err)
		return "invalid"
	case errors.Is(err, allocation.ErrAllocationNotFound),
		errors.Is(err, person.ErrPersonNotFound),
		errors.Is(err, project.ErrProjectNotFound),
		errors.Is(err, project.ErrWorkItemNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
		return "not_found"
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return "error"
	}
}

// OpenSession godoc
// @Summary Open a grid editing session
// @Description Registers an in-memory session carrying the grid's granularity,
// @Description its undo history and the refresh hint queue.
// @Tags Grid
// @Accept json
// @Produce json
// @Param session body openSessionDTO true "Session parameters"
// @Success 201 {object} SessionDTO
// @Failure 400 {object} rest.ErrorResponse "Unknown granularity"
// @Router /api/grid/sessions [post]
func (h *Handler) OpenSession(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	companyId, err := company.CurrentId(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	var dto openSessionDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeBadRequest(w, "Invalid request body format", nil)
		return
	}
	g, err := period.ParseGranularity(dto.Granularity)
	if err != nil {
		writeBadRequest(w, "Invalid granularity", err)
		return
	}

	s := h.registry.Open(companyId, g)
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(SessionDTO{Id: s.Id, Granularity: string(s.Granularity)}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// CloseSession godoc
// @Summary Close a grid editing session
// @Tags Grid
// @Success 204 {string} string "Closed"
// @Failure 404 {string} string "Session not found"
// @Router /api/grid/sessions/{sessionId} [delete]
func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	companyId, err := company.CurrentId(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	if err := h.registry.Close(companyId, mux.Vars(r)["sessionId"]); err != nil {
		http.Error(w, "grid session not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Changes godoc
// @Summary Drain the session's refresh hints
// @Description Returns which rows and date windows changed since the last
// @Description poll, from this session's gestures and everyone else's.
// @Tags Grid
// @Produce json
// @Success 200 {object} ChangesDTO
// @Failure 404 {string} string "Session not found"
// @Router /api/grid/sessions/{sessionId}/changes [get]
func (h *Handler) Changes(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	hints := s.DrainHints()
	dto := ChangesDTO{Hints: make([]RefreshHintDTO, 0, len(hints))}
	for _, hint := range hints {
		dto.Hints = append(dto.Hints, RefreshHintDTO{
			PersonIds: hint.PersonIds,
			From:      period.FormatDate(hint.From),
			To:        period.FormatDate(hint.To),
		})
	}
	if err := json.NewEncoder(w).Encode(dto); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// Drop godoc
// @Summary Apply a drop gesture
// @Description Creates or moves an allocation depending on what the payload
// @Description carries. A conflict answers 409 with the allocation conflict
// @Description body; re-sending the gesture with confirmed set commits it.
// @Tags Grid
// @Accept json
// @Produce json
// @Param gesture body dropDTO true "Drop gesture"
// @Success 200 {object} RefsDTO
// @Failure 400 {object} rest.ErrorResponse "Malformed payload or gesture"
// @Failure 409 {object} allocation.ScopeConflictDTO "Scope exceeded"
// @Router /api/grid/sessions/{sessionId}/drop [post]
func (h *Handler) Drop(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var dto dropDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeBadRequest(w, "Invalid request body format", nil)
		return
	}
	payload, err := ParsePayload(dto.Payload)
	if err != nil {
		gesturesTotal.WithLabelValues("drop", "invalid").Inc()
		writeBadRequest(w, "Invalid gesture", err)
		return
	}
	date, err := period.ParseDate(dto.Date)
	if err != nil {
		gesturesTotal.WithLabelValues("drop", "invalid").Inc()
		writeBadRequest(w, "Invalid gesture", err)
		return
	}

	ref, err := h.controller.Drop(r.Context(), s, Drop{
		Payload:   payload,
		PersonId:  dto.PersonId,
		Date:      date,
		Percent:   dto.Percent,
		Minutes:   dto.Minutes,
		Confirmed: dto.Confirmed,
	})
	if err != nil {
		gesturesTotal.WithLabelValues("drop", writeGestureError(w, err)).Inc()
		return
	}
	gesturesTotal.WithLabelValues("drop", "ok").Inc()
	if err := json.NewEncoder(w).Encode(RefsDTO{Refs: []Ref{ref}}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// ResizeGesture godoc
// @Summary Apply a resize gesture
// @Description Drags one edge of a bar to a new date. Percent and ad-hoc bars
// @Description snap to period bounds, unit bars resize by single days.
// @Tags Grid
// @Accept json
// @Produce json
// @Param gesture body resizeDTO true "Resize gesture"
// @Success 200 {object} RefsDTO
// @Failure 400 {object} rest.ErrorResponse "Malformed payload or gesture"
// @Failure 409 {object} allocation.ScopeConflictDTO "Scope exceeded"
// @Router /api/grid/sessions/{sessionId}/resize [post]
func (h *Handler) ResizeGesture(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var dto resizeDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeBadRequest(w, "Invalid request body format", nil)
		return
	}
	target, err := ParsePayload(dto.Target)
	if err != nil {
		gesturesTotal.WithLabelValues("resize", "invalid").Inc()
		writeBadRequest(w, "Invalid gesture", err)
		return
	}
	date, err := period.ParseDate(dto.Date)
	if err != nil {
		gesturesTotal.WithLabelValues("resize", "invalid").Inc()
		writeBadRequest(w, "Invalid gesture", err)
		return
	}

	ref, err := h.controller.Resize(r.Context(), s, Resize{
		Target:    target,
		Edge:      Edge(dto.Edge),
		Date:      date,
		Confirmed: dto.Confirmed,
	})
	if err != nil {
		gesturesTotal.WithLabelValues("resize", writeGestureError(w, err)).Inc()
		return
	}
	gesturesTotal.WithLabelValues("resize", "ok").Inc()
	if err := json.NewEncoder(w).Encode(RefsDTO{Refs: []Ref{ref}}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// SelectGesture godoc
// @Summary Fill a range selection
// @Description Books the selected cells with a percent, unit or free-text
// @Description fill. Per-cell fills land atomically: one conflict rolls the
// @Description whole selection back.
// @Tags Grid
// @Accept json
// @Produce json
// @Param gesture body selectDTO true "Selection fill"
// @Success 200 {object} RefsDTO
// @Failure 400 {object} rest.ErrorResponse "Malformed gesture"
// @Failure 409 {object} allocation.ScopeConflictDTO "Scope exceeded"
// @Router /api/grid/sessions/{sessionId}/select [post]
func (h *Handler) SelectGesture(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var dto selectDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeBadRequest(w, "Invalid request body format", nil)
		return
	}
	from, err := period.ParseDate(dto.From)
	if err != nil {
		gesturesTotal.WithLabelValues("select", "invalid").Inc()
		writeBadRequest(w, "Invalid gesture", err)
		return
	}
	to, err := period.ParseDate(dto.To)
	if err != nil {
		gesturesTotal.WithLabelValues("select", "invalid").Inc()
		writeBadRequest(w, "Invalid gesture", err)
		return
	}

	refs, err := h.controller.Select(r.Context(), s, Select{
		PersonId:   dto.PersonId,
		From:       from,
		To:         to,
		Action:     SelectAction(dto.Action),
		ProjectId:  dto.ProjectId,
		WorkItemId: dto.WorkItemId,
		Label:      dto.Label,
		Color:      dto.Color,
		Percent:    dto.Percent,
		Minutes:    dto.Minutes,
		Confirmed:  dto.Confirmed,
	})
	if err != nil {
		gesturesTotal.WithLabelValues("select", writeGestureError(w, err)).Inc()
		return
	}
	gesturesTotal.WithLabelValues("select", "ok").Inc()
	if err := json.NewEncoder(w).Encode(RefsDTO{Refs: refs}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// DeleteGesture godoc
// @Summary Delete a bar
// @Description Deletion only frees load, so it is never conflict-checked. The
// @Description removed record goes on the undo stack.
// @Tags Grid
// @Accept json
// @Produce json
// @Param gesture body deleteDTO true "Delete gesture"
// @Success 200 {object} RefsDTO
// @Failure 404 {string} string "Allocation not found"
// @Router /api/grid/sessions/{sessionId}/delete [post]
func (h *Handler) DeleteGesture(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var dto deleteDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeBadRequest(w, "Invalid request body format", nil)
		return
	}
	target, err := ParsePayload(dto.Target)
	if err != nil {
		gesturesTotal.WithLabelValues("delete", "invalid").Inc()
		writeBadRequest(w, "Invalid gesture", err)
		return
	}

	ref, err := h.controller.Delete(r.Context(), s, target)
	if err != nil {
		gesturesTotal.WithLabelValues("delete", writeGestureError(w, err)).Inc()
		return
	}
	gesturesTotal.WithLabelValues("delete", "ok").Inc()
	if err := json.NewEncoder(w).Encode(RefsDTO{Refs: []Ref{ref}}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// Undo godoc
// @Summary Undo the session's most recent gesture
// @Description Applies the inverse with the conflict override set, so a
// @Description restore never re-raises the conflict it confirmed away. An
// @Description empty history answers 204.
// @Tags Grid
// @Produce json
// @Success 200 {object} RefsDTO
// @Success 204 {string} string "Nothing to undo"
// @Failure 404 {string} string "Session not found"
// @Router /api/grid/sessions/{sessionId}/undo [post]
func (h *Handler) Undo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	refs, popped, err := h.controller.Undo(r.Context(), s)
	if !popped {
		gesturesTotal.WithLabelValues("undo", "empty").Inc()
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		gesturesTotal.WithLabelValues("undo", writeGestureError(w, err)).Inc()
		return
	}
	gesturesTotal.WithLabelValues("undo", "ok").Inc()
	if err := json.NewEncoder(w).Encode(RefsDTO{Refs: refs}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// View godoc
// @Summary Render the planning grid
// @Description Computes the person-by-period grid for a date range: per-cell
// @Description load percentages, off markers and the bars in each cell.
// @Tags Grid
// @Produce json
// @Param granularity query string true "day, week or month"
// @Param from query string true "Range start (YYYY-MM-DD)"
// @Param to query string true "Range end (YYYY-MM-DD)"
// @Param person_id query string false "Filter rows (repeatable)"
// @Success 200 {object} ViewDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid range or granularity"
// @Router /api/grid/view [get]
func (h *Handler) View(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	q := r.URL.Query()
	g, err := period.ParseGranularity(q.Get("granularity"))
	if err != nil {
		writeBadRequest(w, "Invalid granularity", err)
		return
	}
	from, err := period.ParseDate(q.Get("from"))
	if err != nil {
		writeBadRequest(w, "Invalid date range", err)
		return
	}
	to, err := period.ParseDate(q.Get("to"))
	if err != nil {
		writeBadRequest(w, "Invalid date range", err)
		return
	}
	if to.Before(from) {
		writeBadRequest(w, "Invalid date range", fmt.Errorf("%w: to is before from", period.ErrInvalidPeriod))
		return
	}

	view, err := h.view.Build(r.Context(), ViewQuery{
		Granularity: g,
		From:        from,
		To:          to,
		PersonIds:   q["person_id"],
	})
	if err != nil {
		if errors.Is(err, person.ErrPersonNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := json.NewEncoder(w).Encode(viewToDTO(view)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func viewToDTO(v View) ViewDTO {
	dto := ViewDTO{
		Granularity: string(v.Granularity),
		From:        period.FormatDate(v.From),
		To:          period.FormatDate(v.To),
		Columns:     make([]ColumnDTO, 0, len(v.Columns)),
		Rows:        make([]RowDTO, 0, len(v.Rows)),
	}
	for _, col := range v.Columns {
		dto.Columns = append(dto.Columns, ColumnDTO{
			Label: col.Label,
			Start: period.FormatDate(col.Period.Start),
			End:   period.FormatDate(col.Period.End()),
		})
	}
	for _, row := range v.Rows {
		rowDTO := RowDTO{
			PersonId:    row.PersonId,
			PersonName:  row.PersonName,
			Lanes:       row.Lanes,
			AvgPercent:  row.AvgPercent,
			PeakPercent: row.PeakPercent,
			Cells:       make([]CellDTO, 0, len(row.Cells)),
		}
		for _, cell := range row.Cells {
			cellDTO := CellDTO{Percent: cell.Percent, Off: cell.Off}
			for _, e := range cell.Entries {
				cellDTO.Entries = append(cellDTO.Entries, EntryDTO{
					Family:     e.Family,
					Id:         e.Id,
					Label:      e.Label,
					Color:      e.Color,
					Percent:    e.Percent,
					Minutes:    e.Minutes,
					Lane:       e.Lane,
					StartsHere: e.StartsHere,
					EndsHere:   e.EndsHere,
				})
			}
			rowDTO.Cells = append(rowDTO.Cells, cellDTO)
		}
		dto.Rows = append(dto.Rows, rowDTO)
	}
	return dto
}
