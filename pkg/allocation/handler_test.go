package allocation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/NescAdmin/nesc-planering/pkg/company"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test setup helper
func setupAllocationHandler(t *testing.T) (*Handler, *planningFixture) {
	f := newPlanningFixture(t)
	return NewHandler(f.service), f
}

func requestWithCompany(r *http.Request) *http.Request {
	ctx := company.WithCompany(r.Context(), company.Company{Id: "company-1", Name: "NESC"})
	return r.WithContext(ctx)
}

// A middleware that sets the company in the context
func withCompany(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, requestWithCompany(r))
	})
}

func postJSON(t *testing.T, target string, body any) *http.Request {
	t.Helper()
	encoded, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewBuffer(encoded))
	req.Header.Set("Content-Type", "application/json")
	return requestWithCompany(req)
}

func putJSON(t *testing.T, target string, allocationId string, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPut, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = mux.SetURLVars(req, map[string]string{"allocationId": allocationId})
	return requestWithCompany(req)
}

func TestCreatePercent_Success(t *testing.T) {
	// Setup
	handler, f := setupAllocationHandler(t)
	maja := f.addPerson(t, "Maja")
	website := f.addProject(t, "Website", 6000)

	// Create a request booking half of one week
	req := postJSON(t, "/api/allocations", PercentDTO{
		PersonId:  maja.Id,
		ProjectId: website.Id,
		StartDate: "2026-08-24",
		EndDate:   "2026-08-28",
		Percent:   50,
		Note:      "frontend sprint",
	})
	w := httptest.NewRecorder()

	// Call the handler
	handler.CreatePercent(w, req)

	// Verify response
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var dto PercentDTO
	err := json.NewDecoder(w.Body).Decode(&dto)
	assert.NoError(t, err)
	assert.NotEmpty(t, dto.Id, "Created allocation should have an id")
	assert.Equal(t, maja.Id, dto.PersonId)
	assert.Equal(t, website.Id, dto.ProjectId)
	assert.Equal(t, "2026-08-24", dto.StartDate)
	assert.Equal(t, "2026-08-28", dto.EndDate)
	assert.Equal(t, 50, dto.Percent)
	assert.Equal(t, "frontend sprint", dto.Note)
}

func TestCreatePercent_InvalidBody(t *testing.T) {
	// Setup
	handler, _ := setupAllocationHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/allocations", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	// Call the handler
	handler.CreatePercent(w, requestWithCompany(req))

	// Verify response
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var errResponse struct {
		Error string `json:"error"`
	}
	err := json.NewDecoder(w.Body).Decode(&errResponse)
	assert.NoError(t, err)
	assert.Equal(t, "Invalid request body format", errResponse.Error)
}

func TestCreatePercent_InvalidDate(t *testing.T) {
	// Setup
	handler, f := setupAllocationHandler(t)
	maja := f.addPerson(t, "Maja")

	req := postJSON(t, "/api/allocations", PercentDTO{
		PersonId:  maja.Id,
		StartDate: "2026-08-99",
		EndDate:   "2026-08-28",
		Percent:   50,
	})
	w := httptest.NewRecorder()

	// Call the handler
	handler.CreatePercent(w, req)

	// Verify response
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var errResponse struct {
		Error   string `json:"error"`
		Details string `json:"details"`
	}
	err := json.NewDecoder(w.Body).Decode(&errResponse)
	assert.NoError(t, err)
	assert.Equal(t, "Invalid allocation data", errResponse.Error)
	assert.Contains(t, errResponse.Details, "is not a date")
}

func TestCreatePercent_ScopeConflict(t *testing.T) {
	// Setup: a full week at 100% books 2400 minutes against a 600 minute scope
	handler, f := setupAllocationHandler(t)
	maja := f.addPerson(t, "Maja")
	website := f.addProject(t, "Website", 600)

	req := postJSON(t, "/api/allocations", PercentDTO{
		PersonId:  maja.Id,
		ProjectId: website.Id,
		StartDate: "2026-08-24",
		EndDate:   "2026-08-28",
		Percent:   100,
	})
	w := httptest.NewRecorder()

	// Call the handler
	handler.CreatePercent(w, req)

	// Verify the conflict body carries everything the confirmation prompt shows
	assert.Equal(t, http.StatusConflict, w.Code)

	var body map[string]any
	err := json.NewDecoder(w.Body).Decode(&body)
	assert.NoError(t, err)
	assert.Equal(t, "scope_exceeded", body["error"])
	assert.Equal(t, website.Id, body["project_id"])
	assert.Equal(t, float64(600), body["scope"])
	assert.Equal(t, float64(2400), body["planned"])
	assert.Equal(t, float64(2400), body["planned_pct"])
	assert.Equal(t, float64(0), body["planned_units"])
	assert.Equal(t, float64(1800), body["over"])
	assert.Equal(t, "10.0", body["scope_hours"])
	assert.Equal(t, "40.0", body["planned_hours"])
	assert.Equal(t, "30.0", body["over_hours"])

	// Nothing was stored
	stored, err := f.service.ListPercent(testCtx, nil, date(2026, time.August, 24), date(2026, time.August, 28))
	assert.NoError(t, err)
	assert.Empty(t, stored)
}

func TestCreatePercent_AllowOver(t *testing.T) {
	// Setup: same overflow as TestCreatePercent_ScopeConflict
	handler, f := setupAllocationHandler(t)
	maja := f.addPerson(t, "Maja")
	lukas := f.addPerson(t, "Lukas")
	website := f.addProject(t, "Website", 600)

	// 1. The body flag commits the allocation despite the overflow
	req := postJSON(t, "/api/allocations", PercentDTO{
		PersonId:  maja.Id,
		ProjectId: website.Id,
		StartDate: "2026-08-24",
		EndDate:   "2026-08-28",
		Percent:   100,
		AllowOver: true,
	})
	w := httptest.NewRecorder()
	handler.CreatePercent(w, req)
	assert.Equal(t, http.StatusCreated, w.Code)

	// 2. The query parameter works as well, for clients that resubmit the
	// original body untouched
	req = postJSON(t, "/api/allocations?allow_over=true", PercentDTO{
		PersonId:  lukas.Id,
		ProjectId: website.Id,
		StartDate: "2026-08-24",
		EndDate:   "2026-08-28",
		Percent:   100,
	})
	w = httptest.NewRecorder()
	handler.CreatePercent(w, req)
	assert.Equal(t, http.StatusCreated, w.Code)

	// Both overrides were stored
	stored, err := f.service.ListPercent(testCtx, nil, date(2026, time.August, 24), date(2026, time.August, 28))
	assert.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestListPercent_Success(t *testing.T) {
	// Setup
	handler, f := setupAllocationHandler(t)
	maja := f.addPerson(t, "Maja")
	lukas := f.addPerson(t, "Lukas")
	website := f.addProject(t, "Website", 0)

	for _, personId := range []string{maja.Id, lukas.Id} {
		_, err := f.service.CreatePercent(testCtx, Percent{
			PersonId:  personId,
			ProjectId: website.Id,
			StartDate: date(2026, time.August, 24),
			EndDate:   date(2026, time.August, 28),
			Percent:   40,
		}, false)
		require.NoError(t, err)
	}

	// 1. Without a person filter both allocations come back
	req := httptest.NewRequest(http.MethodGet, "/api/allocations?from=2026-08-24&to=2026-08-28", nil)
	w := httptest.NewRecorder()
	companyMiddleware := withCompany(http.HandlerFunc(handler.ListPercent))
	companyMiddleware.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var dtos []PercentDTO
	err := json.NewDecoder(w.Body).Decode(&dtos)
	assert.NoError(t, err)
	assert.Len(t, dtos, 2)

	// 2. The person_id filter narrows the result
	req = httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/allocations?from=2026-08-24&to=2026-08-28&person_id=%s", maja.Id), nil)
	w = httptest.NewRecorder()
	companyMiddleware.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	dtos = nil
	err = json.NewDecoder(w.Body).Decode(&dtos)
	assert.NoError(t, err)
	assert.Len(t, dtos, 1)
	assert.Equal(t, maja.Id, dtos[0].PersonId)
}

func TestListPercent_EmptyResults(t *testing.T) {
	// Setup
	handler, _ := setupAllocationHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/allocations?from=2026-08-24&to=2026-08-28", nil)
	w := httptest.NewRecorder()

	// Call the handler
	handler.ListPercent(w, requestWithCompany(req))

	// Parse response - should be an empty array, not null
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]\n", w.Body.String())
}

func TestListPercent_InvalidRange(t *testing.T) {
	// Setup
	handler, _ := setupAllocationHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/allocations?from=yesterday&to=2026-08-28", nil)
	w := httptest.NewRecorder()

	// Call the handler
	handler.ListPercent(w, requestWithCompany(req))

	// Verify response
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var errResponse struct {
		Error   string `json:"error"`
		Details string `json:"details"`
	}
	err := json.NewDecoder(w.Body).Decode(&errResponse)
	assert.NoError(t, err)
	assert.Equal(t, "Invalid date range", errResponse.Error)
	assert.Contains(t, errResponse.Details, "yesterday")
}

func TestUpdatePercent_PartialBody(t *testing.T) {
	// Setup
	handler, f := setupAllocationHandler(t)
	maja := f.addPerson(t, "Maja")
	website := f.addProject(t, "Website", 0)

	created, err := f.service.CreatePercent(testCtx, Percent{
		PersonId:  maja.Id,
		ProjectId: website.Id,
		StartDate: date(2026, time.August, 24),
		EndDate:   date(2026, time.August, 28),
		Percent:   50,
		Note:      "initial",
	}, false)
	require.NoError(t, err)

	// A body carrying only the percent leaves everything else untouched
	req := putJSON(t, fmt.Sprintf("/api/allocations/%s", created.Id), created.Id, `{"percent": 80}`)
	w := httptest.NewRecorder()

	// Call the handler
	handler.UpdatePercent(w, req)

	// Verify response
	assert.Equal(t, http.StatusOK, w.Code)

	var dto PercentDTO
	err = json.NewDecoder(w.Body).Decode(&dto)
	assert.NoError(t, err)
	assert.Equal(t, created.Id, dto.Id)
	assert.Equal(t, 80, dto.Percent, "Percent should be updated")
	assert.Equal(t, maja.Id, dto.PersonId, "Person should remain the same")
	assert.Equal(t, "2026-08-24", dto.StartDate, "Start date should remain the same")
	assert.Equal(t, "initial", dto.Note, "Note should remain the same")

	// Verify the update persisted
	stored, err := f.service.GetPercent(testCtx, created.Id)
	assert.NoError(t, err)
	assert.Equal(t, 80, stored.Percent)
}

func TestUpdatePercent_NotFound(t *testing.T) {
	// Setup
	handler, _ := setupAllocationHandler(t)

	req := putJSON(t, "/api/allocations/missing", "missing", `{"percent": 80}`)
	w := httptest.NewRecorder()

	// Call the handler
	handler.UpdatePercent(w, req)

	// Verify response
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeletePercent(t *testing.T) {
	// Setup
	handler, f := setupAllocationHandler(t)
	maja := f.addPerson(t, "Maja")
	website := f.addProject(t, "Website", 0)

	created, err := f.service.CreatePercent(testCtx, Percent{
		PersonId:  maja.Id,
		ProjectId: website.Id,
		StartDate: date(2026, time.August, 24),
		EndDate:   date(2026, time.August, 28),
		Percent:   50,
	}, false)
	require.NoError(t, err)

	// 1. Delete the allocation
	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/allocations/%s", created.Id), nil)
	req = mux.SetURLVars(req, map[string]string{"allocationId": created.Id})
	w := httptest.NewRecorder()
	handler.DeletePercent(w, requestWithCompany(req))
	assert.Equal(t, http.StatusNoContent, w.Code)

	// 2. A second delete reports it gone
	w = httptest.NewRecorder()
	handler.DeletePercent(w, requestWithCompany(req))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMovePercent_Success(t *testing.T) {
	// Setup
	handler, f := setupAllocationHandler(t)
	maja := f.addPerson(t, "Maja")
	lukas := f.addPerson(t, "Lukas")
	website := f.addProject(t, "Website", 0)

	created, err := f.service.CreatePercent(testCtx, Percent{
		PersonId:  maja.Id,
		ProjectId: website.Id,
		StartDate: date(2026, time.August, 24),
		EndDate:   date(2026, time.August, 28),
		Percent:   50,
	}, false)
	require.NoError(t, err)

	// Move it to Lukas, one week later
	form := url.Values{}
	form.Set("person_id", lukas.Id)
	form.Set("start", "2026-08-31")

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/allocations/%s/move", created.Id), strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Referer", "/grid?week=2026-W36")
	req = mux.SetURLVars(req, map[string]string{"allocationId": created.Id})
	w := httptest.NewRecorder()

	// Call the handler
	handler.MovePercent(w, requestWithCompany(req))

	// The non-JS client is sent back to the page it came from
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/grid?week=2026-W36", w.Header().Get("Location"))

	// The allocation kept its length on the way
	moved, err := f.service.GetPercent(testCtx, created.Id)
	assert.NoError(t, err)
	assert.Equal(t, lukas.Id, moved.PersonId)
	assert.Equal(t, date(2026, time.August, 31), moved.StartDate)
	assert.Equal(t, date(2026, time.September, 4), moved.EndDate)
	assert.Equal(t, 50, moved.Percent)
}

func TestMovePercent_OverbookedTarget(t *testing.T) {
	// Setup: Lukas is already fully booked for the week
	handler, f := setupAllocationHandler(t)
	maja := f.addPerson(t, "Maja")
	lukas := f.addPerson(t, "Lukas")
	website := f.addProject(t, "Website", 0)

	_, err := f.service.CreatePercent(testCtx, Percent{
		PersonId:  lukas.Id,
		ProjectId: website.Id,
		StartDate: date(2026, time.August, 24),
		EndDate:   date(2026, time.August, 28),
		Percent:   100,
	}, false)
	require.NoError(t, err)

	created, err := f.service.CreatePercent(testCtx, Percent{
		PersonId:  maja.Id,
		ProjectId: website.Id,
		StartDate: date(2026, time.August, 24),
		EndDate:   date(2026, time.August, 28),
		Percent:   50,
	}, false)
	require.NoError(t, err)

	// Try to hand Maja's allocation to Lukas
	form := url.Values{}
	form.Set("person_id", lukas.Id)

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/allocations/%s/move", created.Id), strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req = mux.SetURLVars(req, map[string]string{"allocationId": created.Id})
	w := httptest.NewRecorder()

	// Call the handler
	handler.MovePercent(w, requestWithCompany(req))

	// The form path answers conflicts as plain text
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "overbooked")

	// The allocation stayed where it was
	unchanged, err := f.service.GetPercent(testCtx, created.Id)
	assert.NoError(t, err)
	assert.Equal(t, maja.Id, unchanged.PersonId)
}

func TestMovePercent_NotFound(t *testing.T) {
	// Setup
	handler, _ := setupAllocationHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/allocations/missing/move", strings.NewReader("person_id=p-1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req = mux.SetURLVars(req, map[string]string{"allocationId": "missing"})
	w := httptest.NewRecorder()

	// Call the handler
	handler.MovePercent(w, requestWithCompany(req))

	// Verify response
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "allocation not found")
}

func TestCreateUnit_Success(t *testing.T) {
	// Setup
	handler, f := setupAllocationHandler(t)
	maja := f.addPerson(t, "Maja")
	website := f.addProject(t, "Website", 0)
	backend := f.addWorkItem(t, website.Id, "Backend", 600)

	req := postJSON(t, "/api/unit_allocations", UnitDTO{
		PersonId:   maja.Id,
		WorkItemId: backend.Id,
		StartDate:  "2026-08-24",
		EndDate:    "2026-08-26",
		Minutes:    240,
	})
	w := httptest.NewRecorder()

	// Call the handler
	handler.CreateUnit(w, req)

	// Verify response
	assert.Equal(t, http.StatusCreated, w.Code)

	var dto UnitDTO
	err := json.NewDecoder(w.Body).Decode(&dto)
	assert.NoError(t, err)
	assert.NotEmpty(t, dto.Id)
	assert.Equal(t, backend.Id, dto.WorkItemId)
	assert.Equal(t, website.Id, dto.ProjectId, "Project should be resolved from the work item")
	assert.Equal(t, int64(240), dto.Minutes)
}

func TestCreateUnit_InvalidMinutes(t *testing.T) {
	// Setup
	handler, f := setupAllocationHandler(t)
	maja := f.addPerson(t, "Maja")
	website := f.addProject(t, "Website", 0)
	backend := f.addWorkItem(t, website.Id, "Backend", 600)

	// 100 is not a multiple of the 15 minute slot
	req := postJSON(t, "/api/unit_allocations", UnitDTO{
		PersonId:   maja.Id,
		WorkItemId: backend.Id,
		StartDate:  "2026-08-24",
		EndDate:    "2026-08-26",
		Minutes:    100,
	})
	w := httptest.NewRecorder()

	// Call the handler
	handler.CreateUnit(w, req)

	// Verify response
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var errResponse struct {
		Error string `json:"error"`
	}
	err := json.NewDecoder(w.Body).Decode(&errResponse)
	assert.NoError(t, err)
	assert.Equal(t, "Invalid allocation data", errResponse.Error)
}

func TestCreateAdhoc_Defaults(t *testing.T) {
	// Setup
	handler, f := setupAllocationHandler(t)
	maja := f.addPerson(t, "Maja")

	// Title and color left empty
	req := postJSON(t, "/api/adhoc_allocations", AdhocDTO{
		PersonId:  maja.Id,
		StartDate: "2026-08-24",
		EndDate:   "2026-08-28",
		Percent:   20,
	})
	w := httptest.NewRecorder()

	// Call the handler
	handler.CreateAdhoc(w, req)

	// Verify the defaults made it into the response
	assert.Equal(t, http.StatusCreated, w.Code)

	var dto AdhocDTO
	err := json.NewDecoder(w.Body).Decode(&dto)
	assert.NoError(t, err)
	assert.Equal(t, "Fri text", dto.Title)
	assert.Equal(t, "#ff4fa3", dto.Color)
	assert.Equal(t, 20, dto.Percent)
}

func TestCreateAdhoc_Overbooked(t *testing.T) {
	// Setup: Maja already spends 80% of the week elsewhere
	handler, f := setupAllocationHandler(t)
	maja := f.addPerson(t, "Maja")

	_, err := f.service.CreateAdhoc(testCtx, Adhoc{
		PersonId:  maja.Id,
		Label:     "Utbildning",
		StartDate: date(2026, time.August, 24),
		EndDate:   date(2026, time.August, 28),
		Percent:   80,
	}, false)
	require.NoError(t, err)

	req := postJSON(t, "/api/adhoc_allocations", AdhocDTO{
		PersonId:  maja.Id,
		Title:     "Intern support",
		StartDate: "2026-08-24",
		EndDate:   "2026-08-28",
		Percent:   30,
	})
	w := httptest.NewRecorder()

	// Call the handler
	handler.CreateAdhoc(w, req)

	// Verify the overbooking body
	assert.Equal(t, http.StatusConflict, w.Code)

	var body map[string]any
	err = json.NewDecoder(w.Body).Decode(&body)
	assert.NoError(t, err)
	assert.Equal(t, "overbooked", body["error"])
	assert.Equal(t, maja.Id, body["person_id"])
	assert.Equal(t, "2026-W35", body["period"])
	assert.Equal(t, float64(110), body["percent"])
	assert.Equal(t, float64(100), body["threshold"])
}

func TestUpdateAdhoc_KeepsLabelWhenOmitted(t *testing.T) {
	// Setup
	handler, f := setupAllocationHandler(t)
	maja := f.addPerson(t, "Maja")

	created, err := f.service.CreateAdhoc(testCtx, Adhoc{
		PersonId:  maja.Id,
		Label:     "Utbildning",
		Color:     "#00aa66",
		StartDate: date(2026, time.August, 24),
		EndDate:   date(2026, time.August, 28),
		Percent:   20,
	}, false)
	require.NoError(t, err)

	// Only the percent changes
	req := putJSON(t, fmt.Sprintf("/api/adhoc_allocations/%s", created.Id), created.Id, `{"percent": 40}`)
	w := httptest.NewRecorder()

	// Call the handler
	handler.UpdateAdhoc(w, req)

	// Verify response
	assert.Equal(t, http.StatusOK, w.Code)

	var dto AdhocDTO
	err = json.NewDecoder(w.Body).Decode(&dto)
	assert.NoError(t, err)
	assert.Equal(t, 40, dto.Percent)
	assert.Equal(t, "Utbildning", dto.Title, "Label should remain the same")
	assert.Equal(t, "#00aa66", dto.Color, "Color should remain the same")
}
