package person

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/NescAdmin/nesc-planering/internal/rest"
	"github.com/NescAdmin/nesc-planering/pkg/period"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type PersonDTO struct {
	Id           string `json:"id"`
	Name         string `json:"name"`
	WorkdayStart string `json:"workdayStart"`
	WorkdayEnd   string `json:"workdayEnd"`
	LunchMinutes *int   `json:"lunchMinutes"`
}

type TimeOffDTO struct {
	Id        string `json:"id"`
	PersonId  string `json:"personId"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Kind      string `json:"kind"`
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// CreatePerson godoc
// @Summary Create a new person
// @Tags Person
// @Accept json
// @Produce json
// @Param person body PersonDTO true "Person"
// @Success 201 {object} PersonDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid request"
// @Router /api/people [post]
func (h *Handler) CreatePerson(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	log.Debug("Creating person")

	var dto PersonDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		encodeErr := json.NewEncoder(w).Encode(rest.ErrorResponse{
			Error: "Invalid request body format",
		})
		if encodeErr != nil {
			http.Error(w, encodeErr.Error(), http.StatusInternalServerError)
		}
		return
	}

	created, err := h.service.Create(r.Context(), dtoToPerson(dto))
	if err != nil {
		if errors.Is(err, ErrInvalidPersonData) {
			w.WriteHeader(http.StatusBadRequest)
			encodeErr := json.NewEncoder(w).Encode(rest.ErrorResponse{
				Error:   "Invalid person data",
				Details: err.Error(),
			})
			if encodeErr != nil {
				http.Error(w, encodeErr.Error(), http.StatusInternalServerError)
			}
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(personToDTO(created)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

// ListPeople godoc
// @Summary List all people of the current company
// @Tags Person
// @Produce json
// @Success 200 {array} PersonDTO
// @Router /api/people [get]
func (h *Handler) ListPeople(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	people, err := h.service.GetAll(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	dtos := make([]PersonDTO, 0, len(people))
	for _, p := range people {
		dtos = append(dtos, personToDTO(p))
	}
	if err := json.NewEncoder(w).Encode(dtos); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

// GetPerson godoc
// @Summary Get a person by id
// @Tags Person
// @Produce json
// @Success 200 {object} PersonDTO
// @Failure 404 {string} string "Person not found"
// @Router /api/people/{personId} [get]
func (h *Handler) GetPerson(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	personId := mux.Vars(r)["personId"]

	found, err := h.service.Get(r.Context(), personId)
	if err != nil {
		if errors.Is(err, ErrPersonNotFound) {
			http.Error(w, "person not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := json.NewEncoder(w).Encode(personToDTO(found)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

// UpdatePerson godoc
// @Summary Update a person
// @Tags Person
// @Accept json
// @Produce json
// @Success 200 {object} PersonDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid request"
// @Failure 404 {string} string "Person not found"
// @Router /api/people/{personId} [put]
func (h *Handler) UpdatePerson(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	personId := mux.Vars(r)["personId"]

	var dto PersonDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		encodeErr := json.NewEncoder(w).Encode(rest.ErrorResponse{
			Error: "Invalid request body format",
		})
		if encodeErr != nil {
			http.Error(w, encodeErr.Error(), http.StatusInternalServerError)
		}
		return
	}
	p := dtoToPerson(dto)
	p.Id = personId

	updated, err := h.service.Update(r.Context(), p)
	if err != nil {
		switch {
		case errors.Is(err, ErrPersonNotFound):
			http.Error(w, "person not found", http.StatusNotFound)
		case errors.Is(err, ErrInvalidPersonData):
			w.WriteHeader(http.StatusBadRequest)
			encodeErr := json.NewEncoder(w).Encode(rest.ErrorResponse{
				Error:   "Invalid person data",
				Details: err.Error(),
			})
			if encodeErr != nil {
				http.Error(w, encodeErr.Error(), http.StatusInternalServerError)
			}
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	if err := json.NewEncoder(w).Encode(personToDTO(updated)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

// DeletePerson godoc
// @Summary Delete a person
// @Description Deletes a person unless they still have allocations today or later.
// @Tags Person
// @Success 204 {string} string "Deleted"
// @Failure 404 {string} string "Person not found"
// @Failure 409 {object} rest.ErrorResponse "Person has future allocations"
// @Router /api/people/{personId} [delete]
func (h *Handler) DeletePerson(w http.ResponseWriter, r *http.Request) {
	personId := mux.Vars(r)["personId"]

	err := h.service.Delete(r.Context(), personId)
	if err != nil {
		switch {
		case errors.Is(err, ErrPersonNotFound):
			http.Error(w, "person not found", http.StatusNotFound)
		case errors.Is(err, ErrPersonInUse):
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusConflict)
			encodeErr := json.NewEncoder(w).Encode(rest.ErrorResponse{
				Error:   "person_in_use",
				Details: "person still has allocations today or later",
			})
			if encodeErr != nil {
				http.Error(w, encodeErr.Error(), http.StatusInternalServerError)
			}
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddTimeOff godoc
// @Summary Register time off for a person
// @Tags Person
// @Accept json
// @Produce json
// @Param timeOff body TimeOffDTO true "Time off"
// @Success 201 {object} TimeOffDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid request"
// @Failure 404 {string} string "Person not found"
// @Router /api/people/{personId}/timeoff [post]
func (h *Handler) AddTimeOff(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	personId := mux.Vars(r)["personId"]

	var dto TimeOffDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		encodeErr := json.NewEncoder(w).Encode(rest.ErrorResponse{
			Error: "Invalid request body format",
		})
		if encodeErr != nil {
			http.Error(w, encodeErr.Error(), http.StatusInternalServerError)
		}
		return
	}
	dto.PersonId = personId

	off, err := dtoToTimeOff(dto)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		encodeErr := json.NewEncoder(w).Encode(rest.ErrorResponse{
			Error:   "Invalid time off data",
			Details: err.Error(),
		})
		if encodeErr != nil {
			http.Error(w, encodeErr.Error(), http.StatusInternalServerError)
		}
		return
	}

	created, err := h.service.AddTimeOff(r.Context(), off)
	if err != nil {
		switch {
		case errors.Is(err, ErrPersonNotFound):
			http.Error(w, "person not found", http.StatusNotFound)
		case errors.Is(err, ErrInvalidTimeOffData):
			w.WriteHeader(http.StatusBadRequest)
			encodeErr := json.NewEncoder(w).Encode(rest.ErrorResponse{
				Error:   "Invalid time off data",
				Details: err.Error(),
			})
			if encodeErr != nil {
				http.Error(w, encodeErr.Error(), http.StatusInternalServerError)
			}
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(timeOffToDTO(created)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

// ListTimeOff godoc
// @Summary List a person's time off overlapping a date range
// @Tags Person
// @Produce json
// @Success 200 {array} TimeOffDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid date range"
// @Router /api/people/{personId}/timeoff [get]
func (h *Handler) ListTimeOff(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	personId := mux.Vars(r)["personId"]

	from, err := period.ParseDate(r.URL.Query().Get("from"))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		encodeErr := json.NewEncoder(w).Encode(rest.ErrorResponse{
			Error:   "Invalid from date",
			Details: "from must be formatted as YYYY-MM-DD",
		})
		if encodeErr != nil {
			http.Error(w, encodeErr.Error(), http.StatusInternalServerError)
		}
		return
	}
	to, err := period.ParseDate(r.URL.Query().Get("to"))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		encodeErr := json.NewEncoder(w).Encode(rest.ErrorResponse{
			Error:   "Invalid to date",
			Details: "to must be formatted as YYYY-MM-DD",
		})
		if encodeErr != nil {
			http.Error(w, encodeErr.Error(), http.StatusInternalServerError)
		}
		return
	}

	timeOff, err := h.service.GetTimeOff(r.Context(), personId, from, to)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	dtos := make([]TimeOffDTO, 0, len(timeOff))
	for _, off := range timeOff {
		dtos = append(dtos, timeOffToDTO(off))
	}
	if err := json.NewEncoder(w).Encode(dtos); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

// RemoveTimeOff godoc
// @Summary Remove a time off entry
// @Tags Person
// @Success 204 {string} string "Deleted"
// @Failure 404 {string} string "Time off not found"
// @Router /api/people/{personId}/timeoff/{timeOffId} [delete]
func (h *Handler) RemoveTimeOff(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	err := h.service.RemoveTimeOff(r.Context(), vars["personId"], vars["timeOffId"])
	if err != nil {
		if errors.Is(err, ErrTimeOffNotFound) {
			http.Error(w, "time off not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func personToDTO(p Person) PersonDTO {
	lunch := p.LunchMinutes
	return PersonDTO{
		Id:           p.Id,
		Name:         p.Name,
		WorkdayStart: p.WorkdayStart,
		WorkdayEnd:   p.WorkdayEnd,
		LunchMinutes: &lunch,
	}
}

func dtoToPerson(dto PersonDTO) Person {
	lunch := 60
	if dto.LunchMinutes != nil {
		lunch = *dto.LunchMinutes
	}
	return Person{
		Id:           dto.Id,
		Name:         dto.Name,
		WorkdayStart: dto.WorkdayStart,
		WorkdayEnd:   dto.WorkdayEnd,
		LunchMinutes: lunch,
	}
}

func timeOffToDTO(off TimeOff) TimeOffDTO {
	return TimeOffDTO{
		Id:        off.Id,
		PersonId:  off.PersonId,
		StartDate: period.FormatDate(off.StartDate),
		EndDate:   period.FormatDate(off.EndDate),
		Kind:      string(off.Kind),
	}
}

func dtoToTimeOff(dto TimeOffDTO) (TimeOff, error) {
	start, err := period.ParseDate(dto.StartDate)
	if err != nil {
		return TimeOff{}, err
	}
	end, err := period.ParseDate(dto.EndDate)
	if err != nil {
		return TimeOff{}, err
	}
	return TimeOff{
		Id:        dto.Id,
		PersonId:  dto.PersonId,
		StartDate: start,
		EndDate:   end,
		Kind:      TimeOffKind(dto.Kind),
	}, nil
}
