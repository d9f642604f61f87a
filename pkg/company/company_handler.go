package company

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/NescAdmin/nesc-planering/internal/rest"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type CompanyDTO struct {
	Id        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// CreateCompany godoc
// @Summary Create a new company
// @Description Register a new company (planning tenant)
// @Tags Company
// @Accept json
// @Produce json
// @Param company body CompanyDTO true "Company"
// @Success 201 {object} CompanyDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid request"
// @Router /api/companies [post]
func (h *Handler) CreateCompany(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	log.Debug("Creating company")

	var dto CompanyDTO
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

	if len(dto.Name) == 0 {
		w.WriteHeader(http.StatusBadRequest)
		encodeErr := json.NewEncoder(w).Encode(rest.ErrorResponse{
			Error: "Company name is required",
		})
		if encodeErr != nil {
			http.Error(w, encodeErr.Error(), http.StatusInternalServerError)
		}
		return
	}

	created, err := h.service.Create(r.Context(), Company{Name: dto.Name})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(companyToDTO(created)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

// GetCompany godoc
// @Summary Get a company by id
// @Tags Company
// @Produce json
// @Success 200 {object} CompanyDTO
// @Failure 404 {string} string "Company not found"
// @Router /api/companies/{companyId} [get]
func (h *Handler) GetCompany(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	companyId := mux.Vars(r)["companyId"]

	found, err := h.service.Get(r.Context(), companyId)
	if err != nil {
		if errors.Is(err, ErrCompanyNotFound) {
			http.Error(w, "company not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if err := json.NewEncoder(w).Encode(companyToDTO(found)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

// ListCompanies godoc
// @Summary List all companies
// @Tags Company
// @Produce json
// @Success 200 {array} CompanyDTO
// @Router /api/companies [get]
func (h *Handler) ListCompanies(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	companies, err := h.service.GetAll(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	dtos := make([]CompanyDTO, 0, len(companies))
	for _, c := range companies {
		dtos = append(dtos, companyToDTO(c))
	}
	if err := json.NewEncoder(w).Encode(dtos); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func companyToDTO(c Company) CompanyDTO {
	return CompanyDTO{
		Id:        c.Id,
		Name:      c.Name,
		CreatedAt: c.CreatedAt,
	}
}
