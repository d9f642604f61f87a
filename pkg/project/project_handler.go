package project

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/NescAdmin/nesc-planering/internal/rest"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type ProjectDTO struct {
	Id            string `json:"id"`
	Name          string `json:"name"`
	Color         string `json:"color"`
	BudgetMinutes int64  `json:"budgetMinutes"`
	Archived      bool   `json:"archived"`
}

type WorkItemDTO struct {
	Id           string `json:"id"`
	ProjectId    string `json:"projectId"`
	Name         string `json:"name"`
	TotalMinutes int64  `json:"totalMinutes"`
	SortOrder    int    `json:"sortOrder"`
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// CreateProject godoc
// @Summary Create a new project
// @Tags Project
// @Accept json
// @Produce json
// @Param project body ProjectDTO true "Project"
// @Success 201 {object} ProjectDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid request"
// @Router /api/projects [post]
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	log.Debug("Creating project")

	var dto ProjectDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeBadRequest(w, "Invalid request body format", "")
		return
	}

	created, err := h.service.Create(r.Context(), dtoToProject(dto))
	if err != nil {
		if errors.Is(err, ErrInvalidProjectData) {
			writeBadRequest(w, "Invalid project data", err.Error())
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(projectToDTO(created)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

// ListProjects godoc
// @Summary List projects
// @Description Lists active projects; pass includeArchived=true for all.
// @Tags Project
// @Produce json
// @Success 200 {array} ProjectDTO
// @Router /api/projects [get]
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	includeArchived := r.URL.Query().Get("includeArchived") == "true"

	projects, err := h.service.GetAll(r.Context(), includeArchived)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	dtos := make([]ProjectDTO, 0, len(projects))
	for _, p := range projects {
		dtos = append(dtos, projectToDTO(p))
	}
	if err := json.NewEncoder(w).Encode(dtos); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

// GetProject godoc
// @Summary Get a project by id
// @Tags Project
// @Produce json
// @Success 200 {object} ProjectDTO
// @Failure 404 {string} string "Project not found"
// @Router /api/projects/{projectId} [get]
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	projectId := mux.Vars(r)["projectId"]

	found, err := h.service.Get(r.Context(), projectId)
	if err != nil {
		if errors.Is(err, ErrProjectNotFound) {
			http.Error(w, "project not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := json.NewEncoder(w).Encode(projectToDTO(found)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

// UpdateProject godoc
// @Summary Update a project
// @Tags Project
// @Accept json
// @Produce json
// @Success 200 {object} ProjectDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid request"
// @Failure 404 {string} string "Project not found"
// @Router /api/projects/{projectId} [put]
func (h *Handler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	projectId := mux.Vars(r)["projectId"]

	var dto ProjectDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeBadRequest(w, "Invalid request body format", "")
		return
	}
	p := dtoToProject(dto)
	p.Id = projectId

	updated, err := h.service.Update(r.Context(), p)
	if err != nil {
		switch {
		case errors.Is(err, ErrProjectNotFound):
			http.Error(w, "project not found", http.StatusNotFound)
		case errors.Is(err, ErrInvalidProjectData):
			writeBadRequest(w, "Invalid project data", err.Error())
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	if err := json.NewEncoder(w).Encode(projectToDTO(updated)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

// DeleteProject godoc
// @Summary Delete a project and its work items
// @Tags Project
// @Success 204 {string} string "Deleted"
// @Failure 404 {string} string "Project not found"
// @Router /api/projects/{projectId} [delete]
func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	projectId := mux.Vars(r)["projectId"]

	if err := h.service.Delete(r.Context(), projectId); err != nil {
		if errors.Is(err, ErrProjectNotFound) {
			http.Error(w, "project not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddWorkItem godoc
// @Summary Add a work item to a project
// @Tags Project
// @Accept json
// @Produce json
// @Param item body WorkItemDTO true "Work item"
// @Success 201 {object} WorkItemDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid request"
// @Failure 404 {string} string "Project not found"
// @Router /api/projects/{projectId}/workitems [post]
func (h *Handler) AddWorkItem(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	projectId := mux.Vars(r)["projectId"]

	var dto WorkItemDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeBadRequest(w, "Invalid request body format", "")
		return
	}
	dto.ProjectId = projectId

	created, err := h.service.AddWorkItem(r.Context(), dtoToWorkItem(dto))
	if err != nil {
		switch {
		case errors.Is(err, ErrProjectNotFound):
			http.Error(w, "project not found", http.StatusNotFound)
		case errors.Is(err, ErrInvalidProjectData):
			writeBadRequest(w, "Invalid work item data", err.Error())
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(workItemToDTO(created)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

// ListWorkItems godoc
// @Summary List a project's work items
// @Tags Project
// @Produce json
// @Success 200 {array} WorkItemDTO
// @Router /api/projects/{projectId}/workitems [get]
func (h *Handler) ListWorkItems(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	projectId := mux.Vars(r)["projectId"]

	items, err := h.service.GetWorkItems(r.Context(), projectId)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	dtos := make([]WorkItemDTO, 0, len(items))
	for _, item := range items {
		dtos = append(dtos, workItemToDTO(item))
	}
	if err := json.NewEncoder(w).Encode(dtos); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

// UpdateWorkItem godoc
// @Summary Update a work item
// @Tags Project
// @Accept json
// @Produce json
// @Success 200 {object} WorkItemDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid request"
// @Failure 404 {string} string "Work item not found"
// @Router /api/projects/{projectId}/workitems/{itemId} [put]
func (h *Handler) UpdateWorkItem(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	vars := mux.Vars(r)

	var dto WorkItemDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeBadRequest(w, "Invalid request body format", "")
		return
	}
	item := dtoToWorkItem(dto)
	item.Id = vars["itemId"]
	item.ProjectId = vars["projectId"]

	updated, err := h.service.UpdateWorkItem(r.Context(), item)
	if err != nil {
		switch {
		case errors.Is(err, ErrWorkItemNotFound):
			http.Error(w, "work item not found", http.StatusNotFound)
		case errors.Is(err, ErrInvalidProjectData):
			writeBadRequest(w, "Invalid work item data", err.Error())
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	if err := json.NewEncoder(w).Encode(workItemToDTO(updated)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

// RemoveWorkItem godoc
// @Summary Delete a work item
// @Tags Project
// @Success 204 {string} string "Deleted"
// @Failure 404 {string} string "Work item not found"
// @Router /api/projects/{projectId}/workitems/{itemId} [delete]
func (h *Handler) RemoveWorkItem(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	if err := h.service.RemoveWorkItem(r.Context(), vars["projectId"], vars["itemId"]); err != nil {
		if errors.Is(err, ErrWorkItemNotFound) {
			http.Error(w, "work item not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeBadRequest(w http.ResponseWriter, message string, details string) {
	w.WriteHeader(http.StatusBadRequest)
	encodeErr := json.NewEncoder(w).Encode(rest.ErrorResponse{
		Error:   message,
		Details: details,
	})
	if encodeErr != nil {
		http.Error(w, encodeErr.Error(), http.StatusInternalServerError)
	}
}

func projectToDTO(p Project) ProjectDTO {
	return ProjectDTO{
		Id:            p.Id,
		Name:          p.Name,
		Color:         p.Color,
		BudgetMinutes: p.BudgetMinutes,
		Archived:      p.Archived,
	}
}

func dtoToProject(dto ProjectDTO) Project {
	return Project{
		Id:            dto.Id,
		Name:          dto.Name,
		Color:         dto.Color,
		BudgetMinutes: dto.BudgetMinutes,
		Archived:      dto.Archived,
	}
}

func workItemToDTO(item WorkItem) WorkItemDTO {
	return WorkItemDTO{
		Id:           item.Id,
		ProjectId:    item.ProjectId,
		Name:         item.Name,
		TotalMinutes: item.TotalMinutes,
		SortOrder:    item.SortOrder,
	}
}

func dtoToWorkItem(dto WorkItemDTO) WorkItem {
	return WorkItem{
		Id:           dto.Id,
		ProjectId:    dto.ProjectId,
		Name:         dto.Name,
		TotalMinutes: dto.TotalMinutes,
		SortOrder:    dto.SortOrder,
	}
}
