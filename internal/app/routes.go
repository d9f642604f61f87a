package app

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes registers all API endpoints. Everything except company
// provisioning and the metrics endpoint runs behind the company-resolution
// middleware, so handlers can rely on company.CurrentId.
func RegisterRoutes(r *mux.Router, deps *Dependencies) {

	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Companies (tenant provisioning, registered outside the company scope)
	r.HandleFunc("/api/companies", deps.CompanyHandler.CreateCompany).Methods("POST")
	r.HandleFunc("/api/companies", deps.CompanyHandler.ListCompanies).Methods("GET")
	r.HandleFunc("/api/companies/{companyId}", deps.CompanyHandler.GetCompany).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(companyMiddleware(deps.CompanyService))

	// People and time off
	api.HandleFunc("/people", deps.PersonHandler.CreatePerson).Methods("POST")
	api.HandleFunc("/people", deps.PersonHandler.ListPeople).Methods("GET")
	api.HandleFunc("/people/{personId}", deps.PersonHandler.GetPerson).Methods("GET")
	api.HandleFunc("/people/{personId}", deps.PersonHandler.UpdatePerson).Methods("PUT")
	api.HandleFunc("/people/{personId}", deps.PersonHandler.DeletePerson).Methods("DELETE")
	api.HandleFunc("/people/{personId}/timeoff", deps.PersonHandler.AddTimeOff).Methods("POST")
	api.HandleFunc("/people/{personId}/timeoff", deps.PersonHandler.ListTimeOff).Methods("GET")
	api.HandleFunc("/people/{personId}/timeoff/{timeOffId}", deps.PersonHandler.RemoveTimeOff).Methods("DELETE")

	// Projects and work items
	api.HandleFunc("/projects", deps.ProjectHandler.CreateProject).Methods("POST")
	api.HandleFunc("/projects", deps.ProjectHandler.ListProjects).Methods("GET")
	api.HandleFunc("/projects/{projectId}", deps.ProjectHandler.GetProject).Methods("GET")
	api.HandleFunc("/projects/{projectId}", deps.ProjectHandler.UpdateProject).Methods("PUT")
	api.HandleFunc("/projects/{projectId}", deps.ProjectHandler.DeleteProject).Methods("DELETE")
	api.HandleFunc("/projects/{projectId}/workitems", deps.ProjectHandler.AddWorkItem).Methods("POST")
	api.HandleFunc("/projects/{projectId}/workitems", deps.ProjectHandler.ListWorkItems).Methods("GET")
	api.HandleFunc("/projects/{projectId}/workitems/{itemId}", deps.ProjectHandler.UpdateWorkItem).Methods("PUT")
	api.HandleFunc("/projects/{projectId}/workitems/{itemId}", deps.ProjectHandler.RemoveWorkItem).Methods("DELETE")

	// Percent allocations
	api.HandleFunc("/allocations", deps.AllocationHandler.CreatePercent).Methods("POST")
	api.HandleFunc("/allocations", deps.AllocationHandler.ListPercent).Queries("from", "{from}", "to", "{to}").Methods("GET")
	api.HandleFunc("/allocations/{allocationId}", deps.AllocationHandler.UpdatePercent).Methods("PUT")
	api.HandleFunc("/allocations/{allocationId}", deps.AllocationHandler.DeletePercent).Methods("DELETE")
	api.HandleFunc("/allocations/{allocationId}/move", deps.AllocationHandler.MovePercent).Methods("POST")

	// Unit allocations
	api.HandleFunc("/unit_allocations", deps.AllocationHandler.CreateUnit).Methods("POST")
	api.HandleFunc("/unit_allocations", deps.AllocationHandler.ListUnit).Queries("from", "{from}", "to", "{to}").Methods("GET")
	api.HandleFunc("/unit_allocations/{allocationId}", deps.AllocationHandler.UpdateUnit).Methods("PUT")
	api.HandleFunc("/unit_allocations/{allocationId}", deps.AllocationHandler.DeleteUnit).Methods("DELETE")

	// Adhoc allocations
	api.HandleFunc("/adhoc_allocations", deps.AllocationHandler.CreateAdhoc).Methods("POST")
	api.HandleFunc("/adhoc_allocations", deps.AllocationHandler.ListAdhoc).Queries("from", "{from}", "to", "{to}").Methods("GET")
	api.HandleFunc("/adhoc_allocations/{allocationId}", deps.AllocationHandler.UpdateAdhoc).Methods("PUT")
	api.HandleFunc("/adhoc_allocations/{allocationId}", deps.AllocationHandler.DeleteAdhoc).Methods("DELETE")

	// Grid sessions and gestures
	api.HandleFunc("/grid/sessions", deps.GridHandler.OpenSession).Methods("POST")
	api.HandleFunc("/grid/sessions/{sessionId}", deps.GridHandler.CloseSession).Methods("DELETE")
	api.HandleFunc("/grid/sessions/{sessionId}/changes", deps.GridHandler.Changes).Methods("GET")
	api.HandleFunc("/grid/sessions/{sessionId}/drop", deps.GridHandler.Drop).Methods("POST")
	api.HandleFunc("/grid/sessions/{sessionId}/resize", deps.GridHandler.ResizeGesture).Methods("POST")
	api.HandleFunc("/grid/sessions/{sessionId}/select", deps.GridHandler.SelectGesture).Methods("POST")
	api.HandleFunc("/grid/sessions/{sessionId}/delete", deps.GridHandler.DeleteGesture).Methods("POST")
	api.HandleFunc("/grid/sessions/{sessionId}/undo", deps.GridHandler.Undo).Methods("POST")
	api.HandleFunc("/grid/view", deps.GridHandler.View).Methods("GET")

	// Auto-scheduler
	api.HandleFunc("/schedule/plan", deps.ScheduleHandler.PlanWorkItem).Methods("POST")
}
