package app

import (
	"context"
	"database/sql"
	"time"

	"github.com/NescAdmin/nesc-planering/internal/config"
	"github.com/NescAdmin/nesc-planering/internal/event_bus"
	"github.com/NescAdmin/nesc-planering/internal/utils"
	"github.com/NescAdmin/nesc-planering/pkg/allocation"
	"github.com/NescAdmin/nesc-planering/pkg/company"
	"github.com/NescAdmin/nesc-planering/pkg/grid"
	"github.com/NescAdmin/nesc-planering/pkg/person"
	"github.com/NescAdmin/nesc-planering/pkg/project"
	"github.com/NescAdmin/nesc-planering/pkg/schedule"
)

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	Clock utils.Clock
	Bus   *event_bus.EventBus

	CompanyService company.Service
	CompanyHandler *company.Handler

	PersonService person.Service
	PersonHandler *person.Handler

	ProjectService project.Service
	ProjectHandler *project.Handler

	AllocationService allocation.Service
	AllocationHandler *allocation.Handler

	GridRegistry   *grid.Registry
	GridController *grid.Controller
	GridView       *grid.ViewBuilder
	GridHandler    *grid.Handler

	ScheduleService schedule.Service
	ScheduleHandler *schedule.Handler
}

// BuildDependencies initializes and wires all application services and handlers.
func BuildDependencies(db *sql.DB, cfg config.Application) *Dependencies {
	deps := &Dependencies{}

	deps.Clock = &utils.SystemClock{}
	deps.Bus = event_bus.NewEventBus()

	deps.CompanyService = company.NewService(company.NewRepo(db), deps.Clock)
	deps.CompanyHandler = company.NewHandler(deps.CompanyService)

	// The person service refuses deletes while allocations exist. The lookup
	// is late-bound through deps because the allocation service needs the
	// person service in turn.
	deps.PersonService = person.NewService(person.NewRepo(db), deps.Clock, func(ctx context.Context, personId string, from time.Time) (bool, error) {
		return deps.AllocationService.HasAllocations(ctx, personId, from)
	})
	deps.PersonHandler = person.NewHandler(deps.PersonService)

	deps.ProjectService = project.NewService(project.NewRepo(db))
	deps.ProjectHandler = project.NewHandler(deps.ProjectService)

	validator := allocation.NewValidator(deps.ProjectService, deps.PersonService, cfg.Planner.OverbookingPct)
	deps.AllocationService = allocation.NewService(allocation.NewRepo(db), validator, deps.ProjectService, deps.PersonService, deps.Bus, deps.Clock)
	deps.AllocationHandler = allocation.NewHandler(deps.AllocationService)

	deps.GridRegistry = grid.NewRegistry(deps.Bus, deps.Clock)
	deps.GridController = grid.NewController(deps.AllocationService, deps.ProjectService)
	deps.GridView = grid.NewViewBuilder(deps.AllocationService, deps.ProjectService, deps.PersonService)
	deps.GridHandler = grid.NewHandler(deps.GridRegistry, deps.GridController, deps.GridView)

	deps.ScheduleService = schedule.NewService(deps.AllocationService, deps.ProjectService, deps.PersonService, int64(cfg.Planner.SlotMinutes))
	deps.ScheduleHandler = schedule.NewHandler(deps.ScheduleService)

	return deps
}
