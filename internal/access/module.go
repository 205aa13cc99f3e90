package access

import (
	"context"
	"fmt"
	"log/slog"

	"gad-esmeraldas/internal/access/dto"
	"gad-esmeraldas/internal/access/middleware"
	"gad-esmeraldas/internal/access/models"
	"gad-esmeraldas/internal/access/routes"
	"gad-esmeraldas/internal/access/services"
	contractsServices "gad-esmeraldas/internal/contracts/services"
	"gad-esmeraldas/pkg/config"
	"gad-esmeraldas/pkg/database"
	"gad-esmeraldas/pkg/module"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Module represents the access control module
type Module struct {
	*module.BaseModule
	service    *services.Service
	authorizer *services.AdminAuthorizer
	sweeper    *services.ExpirySweeper
	routes     *routes.Routes
}

// contractLookup adapts the contracts repository to the evaluator's view of a contract
type contractLookup struct {
	repo *contractsServices.Repository
}

func (c contractLookup) FindContract(ctx context.Context, id primitive.ObjectID) (*models.ContractRef, error) {
	contract, err := c.repo.GetByID(ctx, id)
	if err != nil || contract == nil {
		return nil, err
	}
	return &models.ContractRef{
		ID:                   contract.ID,
		RequestingDepartment: contract.RequestingDepartment,
		CreatedBy:            contract.CreatedBy,
		ContractType:         contract.ContractType,
		Phase:                contract.CurrentPhase,
		Amount:               contract.BudgetAmount,
	}, nil
}

// NewModule creates the access module. Redis is optional; without it
// decisions are evaluated on every check.
func NewModule(mongodb *database.MongoDB, redis *database.Redis) (*Module, error) {
	if mongodb == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	opts := []services.Option{}
	if redis != nil {
		opts = append(opts, services.WithDecisionCache(services.NewRedisDecisionCache(redis), config.GetAccessCacheTTL()))
		slog.Info("Access decision cache enabled", "ttl", config.GetAccessCacheTTL())
	} else {
		slog.Warn("Access decision cache disabled, Redis not available")
	}

	repo := services.NewRepository(mongodb)
	contracts := contractLookup{repo: contractsServices.NewRepository(mongodb)}
	service := services.NewService(repo, contracts, opts...)

	authorizer, err := services.NewAdminAuthorizer(mongodb, config.GetSuperAdminUserID())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize access authorizer: %w", err)
	}

	validate, err := dto.NewValidator()
	if err != nil {
		return nil, err
	}

	auth := middleware.NewAuthMiddleware(config.GetJWTSecret(), authorizer, service)

	return &Module{
		BaseModule: module.NewBaseModule("access", mongodb, redis),
		service:    service,
		authorizer: authorizer,
		sweeper:    services.NewExpirySweeper(service, config.GetAccessExpirySchedule()),
		routes:     routes.NewRoutes(service, authorizer, auth, validate, mongodb.HealthCheck),
	}, nil
}

// Routes mounts the module health endpoint
func (m *Module) Routes(r chi.Router) {
	m.RegisterHealthRoute(r)
}

// RegisterUnifiedRoutes registers routes on the shared Huma API
func (m *Module) RegisterUnifiedRoutes(api huma.API) {
	m.routes.RegisterUnifiedRoutes(api)
}

// StartBackgroundTasks starts the passive expiry sweep
func (m *Module) StartBackgroundTasks(ctx context.Context) {
	if err := m.sweeper.Start(); err != nil {
		slog.ErrorContext(ctx, "Failed to start access expiry sweep", "error", err)
		return
	}
	go func() {
		select {
		case <-ctx.Done():
		case <-m.StopChannel():
		}
		m.sweeper.Stop()
	}()
}

// Stop stops background tasks
func (m *Module) Stop() {
	m.sweeper.Stop()
	m.BaseModule.Stop()
}

// GetService returns the access service for use by other modules
func (m *Module) GetService() *services.Service {
	return m.service
}

var _ module.Module = (*Module)(nil)
