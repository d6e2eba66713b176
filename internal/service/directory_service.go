package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/societyops/society-service/internal/domain"
	"github.com/societyops/society-service/internal/persistence"
	"github.com/societyops/society-service/internal/repository"
	apperrors "github.com/societyops/society-service/pkg/util"
)

const directoryCacheKey = "directory:available"

// TechnicianDirectory supplies candidate snapshots to the assignment
// engine. Availability in a snapshot is advisory: it may change between
// selection and commit, and the engine tolerates that race.
type TechnicianDirectory interface {
	ListAvailable(ctx context.Context) ([]domain.Technician, error)
	GetTechnician(ctx context.Context, id string) (domain.Technician, error)
}

// DirectoryService reads the technician directory with a short-lived Redis
// snapshot cache in front of the repository.
type DirectoryService struct {
	techs  repository.TechnicianRepository
	cache  *persistence.Redis
	logger *zap.Logger
	ttl    time.Duration
}

// NewDirectoryService creates the service.
func NewDirectoryService(techs repository.TechnicianRepository, cache *persistence.Redis, logger *zap.Logger, ttl time.Duration) *DirectoryService {
	return &DirectoryService{techs: techs, cache: cache, logger: logger, ttl: ttl}
}

// ListAvailable returns the current available-technician snapshot,
// preferring the cache. Cache failures degrade to a repository read.
func (d *DirectoryService) ListAvailable(ctx context.Context) ([]domain.Technician, error) {
	if cached, ok, err := d.cache.GetString(ctx, directoryCacheKey); err == nil && ok {
		var snapshot []domain.Technician
		if err := json.Unmarshal([]byte(cached), &snapshot); err == nil {
			return snapshot, nil
		}
		d.logger.Warn("invalid directory cache entry, dropping")
		_ = d.cache.Delete(ctx, directoryCacheKey)
	}

	snapshot, err := d.techs.ListAvailable(ctx)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(snapshot); err == nil {
		if err := d.cache.SetString(ctx, directoryCacheKey, string(encoded), d.ttl); err != nil {
			d.logger.Debug("directory cache write failed", zap.Error(err))
		}
	}
	return snapshot, nil
}

// GetTechnician fetches one technician regardless of availability, for
// rendering decisions on issues whose assignee has since gone busy.
func (d *DirectoryService) GetTechnician(ctx context.Context, id string) (domain.Technician, error) {
	return d.techs.GetByID(ctx, id)
}

// ListAll returns every active technician.
func (d *DirectoryService) ListAll(ctx context.Context) ([]domain.Technician, error) {
	return d.techs.ListAll(ctx)
}

// SetAvailability updates a technician's availability flag and invalidates
// the snapshot cache.
func (d *DirectoryService) SetAvailability(ctx context.Context, technicianID string, availability domain.Availability) error {
	switch availability {
	case domain.AvailabilityAvailable, domain.AvailabilityBusy, domain.AvailabilityOffline:
	default:
		return apperrors.NewValidationError("invalid availability", map[string]any{"availability": availability})
	}
	if err := d.techs.UpdateAvailability(ctx, technicianID, availability); err != nil {
		return apperrors.MapError(err)
	}
	if err := d.cache.Delete(ctx, directoryCacheKey); err != nil {
		d.logger.Debug("directory cache invalidation failed", zap.Error(err))
	}
	return nil
}
