package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"edumart2/internal/caching"
	"edumart2/internal/models"
	"edumart2/internal/repositories"
)

type TenantService interface {
	Create(ctx context.Context, tenant *models.Tenant) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	GetBySlug(ctx context.Context, slug string) (*models.Tenant, error)
	Update(ctx context.Context, tenant *models.Tenant) error
	Suspend(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*models.Tenant, error)
}

type tenantService struct {
	tenantRepo repositories.TenantRepository
	cache      caching.CacheService
}

func NewTenantService(tenantRepo repositories.TenantRepository, cache caching.CacheService) TenantService {
	return &tenantService{tenantRepo: tenantRepo, cache: cache}
}

func (s *tenantService) Create(ctx context.Context, tenant *models.Tenant) error {
	tenant.Name = strings.TrimSpace(tenant.Name)
	tenant.Slug = strings.ToLower(strings.TrimSpace(tenant.Slug))
	if tenant.Name == "" || tenant.Slug == "" {
		return errors.New("name and slug are required")
	}
	if strings.Contains(tenant.Slug, " ") {
		return errors.New("slug cannot have spaces")
	}
	if tenant.ID == uuid.Nil {
		tenant.ID = uuid.New()
	}
	if tenant.Status == "" {
		tenant.Status = models.TenantStatusActive
	}
	now := time.Now()
	tenant.CreatedAt = now
	tenant.UpdatedAt = now
	return s.tenantRepo.Create(ctx, tenant)
}

func (s *tenantService) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	if s.cache != nil {
		if tenant, err := s.cache.GetTenant(ctx, id); err == nil && tenant != nil {
			return tenant, nil
		}
	}
	tenant, err := s.tenantRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetTenant(ctx, tenant, 10*time.Minute); err != nil {
			log.Printf("Failed to cache tenant %s: %v", tenant.ID, err)
		}
	}
	return tenant, nil
}

func (s *tenantService) GetBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	return s.tenantRepo.GetBySlug(ctx, strings.ToLower(strings.TrimSpace(slug)))
}

func (s *tenantService) Update(ctx context.Context, tenant *models.Tenant) error {
	if tenant.ID == uuid.Nil {
		return errors.New("tenant id is required")
	}
	tenant.UpdatedAt = time.Now()
	if err := s.tenantRepo.Update(ctx, tenant); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.DeleteTenant(ctx, tenant.ID); err != nil {
			log.Printf("Failed to invalidate tenant cache %s: %v", tenant.ID, err)
		}
	}
	return nil
}

func (s *tenantService) Suspend(ctx context.Context, id uuid.UUID) error {
	tenant, err := s.tenantRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	tenant.Status = models.TenantStatusSuspended
	return s.Update(ctx, tenant)
}

func (s *tenantService) List(ctx context.Context, limit, offset int) ([]*models.Tenant, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.tenantRepo.List(ctx, limit, offset)
}
