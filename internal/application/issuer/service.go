// Package issuer gestiona el perfil de emisor del tenant: identidad fiscal
// (RUC y DV validados), sucursal y punto de facturación, proveedor PAC
// seleccionado y el blob opaco de credenciales.
package issuer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/panafact/facturacion-api/internal/domain"
	"github.com/panafact/facturacion-api/internal/domain/entity"
	"github.com/panafact/facturacion-api/internal/domain/repository"
	"github.com/panafact/facturacion-api/pkg/logger"
	"github.com/panafact/facturacion-api/pkg/pac"
	"github.com/panafact/facturacion-api/pkg/ruc"
)

// SaveProfileInput son los datos para crear o reemplazar el perfil de emisor.
type SaveProfileInput struct {
	RUC         string
	DV          string
	LegalName   string
	Address     string
	BranchCode  string
	POSCode     string
	Provider    string
	Environment string // TEST | PROD
	Credentials json.RawMessage
}

// Service implementa la gestión del perfil de emisor.
type Service struct {
	profileRepo repository.IssuerProfileRepository
	registry    *pac.Registry
	log         *logger.Logger
}

// NewService construye el servicio.
func NewService(profileRepo repository.IssuerProfileRepository, registry *pac.Registry, log *logger.Logger) *Service {
	return &Service{profileRepo: profileRepo, registry: registry, log: log}
}

// SaveProfile valida y persiste el perfil del tenant. Reemplaza el perfil
// anterior si existía: hay a lo sumo un perfil activo por empresa.
func (s *Service) SaveProfile(ctx context.Context, companyID string, in SaveProfileInput) (*entity.IssuerProfile, error) {
	if in.LegalName == "" {
		return nil, fmt.Errorf("%w: razón social requerida", domain.ErrInvalidInput)
	}
	if in.BranchCode == "" || in.POSCode == "" {
		return nil, fmt.Errorf("%w: sucursal y punto de facturación requeridos", domain.ErrInvalidInput)
	}
	if err := ruc.ValidateDV(in.RUC, in.DV); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	switch in.Environment {
	case entity.EnvironmentTest, entity.EnvironmentProd:
	default:
		return nil, fmt.Errorf("%w: ambiente desconocido %q", domain.ErrInvalidInput, in.Environment)
	}

	if len(in.Credentials) == 0 {
		return nil, fmt.Errorf("%w: credenciales del proveedor requeridas", domain.ErrConfiguration)
	}

	now := time.Now()
	profile := &entity.IssuerProfile{
		ID:          uuid.New().String(),
		CompanyID:   companyID,
		RUC:         in.RUC,
		DV:          in.DV,
		LegalName:   in.LegalName,
		Address:     in.Address,
		BranchCode:  in.BranchCode,
		POSCode:     in.POSCode,
		Provider:    in.Provider,
		Environment: in.Environment,
		Credentials: in.Credentials,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	// Las credenciales deben resolver un adaptador antes de guardarse: un
	// perfil que no puede emitir no sirve de nada persistido.
	if _, err := s.registry.Resolve(pac.Profile{
		Provider:    profile.Provider,
		Environment: profile.Environment,
		Credentials: profile.Credentials,
		Active:      true,
	}); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
	}

	if err := s.profileRepo.Upsert(ctx, profile); err != nil {
		return nil, fmt.Errorf("persistir perfil: %w", err)
	}
	s.log.Info().
		Str("company_id", companyID).
		Str("provider", profile.Provider).
		Str("environment", profile.Environment).
		Msg("perfil de emisor guardado")
	return profile, nil
}

// GetProfile devuelve el perfil activo del tenant.
func (s *Service) GetProfile(ctx context.Context, companyID string) (*entity.IssuerProfile, error) {
	profile, err := s.profileRepo.GetActiveByCompany(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("cargar perfil: %w", err)
	}
	if profile == nil {
		return nil, fmt.Errorf("%w: la empresa %s no tiene perfil de emisor", domain.ErrNotFound, companyID)
	}
	return profile, nil
}
