package repository

import (
	"context"

	"github.com/panafact/facturacion-api/internal/domain/entity"
)

// IssuerProfileRepository persiste los perfiles de emisor por tenant.
type IssuerProfileRepository interface {
	// Upsert crea o reemplaza el perfil de la empresa. Mantiene el
	// invariante de a lo sumo un perfil activo por empresa.
	Upsert(ctx context.Context, profile *entity.IssuerProfile) error

	// GetActiveByCompany devuelve el perfil activo del tenant, nil si no hay.
	GetActiveByCompany(ctx context.Context, companyID string) (*entity.IssuerProfile, error)
}
