package repository

import (
	"context"

	"github.com/panafact/facturacion-api/internal/domain/entity"
)

// CustomerRepository persiste clientes.
type CustomerRepository interface {
	Create(ctx context.Context, customer *entity.Customer) error
	GetByID(ctx context.Context, id string) (*entity.Customer, error)
	ListByCompany(ctx context.Context, companyID string) ([]*entity.Customer, error)
}

// CompanyRepository persiste empresas/tenants.
type CompanyRepository interface {
	Create(ctx context.Context, company *entity.Company) error
	GetByID(ctx context.Context, id string) (*entity.Company, error)
}
