package invoicing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/panafact/facturacion-api/internal/domain"
	"github.com/panafact/facturacion-api/internal/domain/entity"
)

// CreateCustomerInput son los datos para registrar un cliente.
type CreateCustomerInput struct {
	Name    string
	TaxID   string
	Email   string
	Phone   string
	Address string
}

// CreateCustomer registra un cliente del tenant.
func (s *Service) CreateCustomer(ctx context.Context, companyID string, in CreateCustomerInput) (*entity.Customer, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("%w: nombre del cliente requerido", domain.ErrInvalidInput)
	}
	if in.TaxID == "" {
		return nil, fmt.Errorf("%w: RUC o cédula del cliente requerido", domain.ErrInvalidInput)
	}
	now := time.Now()
	customer := &entity.Customer{
		ID:        uuid.New().String(),
		CompanyID: companyID,
		Name:      in.Name,
		TaxID:     in.TaxID,
		Email:     in.Email,
		Phone:     in.Phone,
		Address:   in.Address,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.customerRepo.Create(ctx, customer); err != nil {
		return nil, fmt.Errorf("persistir cliente: %w", err)
	}
	return customer, nil
}

// ListCustomers devuelve los clientes del tenant.
func (s *Service) ListCustomers(ctx context.Context, companyID string) ([]*entity.Customer, error) {
	customers, err := s.customerRepo.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("listar clientes: %w", err)
	}
	return customers, nil
}
