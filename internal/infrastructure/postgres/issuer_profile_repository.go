package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/panafact/facturacion-api/internal/domain"
	"github.com/panafact/facturacion-api/internal/domain/entity"
	"github.com/panafact/facturacion-api/internal/domain/repository"
)

var _ repository.IssuerProfileRepository = (*IssuerProfileRepo)(nil)

// IssuerProfileRepo implementación de IssuerProfileRepository (usable con pool o tx).
type IssuerProfileRepo struct {
	q Querier
}

// NewIssuerProfileRepository construye el adaptador. Pasar pool o tx (Querier).
func NewIssuerProfileRepository(q Querier) *IssuerProfileRepo {
	return &IssuerProfileRepo{q: q}
}

// Upsert crea o reemplaza el perfil de la empresa. El índice parcial de la
// tabla garantiza a lo sumo un perfil activo por empresa.
func (r *IssuerProfileRepo) Upsert(ctx context.Context, p *entity.IssuerProfile) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	query := `
		INSERT INTO issuer_profiles (id, company_id, ruc, dv, legal_name, address,
			branch_code, pos_code, provider, environment, credentials, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (company_id) DO UPDATE SET
			ruc = EXCLUDED.ruc,
			dv = EXCLUDED.dv,
			legal_name = EXCLUDED.legal_name,
			address = EXCLUDED.address,
			branch_code = EXCLUDED.branch_code,
			pos_code = EXCLUDED.pos_code,
			provider = EXCLUDED.provider,
			environment = EXCLUDED.environment,
			credentials = EXCLUDED.credentials,
			active = EXCLUDED.active,
			updated_at = EXCLUDED.updated_at`
	_, err := r.q.Exec(ctx, query,
		p.ID, p.CompanyID, p.RUC, p.DV, p.LegalName, nullIfEmpty(p.Address),
		p.BranchCode, p.POSCode, p.Provider, p.Environment, p.Credentials, p.Active,
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: perfil de emisor duplicado para la empresa %s", domain.ErrConflict, p.CompanyID)
		}
		return fmt.Errorf("upsert issuer profile: %w", err)
	}
	return nil
}

// GetActiveByCompany devuelve el perfil activo del tenant, nil si no hay.
func (r *IssuerProfileRepo) GetActiveByCompany(ctx context.Context, companyID string) (*entity.IssuerProfile, error) {
	query := `
		SELECT id, company_id, ruc, dv, legal_name, address, branch_code, pos_code,
		       provider, environment, credentials, active, created_at, updated_at
		FROM issuer_profiles
		WHERE company_id = $1 AND active`
	var p entity.IssuerProfile
	var address *string
	err := r.q.QueryRow(ctx, query, companyID).Scan(
		&p.ID, &p.CompanyID, &p.RUC, &p.DV, &p.LegalName, &address, &p.BranchCode, &p.POSCode,
		&p.Provider, &p.Environment, &p.Credentials, &p.Active, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get issuer profile: %w", err)
	}
	p.Address = derefStr(address)
	return &p, nil
}
