package entity

import (
	"encoding/json"
	"time"
)

// Ambientes de emisión (iAmb de la DGI).
const (
	EnvironmentTest = "TEST"
	EnvironmentProd = "PROD"
)

// IssuerProfile es la configuración fiscal del tenant: identidad ante la DGI,
// proveedor PAC y credenciales. A lo sumo un perfil activo por empresa.
type IssuerProfile struct {
	ID         string
	CompanyID  string
	RUC        string
	DV         string // dígito verificador del RUC
	LegalName  string
	Address    string
	BranchCode string // código de sucursal
	POSCode    string // punto de facturación

	Provider    string // nombre del adaptador PAC registrado
	Environment string // Environment*

	// Credentials es un blob JSON opaco para el dominio; cada adaptador
	// conoce su propio esquema (certificado, tokens, URLs).
	Credentials json.RawMessage

	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
