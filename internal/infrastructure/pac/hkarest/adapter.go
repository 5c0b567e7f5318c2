// Package hkarest implementa el adaptador PAC contra la API REST de un
// proveedor de certificación (modelo HKA): el PAC firma y entrega ante la
// DGI por cuenta del emisor. El proveedor puede resolver en línea o encolar
// el documento; en ese caso SignAndSend devuelve pac.ErrProcessing con la
// referencia para conciliar vía CheckStatus.
package hkarest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/panafact/facturacion-api/pkg/config"
	"github.com/panafact/facturacion-api/pkg/pac"
)

// ProviderName es el nombre con el que el adaptador se registra.
const ProviderName = "hka"

// Estados que reporta la API del proveedor.
const (
	statusAuthorized = "AUTORIZADO"
	statusRejected   = "RECHAZADO"
	statusProcessing = "EN_PROCESO"
)

var _ pac.Adapter = (*Adapter)(nil)

// credentials es el esquema del blob de credenciales del perfil para hka.
type credentials struct {
	TokenEmpresa  string `json:"token_empresa"`
	TokenPassword string `json:"token_password"`
	// BaseURL sobreescribe la base global (demo, staging).
	BaseURL string `json:"base_url"`
}

// Adapter implementa pac.Adapter sobre la API REST del PAC.
type Adapter struct {
	baseURL    string
	env        string
	creds      credentials
	httpClient *http.Client
}

// Factory construye la pac.Factory del proveedor.
func Factory(cfg config.PACConfig) pac.Factory {
	return func(profile pac.Profile) (pac.Adapter, error) {
		if len(profile.Credentials) == 0 {
			return nil, fmt.Errorf("hkarest: el perfil no tiene credenciales")
		}
		var creds credentials
		if err := json.Unmarshal(profile.Credentials, &creds); err != nil {
			return nil, fmt.Errorf("hkarest: credenciales inválidas: %w", err)
		}
		if creds.TokenEmpresa == "" || creds.TokenPassword == "" {
			return nil, fmt.Errorf("hkarest: faltan token_empresa o token_password")
		}
		baseURL := cfg.HKABaseURL
		if creds.BaseURL != "" {
			baseURL = creds.BaseURL
		}
		timeout := time.Duration(cfg.HTTPTimeoutSeconds) * time.Second
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		return &Adapter{
			baseURL:    baseURL,
			env:        profile.Environment,
			creds:      creds,
			httpClient: &http.Client{Timeout: timeout},
		}, nil
	}
}

// Name devuelve el nombre registrado del proveedor.
func (a *Adapter) Name() string { return ProviderName }

// ── Cuerpos de la API ──

type sendRequest struct {
	TokenEmpresa  string      `json:"tokenEmpresa"`
	TokenPassword string      `json:"tokenPassword"`
	Ambiente      string      `json:"ambiente"` // 1 producción, 2 pruebas
	Documento     sendDocument `json:"documento"`
}

type sendDocument struct {
	TipoDocumento    string      `json:"tipoDocumento"` // 01 | 04 | 05
	NumeroDocumento  string      `json:"numeroDocumento"`
	PuntoFacturacion string      `json:"puntoFacturacion"`
	Sucursal         string      `json:"sucursal"`
	FechaEmision     string      `json:"fechaEmision"`
	Emisor           sendParty   `json:"emisor"`
	Receptor         sendParty   `json:"receptor"`
	Items            []sendItem  `json:"items"`
	TotalNeto        string      `json:"totalNeto"`
	TotalITBMS       string      `json:"totalITBMS"`
	TotalDocumento   string      `json:"totalDocumento"`
	CufeReferencia   string      `json:"cufeReferencia,omitempty"`
	FechaReferencia  string      `json:"fechaReferencia,omitempty"`
	MotivoAnulacion  string      `json:"motivoAnulacion,omitempty"`
}

type sendParty struct {
	RUC       string `json:"ruc"`
	DV        string `json:"dv,omitempty"`
	Nombre    string `json:"nombre"`
	Direccion string `json:"direccion,omitempty"`
	Correo    string `json:"correo,omitempty"`
}

type sendItem struct {
	Descripcion    string `json:"descripcion"`
	Cantidad       string `json:"cantidad"`
	PrecioUnitario string `json:"precioUnitario"`
	Descuento      string `json:"descuento,omitempty"`
	TasaITBMS      string `json:"tasaITBMS"`
	ValorITBMS     string `json:"valorITBMS"`
	ValorTotal     string `json:"valorTotal"`
}

type apiResponse struct {
	Estado          string `json:"estado"` // AUTORIZADO | RECHAZADO | EN_PROCESO
	CUFE            string `json:"cufe"`
	QRURL           string `json:"qrUrl"`
	XMLFirmado      string `json:"xmlFirmado"`
	TransaccionID   string `json:"transaccionId"`
	FechaAutorizado string `json:"fechaAutorizado"`
	Mensaje         string `json:"mensaje"`
}

// SignAndSend entrega el documento al PAC. EN_PROCESO se traduce a
// pac.ErrProcessing junto con la referencia de transacción.
func (a *Adapter) SignAndSend(ctx context.Context, doc *pac.NormalizedDocument) (*pac.Result, error) {
	payload := sendRequest{
		TokenEmpresa:  a.creds.TokenEmpresa,
		TokenPassword: a.creds.TokenPassword,
		Ambiente:      ambCode(a.env),
		Documento:     buildDocument(doc),
	}
	resp, err := a.post(ctx, "/api/Enviar", payload)
	if err != nil {
		return nil, err
	}
	return a.toResult(resp)
}

// CheckStatus consulta un envío previo por su referencia.
func (a *Adapter) CheckStatus(ctx context.Context, transactionRef string) (*pac.Result, error) {
	payload := map[string]string{
		"tokenEmpresa":  a.creds.TokenEmpresa,
		"tokenPassword": a.creds.TokenPassword,
		"transaccionId": transactionRef,
	}
	resp, err := a.post(ctx, "/api/EstadoDocumento", payload)
	if err != nil {
		return nil, err
	}
	if resp.Estado == statusProcessing {
		// Sigue en cola: Result sin éxito ni razón, el caller decide.
		return &pac.Result{TransactionRef: transactionRef}, nil
	}
	return a.toResult(resp)
}

// VoidDocument solicita la anulación de un documento autorizado.
func (a *Adapter) VoidDocument(ctx context.Context, fiscalCode, reason string) (*pac.Result, error) {
	payload := map[string]string{
		"tokenEmpresa":  a.creds.TokenEmpresa,
		"tokenPassword": a.creds.TokenPassword,
		"cufe":          fiscalCode,
		"motivo":        reason,
	}
	resp, err := a.post(ctx, "/api/AnulacionDocumento", payload)
	if err != nil {
		return nil, err
	}
	switch resp.Estado {
	case statusAuthorized:
		return &pac.Result{Success: true, FiscalCode: fiscalCode, TransactionRef: resp.TransaccionID}, nil
	default:
		return &pac.Result{Success: false, FailureReason: resp.Mensaje}, nil
	}
}

func (a *Adapter) post(ctx context.Context, path string, payload any) (*apiResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("hkarest: serializar payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("hkarest: crear request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("hkarest: llamada HTTP fallida: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // max 1 MB
	if err != nil {
		return nil, fmt.Errorf("hkarest: leer respuesta: %w", err)
	}
	// 5xx es ambiguo: el documento pudo haberse procesado. Sube como error.
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("hkarest: el proveedor respondió %d", resp.StatusCode)
	}
	var out apiResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("hkarest: respuesta no parseable (%d): %w", resp.StatusCode, err)
	}
	// 4xx con cuerpo JSON es un rechazo definitivo de validación.
	if resp.StatusCode >= 400 && out.Estado == "" {
		out.Estado = statusRejected
	}
	return &out, nil
}

// toResult traduce la respuesta del PAC al contrato neutro.
func (a *Adapter) toResult(resp *apiResponse) (*pac.Result, error) {
	switch resp.Estado {
	case statusAuthorized:
		authorizedAt := time.Now()
		if resp.FechaAutorizado != "" {
			if ts, err := time.Parse(time.RFC3339, resp.FechaAutorizado); err == nil {
				authorizedAt = ts
			}
		}
		return &pac.Result{
			Success:         true,
			FiscalCode:      resp.CUFE,
			VerificationURL: resp.QRURL,
			SignedBlob:      resp.XMLFirmado,
			TransactionRef:  resp.TransaccionID,
			AuthorizedAt:    authorizedAt,
		}, nil
	case statusProcessing:
		return &pac.Result{TransactionRef: resp.TransaccionID}, pac.ErrProcessing
	default:
		reason := resp.Mensaje
		if reason == "" {
			reason = "documento rechazado por el proveedor"
		}
		return &pac.Result{Success: false, FailureReason: reason}, nil
	}
}

func buildDocument(doc *pac.NormalizedDocument) sendDocument {
	items := make([]sendItem, len(doc.Items))
	for i, it := range doc.Items {
		items[i] = sendItem{
			Descripcion:    it.Description,
			Cantidad:       it.Quantity.String(),
			PrecioUnitario: it.UnitPrice.StringFixed(2),
			TasaITBMS:      it.TaxRate.String(),
			ValorITBMS:     it.Tax.StringFixed(2),
			ValorTotal:     it.Taxable.Add(it.Tax).StringFixed(2),
		}
		if !it.Discount.IsZero() {
			items[i].Descuento = it.Discount.StringFixed(2)
		}
	}
	out := sendDocument{
		TipoDocumento:    docCode(doc.Kind),
		NumeroDocumento:  doc.Number,
		PuntoFacturacion: doc.POSCode,
		Sucursal:         doc.BranchCode,
		FechaEmision:     doc.IssueDate.Format(time.RFC3339),
		Emisor: sendParty{
			RUC: doc.Issuer.TaxID, DV: doc.Issuer.DV,
			Nombre: doc.Issuer.Name, Direccion: doc.Issuer.Address,
		},
		Receptor: sendParty{
			RUC: doc.Buyer.TaxID, DV: doc.Buyer.DV,
			Nombre: doc.Buyer.Name, Direccion: doc.Buyer.Address, Correo: doc.Buyer.Email,
		},
		Items:          items,
		TotalNeto:      doc.Totals.Taxable.StringFixed(2),
		TotalITBMS:     doc.Totals.Tax.StringFixed(2),
		TotalDocumento: doc.Totals.Total.StringFixed(2),
	}
	if doc.Reference != nil {
		out.CufeReferencia = doc.Reference.FiscalCode
		out.FechaReferencia = doc.Reference.IssueDate.Format("2006-01-02")
	}
	return out
}

func docCode(kind string) string {
	switch kind {
	case "CREDIT_NOTE":
		return "04"
	case "DEBIT_NOTE":
		return "05"
	default:
		return "01"
	}
}

func ambCode(environment string) string {
	if environment == "PROD" {
		return "1"
	}
	return "2"
}
