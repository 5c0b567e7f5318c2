// Package dgisoap implementa el adaptador PAC de emisión directa contra el
// web service SOAP de la DGI (ficha rFE): construye el XML, lo firma con el
// certificado del emisor y lo entrega en línea. El flujo es síncrono: cada
// envío resuelve en autorizado o rechazado dentro de la misma llamada.
package dgisoap

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	"github.com/panafact/facturacion-api/pkg/config"
	"github.com/panafact/facturacion-api/pkg/pac"
)

// ProviderName es el nombre con el que el adaptador se registra.
const ProviderName = "dgi-soap"

var _ pac.Adapter = (*Adapter)(nil)

// Adapter implementa pac.Adapter contra el WS de la DGI.
type Adapter struct {
	env        string
	soapURL    string
	verifyBase string
	cert       tls.Certificate
	httpClient *http.Client
}

// Factory construye la pac.Factory del proveedor con los endpoints de la
// configuración global. Las credenciales (certificado) vienen del perfil.
func Factory(cfg config.PACConfig) pac.Factory {
	return func(profile pac.Profile) (pac.Adapter, error) {
		creds, err := parseCredentials(profile.Credentials)
		if err != nil {
			return nil, err
		}
		cert, err := creds.loadCertificate()
		if err != nil {
			return nil, err
		}
		soapURL := cfg.DGISoapURLTest
		if profile.Environment == "PROD" {
			soapURL = cfg.DGISoapURLProd
		}
		if creds.SOAPURL != "" {
			soapURL = creds.SOAPURL
		}
		timeout := time.Duration(cfg.HTTPTimeoutSeconds) * time.Second
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		return &Adapter{
			env:        profile.Environment,
			soapURL:    soapURL,
			verifyBase: "https://dgi-fep.mef.gob.pa/Consultas/FacturasPorCUFE?CUFE=",
			cert:       cert,
			httpClient: &http.Client{Timeout: timeout},
		}, nil
	}
}

// Name devuelve el nombre registrado del proveedor.
func (a *Adapter) Name() string { return ProviderName }

// SignAndSend construye el rFE, lo firma e invoca FeRecepFE. Sin reintentos:
// un error de transporte sube tal cual para que el caller lo trate como
// resultado ambiguo.
func (a *Adapter) SignAndSend(ctx context.Context, doc *pac.NormalizedDocument) (*pac.Result, error) {
	tree, cufe, err := buildRFE(doc)
	if err != nil {
		return nil, err
	}
	unsigned, err := tree.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("dgisoap: serializar rFE: %w", err)
	}
	signed, err := signRFE(unsigned, a.cert)
	if err != nil {
		return nil, err
	}

	body, action, err := buildSOAPRequest(a.soapURL, "FeRecepFE", recepBody(signed))
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.soapURL, body)
	if err != nil {
		return nil, fmt.Errorf("dgisoap: crear request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", action)

	res, err := soapCall(a.httpClient, req)
	if err != nil {
		return nil, err
	}
	if !res.authorized() {
		return &pac.Result{
			Success:       false,
			TransactionRef: res.Protocol,
			FailureReason: fmt.Sprintf("[%s] %s", res.Code, res.Message),
		}, nil
	}
	return &pac.Result{
		Success:         true,
		FiscalCode:      cufe,
		VerificationURL: a.verifyBase + cufe,
		SignedBlob:      string(signed),
		TransactionRef:  res.Protocol,
		AuthorizedAt:    time.Now(),
	}, nil
}

// CheckStatus no aplica: la recepción es síncrona y no deja envíos en proceso.
func (a *Adapter) CheckStatus(ctx context.Context, transactionRef string) (*pac.Result, error) {
	return nil, pac.ErrStatusNotSupported
}

// VoidDocument invoca el evento de anulación FeAnulFE sobre un CUFE autorizado.
func (a *Adapter) VoidDocument(ctx context.Context, fiscalCode, reason string) (*pac.Result, error) {
	body, action, err := buildSOAPRequest(a.soapURL, "FeAnulFE", anulBody(fiscalCode, foldASCII(reason)))
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.soapURL, body)
	if err != nil {
		return nil, fmt.Errorf("dgisoap: crear request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", action)

	res, err := soapCall(a.httpClient, req)
	if err != nil {
		return nil, err
	}
	if !res.authorized() {
		return &pac.Result{
			Success:       false,
			FailureReason: fmt.Sprintf("[%s] %s", res.Code, res.Message),
		}, nil
	}
	return &pac.Result{Success: true, FiscalCode: fiscalCode, TransactionRef: res.Protocol}, nil
}
