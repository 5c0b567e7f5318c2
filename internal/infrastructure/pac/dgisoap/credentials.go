package dgisoap

import (
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/pkcs12"
)

// credentials es el esquema del blob de credenciales del perfil de emisor
// para el proveedor dgi-soap. El certificado de firma llega embebido: como
// PKCS#12 en Base64 o como par PEM.
type credentials struct {
	P12B64      string `json:"p12_b64"`
	P12Password string `json:"p12_password"`
	CertPEM     string `json:"cert_pem"`
	KeyPEM      string `json:"key_pem"`
	// SOAPURL sobreescribe el endpoint del ambiente (tests, proxies).
	SOAPURL string `json:"soap_url"`
}

func parseCredentials(raw json.RawMessage) (*credentials, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("dgisoap: el perfil no tiene credenciales")
	}
	var c credentials
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("dgisoap: credenciales inválidas: %w", err)
	}
	if c.P12B64 == "" && c.CertPEM == "" {
		return nil, fmt.Errorf("dgisoap: las credenciales no traen certificado (p12_b64 o cert_pem)")
	}
	return &c, nil
}

// loadCertificate decodifica el certificado de firma del blob.
func (c *credentials) loadCertificate() (tls.Certificate, error) {
	if c.P12B64 != "" {
		data, err := base64.StdEncoding.DecodeString(c.P12B64)
		if err != nil {
			return tls.Certificate{}, fmt.Errorf("dgisoap: decodificar p12_b64: %w", err)
		}
		priv, cert, err := pkcs12.Decode(data, c.P12Password)
		if err != nil {
			return tls.Certificate{}, fmt.Errorf("dgisoap: decodificar PKCS#12: %w", err)
		}
		return tls.Certificate{
			Certificate: [][]byte{cert.Raw},
			PrivateKey:  priv,
			Leaf:        cert,
		}, nil
	}
	cert, err := tls.X509KeyPair([]byte(c.CertPEM), []byte(c.KeyPEM))
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("dgisoap: cargar par PEM: %w", err)
	}
	return cert, nil
}
