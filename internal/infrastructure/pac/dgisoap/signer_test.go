package dgisoap

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"math/big"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestCertificate genera un certificado autofirmado con llave RSA para
// firmar en tests. Devuelve también los PEM para armar credenciales.
func newTestCertificate(t *testing.T) (tls.Certificate, string, string) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	template := x509.Certificate{
		SerialNumber: big.NewInt(1770),
		Subject:      pkix.Name{CommonName: "Comercial Istmo S.A.", Organization: []string{"PanaFact Test"}},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	require.NoError(t, err)

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})

	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	require.NoError(t, err)
	return cert, string(certPEM), string(keyPEM)
}

func TestSignRFEInjectsSignature(t *testing.T) {
	cert, _, _ := newTestCertificate(t)

	tree, _, err := buildRFE(sampleDocument())
	require.NoError(t, err)
	unsigned, err := tree.WriteToBytes()
	require.NoError(t, err)

	signed, err := signRFE(unsigned, cert)
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(signed))
	root := doc.Root()
	require.NotNil(t, root)

	sig := root.FindElement("ds:Signature")
	require.NotNil(t, sig, "la firma debe quedar como hijo del rFE")

	// Reference apunta al Id del documento.
	ref := sig.FindElement("ds:SignedInfo/ds:Reference")
	require.NotNil(t, ref)
	assert.Equal(t, "#"+rfeElementID, ref.SelectAttrValue("URI", ""))

	digest := ref.FindElement("ds:DigestValue")
	require.NotNil(t, digest)
	assert.NotEmpty(t, digest.Text())

	sigValue := sig.FindElement("ds:SignatureValue")
	require.NotNil(t, sigValue)
	raw, err := base64.StdEncoding.DecodeString(sigValue.Text())
	require.NoError(t, err)
	assert.Equal(t, 256, len(raw), "firma RSA-2048")

	// El certificado viaja en KeyInfo y parsea.
	certB64 := sig.FindElement("ds:KeyInfo/ds:X509Data/ds:X509Certificate")
	require.NotNil(t, certB64)
	der, err := base64.StdEncoding.DecodeString(certB64.Text())
	require.NoError(t, err)
	parsed, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	assert.Equal(t, "Comercial Istmo S.A.", parsed.Subject.CommonName)

	// Propiedades XAdES mínimas.
	assert.NotNil(t, sig.FindElement("ds:Object/xades:QualifyingProperties/xades:SignedProperties/xades:SignedSignatureProperties/xades:SigningTime"))
}

func TestSignRFERejectsEmptyInput(t *testing.T) {
	cert, _, _ := newTestCertificate(t)
	_, err := signRFE(nil, cert)
	require.Error(t, err)
}

func TestCredentialsRoundTrip(t *testing.T) {
	_, certPEM, keyPEM := newTestCertificate(t)

	raw := []byte(`{"cert_pem": ` + jsonString(certPEM) + `, "key_pem": ` + jsonString(keyPEM) + `}`)
	creds, err := parseCredentials(raw)
	require.NoError(t, err)

	cert, err := creds.loadCertificate()
	require.NoError(t, err)
	assert.NotEmpty(t, cert.Certificate)
}

func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func TestParseCredentialsRejectsEmpty(t *testing.T) {
	_, err := parseCredentials(nil)
	require.Error(t, err)
	_, err = parseCredentials([]byte(`{}`))
	require.Error(t, err)
}
