package dgisoap

import (
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Código de respuesta de autorización de la DGI.
const codeAuthorized = "0260"

const (
	soapNS     = "http://schemas.xmlsoap.org/soap/envelope/"
	soapNSFep  = "http://dgi-fep.mef.gob.pa"
	actionBase = "http://dgi-fep.mef.gob.pa/IFeRecepFE/"
)

// submitResult resultado normalizado de una operación SOAP contra la DGI.
type submitResult struct {
	Code     string // dCodRes
	Message  string // dMsgRes
	Protocol string // dProt, número de protocolo de autorización
}

func (r *submitResult) authorized() bool { return r.Code == codeAuthorized }

type soapEnvelope struct {
	XMLName xml.Name   `xml:"s:Envelope"`
	XmlnsS  string     `xml:"xmlns:s,attr"`
	Header  soapHeader `xml:"s:Header"`
	Body    soapBody   `xml:"s:Body"`
}

type soapHeader struct{}

type soapBody struct {
	Content interface{}
}

func (b soapBody) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name.Local = "s:Body"
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	if err := e.Encode(b.Content); err != nil {
		return err
	}
	return e.EncodeToken(start.End())
}

// feRecepFEBody cuerpo de la operación de recepción del documento firmado.
type feRecepFEBody struct {
	XMLName   xml.Name `xml:"FeRecepFE"`
	Xmlns     string   `xml:"xmlns,attr"`
	Documento string   `xml:"documento"` // rFE firmado en Base64
}

// feAnulFEBody cuerpo de la operación de anulación.
type feAnulFEBody struct {
	XMLName xml.Name `xml:"FeAnulFE"`
	Xmlns   string   `xml:"xmlns,attr"`
	CUFE    string   `xml:"dCufe"`
	Motivo  string   `xml:"dMotivo"`
}

type soapResponseEnvelope struct {
	Body soapResponseBody `xml:"Body"`
}

type soapResponseBody struct {
	RecepResponse *feResponse `xml:"FeRecepFEResponse"`
	AnulResponse  *feResponse `xml:"FeAnulFEResponse"`
	Fault         *soapFault  `xml:"Fault"`
}

type feResponse struct {
	Result gResProc `xml:"gResProc"`
}

type gResProc struct {
	CodRes string `xml:"dCodRes"`
	MsgRes string `xml:"dMsgRes"`
	Prot   string `xml:"dProt"`
}

type soapFault struct {
	FaultCode   string `xml:"faultcode"`
	FaultString string `xml:"faultstring"`
}

// soapCall serializa el envelope, lo envía y parsea la respuesta. Un error de
// transporte se devuelve como error (resultado ambiguo para el caller); una
// respuesta SOAP válida, aunque sea rechazo o Fault, es un submitResult.
func soapCall(client *http.Client, req *http.Request) (*submitResult, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dgisoap: llamada HTTP fallida: %w", err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // max 1 MB
	if err != nil {
		return nil, fmt.Errorf("dgisoap: leer respuesta: %w", err)
	}

	var envResp soapResponseEnvelope
	if err := xml.Unmarshal(rawBody, &envResp); err != nil {
		return nil, fmt.Errorf("dgisoap: respuesta SOAP no parseable: %s", truncate(string(rawBody), 200))
	}
	if envResp.Body.Fault != nil {
		return &submitResult{
			Code:    envResp.Body.Fault.FaultCode,
			Message: "SOAP Fault: " + envResp.Body.Fault.FaultString,
		}, nil
	}
	var result *gResProc
	if envResp.Body.RecepResponse != nil {
		result = &envResp.Body.RecepResponse.Result
	} else if envResp.Body.AnulResponse != nil {
		result = &envResp.Body.AnulResponse.Result
	}
	if result == nil {
		return nil, fmt.Errorf("dgisoap: respuesta SOAP vacía o inesperada: %s", truncate(string(rawBody), 200))
	}
	return &submitResult{Code: result.CodRes, Message: result.MsgRes, Protocol: result.Prot}, nil
}

func buildSOAPRequest(url, action string, body interface{}) (*bytes.Reader, string, error) {
	envelope := soapEnvelope{
		XmlnsS: soapNS,
		Body:   soapBody{Content: body},
	}
	payload, err := xml.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return nil, "", fmt.Errorf("dgisoap: serializar envelope: %w", err)
	}
	return bytes.NewReader(payload), actionBase + action, nil
}

func recepBody(signedXML []byte) *feRecepFEBody {
	return &feRecepFEBody{
		Xmlns:     soapNSFep,
		Documento: base64.StdEncoding.EncodeToString(signedXML),
	}
}

func anulBody(cufe, motivo string) *feAnulFEBody {
	return &feAnulFEBody{Xmlns: soapNSFep, CUFE: cufe, Motivo: motivo}
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
