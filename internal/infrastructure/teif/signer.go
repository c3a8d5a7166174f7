package teif

import (
	"bytes"
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/ucarion/c14n"
	"golang.org/x/crypto/pkcs12"

	"github.com/jhoicas/erp-tn-api/internal/application/documents"
)

// Namespaces y algoritmos XMLDSig / XAdES.
const (
	NamespaceDS        = "http://www.w3.org/2000/09/xmldsig#"
	NamespaceXAdES     = "http://uri.etsi.org/01903/v1.3.2#"
	AlgC14N            = "http://www.w3.org/TR/2001/REC-xml-c14n-20010315"
	AlgRSASHA256       = "http://www.w3.org/2001/04/xmldsig-more#rsa-sha256"
	AlgSHA256          = "http://www.w3.org/2001/04/xmlenc#sha256"
	TransformEnveloped = "http://www.w3.org/2000/09/xmldsig#enveloped-signature"
	TypeSignedProps    = "http://uri.etsi.org/01903#SignedProperties"

	// PolicyIdentifier política de firma de la factura electrónica TTN.
	PolicyIdentifier = "urn:2.16.788.1.2.1"

	SignatureID       = "SigFrs"
	signedPropsID     = "xades-" + SignatureID
	signingTimeLayout = "2006-01-02T15:04:05Z"
)

var _ documents.XMLSigner = (*Signer)(nil)

// Signer firma XML TEIF con XAdES-BES (RSA-SHA256). La firma queda como último hijo de <TEIF>.
type Signer struct {
	cert *x509.Certificate
	key  *rsa.PrivateKey
	// PolicyHash SHA-256 en Base64 del documento de política; vacío omite SigPolicyHash.
	PolicyHash string
	now        func() time.Time
}

// NewSigner valida que el certificado traiga llave privada RSA.
func NewSigner(cert tls.Certificate) (*Signer, error) {
	if len(cert.Certificate) == 0 {
		return nil, fmt.Errorf("teif: certificado vacío")
	}
	key, ok := cert.PrivateKey.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("teif: el certificado debe incluir llave privada RSA")
	}
	leaf := cert.Leaf
	if leaf == nil {
		var err error
		if leaf, err = x509.ParseCertificate(cert.Certificate[0]); err != nil {
			return nil, fmt.Errorf("teif: parsear certificado: %w", err)
		}
	}
	return &Signer{cert: leaf, key: key, now: time.Now}, nil
}

// LoadP12 carga certificado y llave privada desde un archivo .p12/.pfx.
// El password puede ser vacío si el archivo no está protegido.
func LoadP12(path, password string) (tls.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("leer p12: %w", err)
	}
	priv, cert, err := pkcs12.Decode(data, password)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("decodificar p12: %w", err)
	}
	return tls.Certificate{
		Certificate: [][]byte{cert.Raw},
		PrivateKey:  priv,
		Leaf:        cert,
	}, nil
}

// LoadPEM carga certificado y llave desde PEM. keyPath vacío: ambos en el mismo archivo.
func LoadPEM(certPath, keyPath string) (tls.Certificate, error) {
	if keyPath == "" {
		keyPath = certPath
	}
	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("cargar PEM: %w", err)
	}
	return cert, nil
}

// Sign firma el documento completo (Reference URI="") y las propiedades firmadas.
func (s *Signer) Sign(xmlBytes []byte) ([]byte, error) {
	if len(xmlBytes) == 0 {
		return nil, fmt.Errorf("teif: XML vacío")
	}
	canonicalDoc, err := canonicalize(xmlBytes)
	if err != nil {
		return nil, err
	}
	docDigest := digestB64(canonicalDoc)

	signedProps := s.signedProperties()
	canonicalProps, err := canonicalize([]byte(signedProps))
	if err != nil {
		return nil, err
	}

	signedInfo := buildSignedInfo(docDigest, digestB64(canonicalProps))
	canonicalInfo, err := canonicalize([]byte(signedInfo))
	if err != nil {
		return nil, err
	}
	h := sha256.Sum256(canonicalInfo)
	sig, err := rsa.SignPKCS1v15(nil, s.key, crypto.SHA256, h[:])
	if err != nil {
		return nil, fmt.Errorf("teif: firmar SignedInfo: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(`<ds:Signature xmlns:ds="` + NamespaceDS + `" xmlns:xades="` + NamespaceXAdES + `" Id="` + SignatureID + `">`)
	sb.WriteString(stripNamespaces(signedInfo))
	sb.WriteString(`<ds:SignatureValue>` + base64.StdEncoding.EncodeToString(sig) + `</ds:SignatureValue>`)
	sb.WriteString(`<ds:KeyInfo><ds:X509Data><ds:X509Certificate>` + base64.StdEncoding.EncodeToString(s.cert.Raw) + `</ds:X509Certificate></ds:X509Data></ds:KeyInfo>`)
	sb.WriteString(`<ds:Object><xades:QualifyingProperties Target="#` + SignatureID + `">`)
	sb.WriteString(stripNamespaces(signedProps))
	sb.WriteString(`</xades:QualifyingProperties></ds:Object></ds:Signature>`)

	return inject(xmlBytes, sb.String())
}

// signedProperties se construye con las declaraciones de namespace del <ds:Signature>
// para que su forma canónica aislada coincida con la forma dentro del documento.
func (s *Signer) signedProperties() string {
	sum := sha256.Sum256(s.cert.Raw)
	var sb strings.Builder
	sb.WriteString(`<xades:SignedProperties xmlns:ds="` + NamespaceDS + `" xmlns:xades="` + NamespaceXAdES + `" Id="` + signedPropsID + `">`)
	sb.WriteString(`<xades:SignedSignatureProperties>`)
	sb.WriteString(`<xades:SigningTime>` + s.now().UTC().Format(signingTimeLayout) + `</xades:SigningTime>`)
	sb.WriteString(`<xades:SigningCertificate><xades:Cert><xades:CertDigest>`)
	sb.WriteString(`<ds:DigestMethod Algorithm="` + AlgSHA256 + `"></ds:DigestMethod>`)
	sb.WriteString(`<ds:DigestValue>` + base64.StdEncoding.EncodeToString(sum[:]) + `</ds:DigestValue></xades:CertDigest>`)
	sb.WriteString(`<xades:IssuerSerial><ds:X509IssuerName>` + escapeXML(s.cert.Issuer.String()) + `</ds:X509IssuerName>`)
	sb.WriteString(`<ds:X509SerialNumber>` + s.cert.SerialNumber.String() + `</ds:X509SerialNumber></xades:IssuerSerial>`)
	sb.WriteString(`</xades:Cert></xades:SigningCertificate>`)
	sb.WriteString(`<xades:SignaturePolicyIdentifier><xades:SignaturePolicyId><xades:SigPolicyId>`)
	sb.WriteString(`<xades:Identifier>` + PolicyIdentifier + `</xades:Identifier></xades:SigPolicyId>`)
	if s.PolicyHash != "" {
		sb.WriteString(`<xades:SigPolicyHash><ds:DigestMethod Algorithm="` + AlgSHA256 + `"></ds:DigestMethod>`)
		sb.WriteString(`<ds:DigestValue>` + s.PolicyHash + `</ds:DigestValue></xades:SigPolicyHash>`)
	}
	sb.WriteString(`</xades:SignaturePolicyId></xades:SignaturePolicyIdentifier>`)
	sb.WriteString(`</xades:SignedSignatureProperties></xades:SignedProperties>`)
	return sb.String()
}

func buildSignedInfo(docDigest, propsDigest string) string {
	var sb strings.Builder
	sb.WriteString(`<ds:SignedInfo xmlns:ds="` + NamespaceDS + `" xmlns:xades="` + NamespaceXAdES + `">`)
	sb.WriteString(`<ds:CanonicalizationMethod Algorithm="` + AlgC14N + `"></ds:CanonicalizationMethod>`)
	sb.WriteString(`<ds:SignatureMethod Algorithm="` + AlgRSASHA256 + `"></ds:SignatureMethod>`)
	sb.WriteString(`<ds:Reference Id="r-id-frs" URI="">`)
	sb.WriteString(`<ds:Transforms><ds:Transform Algorithm="` + TransformEnveloped + `"></ds:Transform>`)
	sb.WriteString(`<ds:Transform Algorithm="` + AlgC14N + `"></ds:Transform></ds:Transforms>`)
	sb.WriteString(`<ds:DigestMethod Algorithm="` + AlgSHA256 + `"></ds:DigestMethod>`)
	sb.WriteString(`<ds:DigestValue>` + docDigest + `</ds:DigestValue></ds:Reference>`)
	sb.WriteString(`<ds:Reference Type="` + TypeSignedProps + `" URI="#` + signedPropsID + `">`)
	sb.WriteString(`<ds:Transforms><ds:Transform Algorithm="` + AlgC14N + `"></ds:Transform></ds:Transforms>`)
	sb.WriteString(`<ds:DigestMethod Algorithm="` + AlgSHA256 + `"></ds:DigestMethod>`)
	sb.WriteString(`<ds:DigestValue>` + propsDigest + `</ds:DigestValue></ds:Reference>`)
	sb.WriteString(`</ds:SignedInfo>`)
	return sb.String()
}

// stripNamespaces quita las declaraciones repetidas: dentro de <ds:Signature> ya están en ámbito.
func stripNamespaces(fragment string) string {
	r := strings.NewReplacer(
		` xmlns:ds="`+NamespaceDS+`"`, "",
		` xmlns:xades="`+NamespaceXAdES+`"`, "",
	)
	return r.Replace(fragment)
}

func canonicalize(data []byte) ([]byte, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Entity = map[string]string{}
	out, err := c14n.Canonicalize(dec)
	if err != nil {
		return nil, fmt.Errorf("teif: canonicalizar: %w", err)
	}
	return out, nil
}

func digestB64(b []byte) string {
	sum := sha256.Sum256(b)
	return base64.StdEncoding.EncodeToString(sum[:])
}

func escapeXML(s string) string {
	var b bytes.Buffer
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

func inject(xmlBytes []byte, signatureXML string) ([]byte, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(xmlBytes); err != nil {
		return nil, fmt.Errorf("teif: parsear XML: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("teif: documento sin raíz")
	}
	sigDoc := etree.NewDocument()
	if err := sigDoc.ReadFromString(signatureXML); err != nil {
		return nil, fmt.Errorf("teif: parsear Signature: %w", err)
	}
	root.AddChild(sigDoc.Root())
	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("teif: serializar: %w", err)
	}
	return out, nil
}
