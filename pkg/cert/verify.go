package cert

import (
	"crypto/x509"
	"fmt"
	"strings"
	"time"
)

// VerifyResult describes a certificate checked against a CA
type VerifyResult struct {
	Valid       bool
	Role        string // "server", "client" or "ca"
	Hosts       []string
	Error       string
	Certificate *x509.Certificate
}

// VerifyCertificateFile checks the certificate in certPath against the CA in
// caCertPath. A chain failure is reported in the result, not as an error.
func VerifyCertificateFile(certPath, caCertPath string) (*VerifyResult, error) {
	cert, err := ReadCertificate(certPath)
	if err != nil {
		return nil, err
	}

	caCert, err := ReadCertificate(caCertPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load CA certificate: %w", err)
	}

	result := &VerifyResult{
		Role:        role(cert),
		Certificate: cert,
	}
	result.Hosts = append(result.Hosts, cert.DNSNames...)
	for _, ip := range cert.IPAddresses {
		result.Hosts = append(result.Hosts, ip.String())
	}

	roots := x509.NewCertPool()
	roots.AddCert(caCert)

	opts := x509.VerifyOptions{
		Roots:     roots,
		KeyUsages: []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	}
	if _, err := cert.Verify(opts); err != nil {
		result.Error = err.Error()
	} else {
		result.Valid = true
	}

	return result, nil
}

func role(cert *x509.Certificate) string {
	if cert.IsCA {
		return "ca"
	}
	for _, u := range cert.ExtKeyUsage {
		switch u {
		case x509.ExtKeyUsageServerAuth:
			return "server"
		case x509.ExtKeyUsageClientAuth:
			return "client"
		}
	}
	return "unknown"
}

// FormatVerifyResult formats verification result for display
func FormatVerifyResult(result *VerifyResult) string {
	var sb strings.Builder

	sb.WriteString("Certificate Verification Result\n")
	sb.WriteString("===============================\n\n")

	if result.Valid {
		sb.WriteString("Status: VALID\n")
	} else {
		sb.WriteString("Status: INVALID\n")
		sb.WriteString(fmt.Sprintf("Error: %s\n", result.Error))
	}

	c := result.Certificate
	sb.WriteString("\nCertificate Details:\n")
	sb.WriteString(fmt.Sprintf("  Role: %s\n", result.Role))
	sb.WriteString(fmt.Sprintf("  Subject: %s\n", c.Subject))
	sb.WriteString(fmt.Sprintf("  Issuer: %s\n", c.Issuer))
	sb.WriteString(fmt.Sprintf("  Valid From: %s\n", c.NotBefore.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("  Valid Until: %s\n", c.NotAfter.Format(time.RFC3339)))
	if len(result.Hosts) > 0 {
		sb.WriteString(fmt.Sprintf("  Hosts: %s\n", strings.Join(result.Hosts, ", ")))
	}

	return sb.String()
}
