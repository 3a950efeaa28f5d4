package tlsroots

import "crypto/x509"

func x509VerifyOptions(p *Pool) x509.VerifyOptions {
	return x509.VerifyOptions{
		Roots:     p.Pool(),
		KeyUsages: []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
}
