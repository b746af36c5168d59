// Package security builds the TLS configuration for the HTTPS listener,
// either from certificate files or from ACME (Let's Encrypt) via autocert.
//
//	tlsCfg := security.TLSConfig{CertFile: "cert.pem", KeyFile: "key.pem"}
//	srvTLS, err := tlsCfg.Build()
//	httpsServer.TLSConfig = srvTLS.Config
package security
