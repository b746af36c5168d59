package jwt

import (
	"crypto/ecdsa"
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// SigningMethod defines supported JWT signing algorithms.
type SigningMethod string

const (
	HS256 SigningMethod = "HS256"
	HS384 SigningMethod = "HS384"
	HS512 SigningMethod = "HS512"
	RS256 SigningMethod = "RS256"
	RS384 SigningMethod = "RS384"
	RS512 SigningMethod = "RS512"
	ES256 SigningMethod = "ES256"
	ES384 SigningMethod = "ES384"
	ES512 SigningMethod = "ES512"
)

// Config configures the token service.
type Config struct {
	// Secret is the HMAC key for HS* methods.
	Secret string `yaml:"secret" mapstructure:"secret"`

	Method SigningMethod `yaml:"method" mapstructure:"method"`

	// PrivateKeyFile and PublicKeyFile are PEM files for RS*/ES* methods.
	// A verify-only deployment sets just the public key.
	PrivateKeyFile string `yaml:"private_key_file" mapstructure:"private_key_file"`
	PublicKeyFile  string `yaml:"public_key_file" mapstructure:"public_key_file"`

	// PrivateKey and PublicKey take precedence over the files when set in code.
	PrivateKey any `yaml:"-" mapstructure:"-"`
	PublicKey  any `yaml:"-" mapstructure:"-"`

	// Issuer and Audience are stamped on issued tokens and enforced on
	// parsed ones when set.
	Issuer   string   `yaml:"issuer" mapstructure:"issuer"`
	Audience []string `yaml:"audience" mapstructure:"audience"`

	AccessTokenTTL time.Duration `yaml:"access_token_ttl" mapstructure:"access_token_ttl"`
}

// ApplyDefaults sets HS256 and a 15 minute access token lifetime.
func (c *Config) ApplyDefaults() {
	if c.Method == "" {
		c.Method = HS256
	}
	if c.AccessTokenTTL == 0 {
		c.AccessTokenTTL = 15 * time.Minute
	}
}

// Validate checks that the key material required by Method is present.
// Key files are read and parsed here so a bad key fails at startup.
func (c *Config) Validate() error {
	if c.AccessTokenTTL < 0 {
		return errors.New("access_token_ttl must not be negative")
	}
	switch c.Method {
	case HS256, HS384, HS512:
		if c.Secret == "" {
			return errors.New("secret is required for HMAC signing methods")
		}
		return nil
	case RS256, RS384, RS512, ES256, ES384, ES512:
		if err := c.loadKeys(); err != nil {
			return err
		}
		if c.PrivateKey == nil && c.PublicKey == nil {
			return fmt.Errorf("a private or public key is required for %s", c.Method)
		}
		return c.checkKeyTypes()
	default:
		return fmt.Errorf("unsupported signing method: %s", c.Method)
	}
}

func (c *Config) isRSA() bool { return c.Method == RS256 || c.Method == RS384 || c.Method == RS512 }

// loadKeys parses the PEM files into PrivateKey and PublicKey when those
// are not already set.
func (c *Config) loadKeys() error {
	if c.PrivateKey == nil && c.PrivateKeyFile != "" {
		data, err := os.ReadFile(c.PrivateKeyFile)
		if err != nil {
			return fmt.Errorf("read private key: %w", err)
		}
		if c.isRSA() {
			c.PrivateKey, err = gojwt.ParseRSAPrivateKeyFromPEM(data)
		} else {
			c.PrivateKey, err = gojwt.ParseECPrivateKeyFromPEM(data)
		}
		if err != nil {
			return fmt.Errorf("parse private key: %w", err)
		}
	}
	if c.PublicKey == nil && c.PublicKeyFile != "" {
		data, err := os.ReadFile(c.PublicKeyFile)
		if err != nil {
			return fmt.Errorf("read public key: %w", err)
		}
		if c.isRSA() {
			c.PublicKey, err = gojwt.ParseRSAPublicKeyFromPEM(data)
		} else {
			c.PublicKey, err = gojwt.ParseECPublicKeyFromPEM(data)
		}
		if err != nil {
			return fmt.Errorf("parse public key: %w", err)
		}
	}
	return nil
}

func (c *Config) checkKeyTypes() error {
	if c.isRSA() {
		if _, ok := c.PrivateKey.(*rsa.PrivateKey); c.PrivateKey != nil && !ok {
			return errors.New("private key must be *rsa.PrivateKey for RSA signing methods")
		}
		if _, ok := c.PublicKey.(*rsa.PublicKey); c.PublicKey != nil && !ok {
			return errors.New("public key must be *rsa.PublicKey for RSA signing methods")
		}
		return nil
	}
	if _, ok := c.PrivateKey.(*ecdsa.PrivateKey); c.PrivateKey != nil && !ok {
		return errors.New("private key must be *ecdsa.PrivateKey for ECDSA signing methods")
	}
	if _, ok := c.PublicKey.(*ecdsa.PublicKey); c.PublicKey != nil && !ok {
		return errors.New("public key must be *ecdsa.PublicKey for ECDSA signing methods")
	}
	return nil
}

// signingMethod returns the golang-jwt SigningMethod instance.
func (c *Config) signingMethod() gojwt.SigningMethod {
	switch c.Method {
	case HS384:
		return gojwt.SigningMethodHS384
	case HS512:
		return gojwt.SigningMethodHS512
	case RS256:
		return gojwt.SigningMethodRS256
	case RS384:
		return gojwt.SigningMethodRS384
	case RS512:
		return gojwt.SigningMethodRS512
	case ES256:
		return gojwt.SigningMethodES256
	case ES384:
		return gojwt.SigningMethodES384
	case ES512:
		return gojwt.SigningMethodES512
	default:
		return gojwt.SigningMethodHS256
	}
}

// signKey returns the key used for signing, or nil for a verify-only setup.
func (c *Config) signKey() any {
	switch c.Method {
	case HS256, HS384, HS512:
		return []byte(c.Secret)
	default:
		return c.PrivateKey
	}
}

// verifyKey returns the key used for verification, deriving the public half
// from the private key when no public key is configured.
func (c *Config) verifyKey() any {
	switch c.Method {
	case HS256, HS384, HS512:
		return []byte(c.Secret)
	}
	if c.PublicKey != nil {
		return c.PublicKey
	}
	switch pk := c.PrivateKey.(type) {
	case *rsa.PrivateKey:
		return &pk.PublicKey
	case *ecdsa.PrivateKey:
		return &pk.PublicKey
	}
	return nil
}
