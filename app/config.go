package app

import (
	"fmt"
	"strings"

	"github.com/kbukum/mywebapi/auth"
	"github.com/kbukum/mywebapi/config"
	"github.com/kbukum/mywebapi/observability"
	"github.com/kbukum/mywebapi/openapi"
	"github.com/kbukum/mywebapi/server"
	"github.com/kbukum/mywebapi/version"
)

// ServiceName is the default service name. It also selects
// cmd/mywebapi/config.yml and .env.mywebapi during config resolution.
const ServiceName = "mywebapi"

// DocsConfig controls the schema document and the documentation UI.
type DocsConfig struct {
	Enabled      bool   `yaml:"enabled" mapstructure:"enabled"`
	Title        string `yaml:"title" mapstructure:"title"`
	Description  string `yaml:"description" mapstructure:"description"`
	Version      string `yaml:"version" mapstructure:"version"`
	DocumentName string `yaml:"document_name" mapstructure:"document_name"`
}

// Config is the host configuration.
//
//	name: mywebapi
//	environment: development
//	server:
//	  port: 8080
//	auth:
//	  enabled: true
//	  jwt:
//	    secret: "change-me"
//	docs:
//	  title: "My Web API"
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Server    server.Config        `yaml:"server" mapstructure:"server"`
	Auth      auth.Config          `yaml:"auth" mapstructure:"auth"`
	Docs      DocsConfig           `yaml:"docs" mapstructure:"docs"`
	Telemetry observability.Config `yaml:"telemetry" mapstructure:"telemetry"`
}

// DefaultConfig returns the config the loader unmarshals into. Booleans
// that default to true are set here, since a missing key leaves the field
// untouched.
func DefaultConfig() *Config {
	return &Config{
		ServiceConfig: config.ServiceConfig{Name: ServiceName},
		Auth:          auth.Config{Enabled: true},
		Docs:          DocsConfig{Enabled: true},
	}
}

// ApplyDefaults fills every section.
func (c *Config) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	if c.Version == "" {
		c.Version = version.Get().Version
	}
	c.Server.ApplyDefaults()
	c.Auth.ApplyDefaults()
	c.Telemetry.ApplyDefaults()

	if c.Docs.Title == "" {
		c.Docs.Title = c.Name
	}
	if c.Docs.Version == "" {
		c.Docs.Version = openapi.DefaultDocumentName
	}
	if c.Docs.DocumentName == "" {
		c.Docs.DocumentName = openapi.DefaultDocumentName
	}
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Telemetry.Validate(); err != nil {
		return err
	}
	if strings.ContainsAny(c.Docs.DocumentName, "/ ") {
		return fmt.Errorf("docs.document_name must not contain '/' or spaces (got: %q)", c.Docs.DocumentName)
	}
	return nil
}
