package di

// HostNames lists the keys under which the host registers its services.
// Applications that add their own services embed it in a larger names struct.
type HostNames struct {
	Config     string
	Logger     string
	HTTPServer string

	Controllers string
	APIExplorer string
	SwaggerGen  string

	TokenService string
	Authorizer   string
}

// Host contains the service keys used by the application builder.
var Host = HostNames{
	Config:     "config",
	Logger:     "logger",
	HTTPServer: "http_server",

	Controllers: "controllers",
	APIExplorer: "api_explorer",
	SwaggerGen:  "swagger_gen",

	TokenService: "token_service",
	Authorizer:   "authorizer",
}
