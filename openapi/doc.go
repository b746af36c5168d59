// Package openapi describes the mapped routes as a Swagger 2.0 document and
// serves it together with the Swagger UI.
//
// Explorer records endpoints as controllers are mapped. Generator turns them
// into a go-openapi/spec document, deriving request and response schemas by
// reflection, and is registered with swaggo/swag so the UI can read it by
// name. Docs mounts the document and the UI under /swagger:
//
//	explorer := openapi.NewExplorer()
//	gen := openapi.NewGenerator(explorer, openapi.WithInfo(openapi.Info{Title: "mywebapi"}))
//	docs := openapi.NewDocs("")
//	docs.AddDocument(gen.Name(), openapi.SchemaHandler(gen))
//	docs.SetUI(openapi.UIHandler(openapi.DefaultUIConfig()))
//	docs.Mount(engine)
package openapi
