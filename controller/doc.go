// Package controller dispatches requests to caller-supplied controllers.
//
// A Controller names itself and lists its routes. The Registry collects
// controllers, rejects duplicate names and duplicate method+path pairs, and
// mounts every route on a Gin router group behind the per-route
// authorization gate, recording each one with the openapi.Explorer:
//
//	type ItemController struct{}
//
//	func (ItemController) Name() string     { return "items" }
//	func (ItemController) BasePath() string { return "/items" }
//	func (c ItemController) Routes() []controller.Route {
//	    return []controller.Route{
//	        {Method: http.MethodGet, Path: "/:id", Handler: c.Get,
//	            Permission: "items:read", Response: Item{}},
//	    }
//	}
//
// Handlers decode bodies with Bind and answer with the Respond helpers.
package controller
