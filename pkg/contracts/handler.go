package contracts

import "github.com/julienschmidt/httprouter"

// Handler is an HTTP surface mounted by the application. Name identifies it in
// startup logs, e.g. "planner" or "health".
type Handler interface {
	Name() string
	RegisterRoutes(router *httprouter.Router)
}
