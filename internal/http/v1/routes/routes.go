package routes

import (
	"net/http"
	"slices"

	"github.com/danielgtaylor/huma/v2"

	"github.com/janisto/greeting-service/internal/http/v1/greeting"
)

// Register wires all API routes into the provided router. It is called once
// at startup; the resulting route table is not modified afterwards.
func Register(api huma.API) {
	greeting.Register(api)
}

// Table lists the registered operations as "METHOD /path", sorted.
func Table(api huma.API) []string {
	var table []string
	for path, item := range api.OpenAPI().Paths {
		for method, op := range map[string]*huma.Operation{
			http.MethodGet:    item.Get,
			http.MethodHead:   item.Head,
			http.MethodPost:   item.Post,
			http.MethodPut:    item.Put,
			http.MethodPatch:  item.Patch,
			http.MethodDelete: item.Delete,
		} {
			if op != nil && !op.Hidden {
				table = append(table, method+" "+path)
			}
		}
	}
	slices.Sort(table)
	return table
}
