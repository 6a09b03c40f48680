package greeting

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"

	applog "github.com/janisto/greeting-service/internal/platform/logging"
)

// Register wires the greeting route into the provided API router.
func Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "get-greeting",
		Method:      http.MethodGet,
		Path:        "/",
		Summary:     "Get the greeting",
		Tags:        []string{"Greeting"},
		Responses: map[string]*huma.Response{
			"200": {
				Description: "Greeting text",
				Content: map[string]*huma.MediaType{
					"text/plain": {
						Schema: &huma.Schema{Type: huma.TypeString, Examples: []any{Message}},
					},
				},
			},
		},
	}, getHandler)
}

func getHandler(ctx context.Context, _ *struct{}) (*GetOutput, error) {
	applog.LogInfo(ctx, "greeting get", zap.String("path", "/"))
	return &GetOutput{ContentType: contentTypeText, Body: []byte(Message)}, nil
}
