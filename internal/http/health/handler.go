package health

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/janisto/greeting-service/internal/platform/timeutil"
)

// Response is the payload for the health endpoint.
type Response struct {
	Status    string        `json:"status"`
	Version   string        `json:"version"`
	StartedAt timeutil.Time `json:"startedAt"`
}

// NewHandler returns a liveness handler that reports the build version and process start time.
// It is mounted directly on the router, outside the documented API.
func NewHandler(version string, startedAt time.Time) http.HandlerFunc {
	payload := Response{Status: "healthy", Version: version, StartedAt: timeutil.NewTime(startedAt)}
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(payload)
	}
}
