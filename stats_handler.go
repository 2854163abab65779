package onion

import (
	"net/http"

	json "github.com/goccy/go-json"
)

// StatsHandler returns an [http.Handler] that reports the counters of every
// function registered with reg as a JSON-encoded [Snapshot].
func StatsHandler(reg *Registry) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		writer.Header().Set("Content-Type", "application/json")
		writer.WriteHeader(http.StatusOK)

		//nolint:errcheck // best-effort JSON encoding to HTTP response
		_ = json.NewEncoder(writer).Encode(reg.Snapshot())
	})
}
