package respond

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	applog "github.com/janisto/greeting-service/internal/platform/logging"
)

const (
	contentTypeProblemJSON = "application/problem+json"
	contentTypeProblemCBOR = "application/problem+cbor"

	// errorModelSchemaPath is where huma publishes the ErrorModel JSON schema.
	errorModelSchemaPath = "/schemas/ErrorModel.json"

	msgNotFound          = "resource not found"
	msgInternalServerErr = "internal server error"
)

var cborEncMode = func() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// Problem is an RFC 9457 problem document shaped like huma.ErrorModel so
// router-level errors look the same as errors produced inside huma operations.
type Problem struct {
	Schema string `json:"$schema,omitempty"`
	Title  string `json:"title,omitempty"`
	Status int    `json:"status,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// NotFoundHandler renders a 404 problem for unmatched paths.
func NotFoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, r, http.StatusNotFound, msgNotFound, nil)
	}
}

// MethodNotAllowedHandler renders a 405 problem and lists the methods the
// matched path does support in the Allow header.
func MethodNotAllowedHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if allow := allowedMethods(r); len(allow) > 0 {
			w.Header().Set("Allow", strings.Join(allow, ", "))
		}
		writeProblem(w, r, http.StatusMethodNotAllowed, fmt.Sprintf("method %s not allowed", r.Method), nil)
	}
}

// Recoverer turns panics into 500 problems. http.ErrAbortHandler is re-panicked
// so net/http can abort the connection, and nothing is written when the
// handler already sent headers.
func Recoverer() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := &responseWriter{ResponseWriter: w}
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}
				var err error
				switch v := rec.(type) {
				case error:
					err = v
				default:
					err = fmt.Errorf("%v", v)
				}
				err = fmt.Errorf("%w\n%s", err, debug.Stack())
				if rw.wroteHeader {
					applog.LogError(r.Context(), "panic after response started", err)
					return
				}
				writeProblem(rw, r, http.StatusInternalServerError, msgInternalServerErr, err)
			}()
			next.ServeHTTP(rw, r)
		})
	}
}

// responseWriter records whether the status line has been sent.
type responseWriter struct {
	http.ResponseWriter
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.wroteHeader = true
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

func writeProblem(w http.ResponseWriter, r *http.Request, status int, detail string, cause error) {
	ctx := r.Context()
	logWithStatus(ctx, status, detail, cause, zap.String("method", r.Method), zap.String("path", r.URL.Path))

	p := Problem{
		Schema: schemaURL(r),
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
	}

	var (
		body []byte
		err  error
		ct   = contentTypeProblemJSON
	)
	if acceptsCBOR(r.Header.Get("Accept")) {
		ct = contentTypeProblemCBOR
		body, err = cborEncMode.Marshal(p)
	} else {
		body, err = json.Marshal(p)
	}
	if err != nil {
		applog.LogError(ctx, "failed to encode problem", err)
		http.Error(w, http.StatusText(status), status)
		return
	}

	h := w.Header()
	h.Set("Content-Type", ct)
	h.Set("Link", "<"+errorModelSchemaPath+`>; rel="describedBy"`)
	addVary(h, "Origin", "Accept")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		applog.LogError(ctx, "failed to write problem", err)
	}
}

// addVary appends the given header names to Vary unless already listed.
func addVary(h http.Header, names ...string) {
	seen := make(map[string]struct{})
	for _, v := range h.Values("Vary") {
		for part := range strings.SplitSeq(v, ",") {
			seen[strings.ToLower(strings.TrimSpace(part))] = struct{}{}
		}
	}
	for _, name := range names {
		if _, ok := seen[strings.ToLower(name)]; ok {
			continue
		}
		h.Add("Vary", name)
	}
}

func schemaURL(r *http.Request) string {
	if r.Host == "" {
		return errorModelSchemaPath
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host + errorModelSchemaPath
}

// acceptsCBOR reports whether the Accept header ranks a CBOR type above JSON.
// Ranking uses q-values first and specificity (problem+ types over base types)
// as tie-breaker. Remaining ties, wildcards and unknown types fall back to JSON.
func acceptsCBOR(accept string) bool {
	if accept == "" {
		return false
	}
	var bestCBOR, bestJSON mediaRank
	for part := range strings.SplitSeq(accept, ",") {
		name, q := parseMediaRange(part)
		if q <= 0 {
			continue
		}
		switch name {
		case "application/cbor":
			bestCBOR = bestCBOR.max(mediaRank{q: q, specificity: 1})
		case contentTypeProblemCBOR:
			bestCBOR = bestCBOR.max(mediaRank{q: q, specificity: 2})
		case "application/json":
			bestJSON = bestJSON.max(mediaRank{q: q, specificity: 1})
		case contentTypeProblemJSON:
			bestJSON = bestJSON.max(mediaRank{q: q, specificity: 2})
		}
	}
	if bestCBOR.q == 0 {
		return false
	}
	return bestJSON.less(bestCBOR)
}

type mediaRank struct {
	q           float64
	specificity int
}

func (m mediaRank) less(o mediaRank) bool {
	if m.q != o.q {
		return m.q < o.q
	}
	return m.specificity < o.specificity
}

func (m mediaRank) max(o mediaRank) mediaRank {
	if m.less(o) {
		return o
	}
	return m
}

// parseMediaRange returns the lower-cased media type and its q-value.
// A missing or malformed q parameter counts as 1.
func parseMediaRange(s string) (string, float64) {
	params := strings.Split(s, ";")
	name := strings.ToLower(strings.TrimSpace(params[0]))
	q := 1.0
	for _, p := range params[1:] {
		k, v, ok := strings.Cut(strings.TrimSpace(p), "=")
		if !ok || strings.TrimSpace(k) != "q" {
			continue
		}
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			q = parsed
		}
	}
	return name, q
}

// allowedMethods probes chi's routing tree for methods registered on the request path.
func allowedMethods(r *http.Request) []string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil || rctx.Routes == nil {
		return nil
	}

	routePath := rctx.RoutePath
	if routePath == "" {
		routePath = r.URL.RawPath
		if routePath == "" {
			routePath = r.URL.Path
		}
		if routePath == "" {
			routePath = "/"
		}
	}

	var allowed []string
	for _, method := range []string{
		http.MethodGet,
		http.MethodHead,
		http.MethodPost,
		http.MethodPut,
		http.MethodPatch,
		http.MethodDelete,
		http.MethodOptions,
	} {
		if rctx.Routes.Match(chi.NewRouteContext(), method, routePath) {
			allowed = append(allowed, method)
		}
	}
	return allowed
}

func logWithStatus(ctx context.Context, status int, msg string, err error, fields ...zap.Field) {
	fields = append(fields, zap.Int("status", status))
	switch {
	case status >= http.StatusInternalServerError:
		applog.LogError(ctx, msg, err, fields...)
	case err != nil:
		applog.LogWarn(ctx, msg, append(fields, zap.Error(err))...)
	default:
		applog.LogWarn(ctx, msg, fields...)
	}
}
