package logging

import (
	"fmt"
	"regexp"

	"go.uber.org/zap"
)

const traceparentHeader = "traceparent"

// W3C Trace Context: {version}-{trace-id}-{parent-id}-{trace-flags}
var traceHeaderRe = regexp.MustCompile(`^([0-9a-fA-F]{2})-([0-9a-fA-F]{32})-([0-9a-fA-F]{16})-([0-9a-fA-F]{2})$`)

func loggerWithTrace(base *zap.Logger, header, projectID, requestID string) *zap.Logger {
	if base == nil {
		base = zap.NewNop()
	}
	fields := traceFields(header, projectID)
	if requestID != "" {
		fields = append(fields, zap.String("requestId", requestID))
	}
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}

// traceFields returns the Cloud Logging correlation fields, or nil when
// the project is unknown or the header is not a valid traceparent.
func traceFields(header, projectID string) []zap.Field {
	if projectID == "" {
		return nil
	}
	m := traceHeaderRe.FindStringSubmatch(header)
	if len(m) != 5 {
		return nil
	}
	return []zap.Field{
		zap.String("logging.googleapis.com/trace", fmt.Sprintf("projects/%s/traces/%s", projectID, m[2])),
		zap.String("logging.googleapis.com/spanId", m[3]),
		zap.Bool("logging.googleapis.com/trace_sampled", m[4] == "01"),
	}
}
