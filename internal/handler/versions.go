package handler

import (
	"net/http"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// GetSoftwareVersions writes the firmware version document. Query, headers
// and body are not read; the response depends only on the loaded manifest.
func (h *Handler) GetSoftwareVersions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	attrs := []attribute.KeyValue{
		attribute.String("firmware.controller.version", h.manifest.Controller.Version),
		attribute.String("firmware.node.version", h.manifest.Node.Version),
	}
	trace.SpanFromContext(ctx).SetAttributes(attrs...)
	h.requests.Add(ctx, 1, metric.WithAttributes(attrs...))

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", strconv.Itoa(len(h.body)))
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(h.body)
}
