package handler

import (
	"fmt"

	"github.com/controllernode/versions/internal/release"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/controllernode/versions/internal/handler"

// Handler serves the firmware version document and the auxiliary routes.
type Handler struct {
	manifest release.Manifest
	body     []byte
	requests metric.Int64Counter
}

// Dependencies holds all dependencies for the Handler
type Dependencies struct {
	Manifest release.Manifest
	// MeterProvider defaults to the global provider.
	MeterProvider metric.MeterProvider
}

// New creates a Handler. The manifest is encoded once here; every request
// gets the same bytes.
func New(deps Dependencies) (*Handler, error) {
	body, err := deps.Manifest.Encode()
	if err != nil {
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}

	mp := deps.MeterProvider
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	requests, err := mp.Meter(instrumentationName).Int64Counter(
		"firmware.versions.requests",
		metric.WithDescription("Number of firmware version documents served"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating request counter: %w", err)
	}

	return &Handler{
		manifest: deps.Manifest,
		body:     body,
		requests: requests,
	}, nil
}

// Manifest returns the manifest being served.
func (h *Handler) Manifest() release.Manifest {
	return h.manifest
}
