package handler

import (
	"testing"

	"github.com/controllernode/versions/internal/release"
	"github.com/controllernode/versions/internal/testutil"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

var revisions = testutil.Revisions

// testHandler creates a Handler for m whose metrics go to a manual reader.
func testHandler(t *testing.T, m release.Manifest) (*Handler, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = mp.Shutdown(t.Context())
	})

	h, err := New(Dependencies{Manifest: m, MeterProvider: mp})
	if err != nil {
		t.Fatalf("creating handler: %v", err)
	}
	return h, reader
}
