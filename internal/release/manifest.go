// Package release holds the firmware revision advertised to devices.
package release

import (
	"bytes"
	"encoding/json"

	"github.com/controllernode/versions/internal/config"
)

// Firmware describes the current build for one device type.
// FirmwareURL may be empty when the build has not been published yet.
type Firmware struct {
	Version     string `json:"version"`
	FirmwareURL string `json:"firmwareUrl"`
}

// Manifest is the document served to devices. It is built once at startup
// and never mutated.
type Manifest struct {
	Controller Firmware `json:"controller"`
	Node       Firmware `json:"node"`
}

// FromConfig builds the manifest from the release section of the config.
func FromConfig(cfg config.ReleaseConfig) Manifest {
	return Manifest{
		Controller: Firmware{
			Version:     cfg.Controller.Version,
			FirmwareURL: cfg.Controller.FirmwareURL,
		},
		Node: Firmware{
			Version:     cfg.Node.Version,
			FirmwareURL: cfg.Node.FirmwareURL,
		},
	}
}

// Lockstep reports whether controller and node are on the same version.
// Releases have always bumped both together, but nothing requires it.
func (m Manifest) Lockstep() bool {
	return m.Controller.Version == m.Node.Version
}

// Encode returns the JSON body. URLs are written verbatim, without HTML
// escaping of '&', '<' or '>'.
func (m Manifest) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(m); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
