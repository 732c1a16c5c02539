package testutil

import (
	"testing"

	"github.com/controllernode/versions/internal/config"
	"github.com/controllernode/versions/internal/release"
)

// Firmware URLs of the oldest published revision.
const (
	RevisionAControllerURL = "https://58e1d785-19fc-40e4-9f72-67035440c440.usrfiles.com/ugd/58e1d7_46f1f3723d7d4c1b8487e3480687f658.txt"
	RevisionANodeURL       = "https://58e1d785-19fc-40e4-9f72-67035440c440.usrfiles.com/ugd/58e1d7_831213f93c73411e8e674384aec2bac0.txt"
)

// Revisions are the four published manifests, keyed A to D. B and C use
// stand-in URLs; D has not had its firmware uploaded.
var Revisions = map[string]release.Manifest{
	"A": {
		Controller: release.Firmware{Version: "14", FirmwareURL: RevisionAControllerURL},
		Node:       release.Firmware{Version: "14", FirmwareURL: RevisionANodeURL},
	},
	"B": {
		Controller: release.Firmware{Version: "17", FirmwareURL: "https://files.example.com/ugd/controller-17.txt"},
		Node:       release.Firmware{Version: "17", FirmwareURL: "https://files.example.com/ugd/node-17.txt"},
	},
	"C": {
		Controller: release.Firmware{Version: "18", FirmwareURL: "https://files.example.com/ugd/controller-18.txt"},
		Node:       release.Firmware{Version: "18", FirmwareURL: "https://files.example.com/ugd/node-18.txt"},
	},
	"D": {
		Controller: release.Firmware{Version: "21"},
		Node:       release.Firmware{Version: "21"},
	},
}

// RevisionAJSON is the exact body served for revision A.
const RevisionAJSON = `{"controller":{"version":"14","firmwareUrl":"` + RevisionAControllerURL + `"},` +
	`"node":{"version":"14","firmwareUrl":"` + RevisionANodeURL + `"}}`

// ReleaseConfig returns the config section that produces revision name.
func ReleaseConfig(t *testing.T, name string) config.ReleaseConfig {
	t.Helper()

	m, ok := Revisions[name]
	if !ok {
		t.Fatalf("unknown revision %q", name)
	}
	cfg := config.Defaults().Release
	cfg.Controller = config.FirmwareConfig{Version: m.Controller.Version, FirmwareURL: m.Controller.FirmwareURL}
	cfg.Node = config.FirmwareConfig{Version: m.Node.Version, FirmwareURL: m.Node.FirmwareURL}
	return cfg
}
