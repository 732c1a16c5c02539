package version

// Version is the build version, set with
// -ldflags "-X github.com/controllernode/versions/internal/version.Version=v1.2.3".
var Version = "dev"
