package engine

// version is set at build time with
// -ldflags "-X github.com/ironsheep/shape-tools-mcp/internal/engine.version=..."
var version = "dev"

// Version returns the engine version. It does not depend on engine state.
func Version() string {
	return version
}
