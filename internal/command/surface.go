package command

// Surface identifies the calling context a command is invoked from.
// The set is open: deployments may define their own surfaces, but these
// four are the ones the platform ships adapters for.
type Surface string

const (
	// SurfaceCLI is the dispatch command-line tool.
	SurfaceCLI Surface = "cli"
	// SurfaceMCP is the MCP tool-calling server (stdio or HTTP).
	SurfaceMCP Surface = "mcp"
	// SurfaceAgent is an in-process agent using the direct client.
	SurfaceAgent Surface = "agent"
	// SurfacePalette is the interactive terminal palette.
	SurfacePalette Surface = "palette"
)
