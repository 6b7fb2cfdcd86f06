package stepmesh

import _ "embed"

// Version is the release version of stepmesh.
//
//go:embed VERSION
var Version string
