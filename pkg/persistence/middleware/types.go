package middleware

import "github.com/aretw0/stepmesh/pkg/ports"

// Middleware allows wrapping a ManifestStore to add behavior.
type Middleware func(ports.ManifestStore) ports.ManifestStore
