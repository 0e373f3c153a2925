// Package common holds identifiers shared across the Dungeon-Gen-FHE
// binaries and services.
package common

// PackageName identifies this module in logs and metrics namespaces.
const PackageName = "dungeon-gen-fhe"

// Version is the module version reported by the binaries. Overridden at
// build time via -ldflags.
var Version = "dev"
