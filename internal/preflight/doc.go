// Package preflight runs startup and status checks: directory access,
// external binaries, and provider API reachability. The daemon and the CLI
// status command share these so the requirements list lives in one place.
package preflight
