// Package config loads the session configuration: an optional HCL file
// describing session knobs, annotation types and the renderer endpoint,
// followed by GMS_* environment overrides. The result is read-only once
// the session starts.
package config
