// Package config defines the launcher settings and how they are assembled.
//
// Values come from three layers: built-in defaults, an optional YAML file and
// PACKAGE_NONODO_* environment variables, with later layers winning. Validate
// fills whatever is still empty with defaults and rejects malformed values.
package config
