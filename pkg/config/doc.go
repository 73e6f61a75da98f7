// Package config defines the Ganymede configuration model and its loading
// pipeline: YAML file, defaults, GANYMEDE_* environment overrides,
// validation, and optional hot reload of the file via fsnotify.
package config
