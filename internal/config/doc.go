// Package config resolves the server configuration from defaults, an optional
// YAML file, the environment (including a .env file) and command-line flags,
// in increasing order of precedence.
package config
