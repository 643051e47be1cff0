// Package config loads agentkit settings from a .env file, an optional YAML
// file and environment variables, and builds the configured model, logger
// and trace processors from them.
//
// Precedence, lowest first: built-in defaults, YAML file, .env file, process
// environment.
package config
