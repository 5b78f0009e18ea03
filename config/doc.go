// Package config loads the shelfstock runtime configuration from the environment and builds
// database connections and OpenTelemetry providers from it.
package config
