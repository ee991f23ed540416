// Package config loads the boardctl configuration (the `boardctl:` section of
// config.yaml).
//
// Load(path) reads the YAML file, applies defaults (gateway on localhost,
// 1000-entry relay buffer, no auth) and validates enums. A missing file is
// not an error: boardctl runs on defaults and command-line flags alone.
//
// Secrets never appear in the file. AuthConfig.Key() and
// Config.Token() resolve them from the environment variables named by
// key_env and token_env.
package config
