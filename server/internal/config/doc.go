// Package config loads the gateway configuration from the `server:` section
// of config.yaml.
//
// Config fields:
//   - HTTPPort        WebSocket, REST API and /metrics port (default 8080)
//   - GRPCPort        NotifyBoard gRPC port (default 50051)
//   - LogLevel        debug | info | warn | error (default info)
//   - AllowedOrigins  WebSocket Origin allow-list; "*" allows all
//   - Auth.Mode       "jwt" or "none"; Auth.SecretEnv names the HMAC secret
//   - Notify.Mode     "apikey" or "none"; Notify.KeyEnv, Notify.Header
//   - Transport       send buffer, frame size, pong wait, write timeout,
//     per-connection rate limit
//
// Load(path) applies defaults before unmarshalling, appends FRONTEND_URL to
// the origin list when set, then validates. Watch(ctx, path, onChange)
// reloads the file on change via fsnotify.
package config
