// Package notifyrpc defines the NotifyService gRPC contract used by backend
// services (and boardctl) to push board events into the gateway.
//
// Messages are plain Go structs carried with a JSON codec registered under
// the "json" content-subtype, so no generated code is required. Clients
// built with NewNotifyClient select the codec automatically; servers accept
// it once this package is imported.
package notifyrpc
