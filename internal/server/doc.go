// Package server provides the HTTP server implementation for the inkwell API.
//
// The server package is the transport boundary of the system: a chi-based
// REST API over the edit-session core, plus two streaming surfaces (SSE and
// WebSocket) fed by the internal event bus. It holds no session state of its
// own — every operation delegates to the session manager, document store,
// preview engine or adapter registry it was constructed with.
//
// # Development Gate
//
// Every route under /api sits behind a development-mode gate. Unless the
// configuration enables dev mode, all requests — reads included — are
// refused with 403. The gate is enforced here and only here; core packages
// never consult the flag. It cannot be switched on over the API it gates.
//
// # API Endpoints
//
//   - GET    /api/content?path=         read a document
//   - POST   /api/content               one-shot validated write {path, content}
//   - POST   /api/preview               compile one snapshot {source}
//   - POST   /api/convert               HTML → markdown import {html}
//   - GET    /api/session               list open sessions
//   - POST   /api/session               open a session {path, adapter?}
//   - GET    /api/session/{id}          session snapshot
//   - POST   /api/session/{id}/edit     replace in-memory content
//   - POST   /api/session/{id}/save     persist (single-flight)
//   - POST   /api/session/{id}/dismiss  acknowledge an error
//   - DELETE /api/session/{id}          close the session
//   - GET    /api/session/{id}/preview  latest compiled preview
//   - GET    /api/event                 SSE stream, all events
//   - GET    /api/session/{id}/event    SSE stream, one session
//   - GET    /api/session/{id}/live     WebSocket editing channel
//   - GET    /api/adapters              registered adapter descriptors
//   - GET    /api/config                effective configuration
//   - PATCH  /api/config                RFC 7386 merge patch
//
// # Response Conventions
//
// Failures carry {"error": message}. The write boundary always answers with
// {"success", "error"?, "validation"?} so callers handle one shape. Session
// handlers return the post-event snapshot whenever the state machine accepted
// the event — a save that failed is an accepted event whose outcome is the
// Error state, reported in the snapshot, with the typed content preserved.
// Only rejected events (unknown session, save already in flight, nothing to
// save) produce error statuses.
//
// # Event Streaming
//
// The SSE endpoints relay the internal bus: session.opened, session.updated,
// session.saved, session.error, session.closed, preview.updated,
// file.changed and watch.changed, each frame named by its event type, with
// heartbeat comments to keep intermediaries from cutting idle streams. The
// per-session variant filters to events affiliated with one session.
//
// The WebSocket live channel bundles both directions for editor clients:
// edit/save/dismiss commands in, session snapshots and preview frames out.
// Snapshot frames are idempotent; clients render the latest and need no
// ordering beyond that.
//
// # Usage
//
//	srv := server.New(server.DefaultConfig(), appConfig, store, manager,
//		registry, validator, engine)
//	go srv.Start()
//	...
//	srv.Shutdown(ctx)
//
// Shutdown closes every open session before stopping the listener, so
// pending preview work is cancelled and clients on streaming endpoints see
// their sessions close.
package server
