// Package auth decides who a request is acting as.
//
// Two strategies resolve a principal:
//   - bearer: a signed JWT in the Authorization header, valid for one hour
//     and never stored server-side
//   - session: an opaque key carried in a signed cookie and mapped to a user
//     id through a pluggable scs store
//
// Routes pick their strategies when the routing table is built:
//
//	bearerOnly := auth.NewGate(bearer)
//	either := auth.NewGate(bearer, session)
//
// Logging out destroys the session but cannot revoke bearer tokens; they
// stay valid until they expire.
package auth
