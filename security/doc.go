// Package security provides the security gates applied to discovered OAuth
// configuration before any endpoint is used for a live request.
//
// Three independent checks are implemented:
//
//   - HTTPS enforcement for individual URLs and whole endpoint sets, with a
//     localhost exemption for development setups
//   - PKCE capability validation: a client must refuse to proceed without
//     confirmed S256 support (RFC 7636)
//   - JWT issuer cross-checks on access tokens, without signature
//     verification, so opaque tokens pass and only explicit mismatches fail
//
// Every check is a pure function over its inputs; the package performs no
// network I/O and holds no state.
package security
