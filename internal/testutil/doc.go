// Package testutil provides testing utilities for the mcp-discovery library:
// canned well-known JSON servers with request recording, and challenge
// servers emitting WWW-Authenticate headers.
package testutil
