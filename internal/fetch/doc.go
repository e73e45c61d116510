// Package fetch downloads the pinned upstream release artifact.
//
// A download is a single GET with no retries. The body is streamed into a
// hidden temporary file next to the destination and renamed into place once
// it is complete, so the workspace never holds a truncated artifact under its
// final name. A BLAKE3 digest of the bytes is logged for provenance.
package fetch
