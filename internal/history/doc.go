// Package history keeps a local SQLite ledger of pipeline runs.
//
// Every run is recorded with its inputs, per-stage outcome and final status.
// The ledger backs the duplicate-upload guard, which refuses to build a
// changelog version that already produced a source package for the same
// codename, and the `ppabuild history` listing.
package history
