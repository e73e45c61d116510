// Package changelog stamps debian/changelog entries and understands enough of
// the format to verify them.
//
// Stamping is delegated to dch. The package parses stanza headers so the
// pipeline can confirm the new top entry, and it implements dpkg's version
// ordering so an out-of-order changelog version is reported before upload.
package changelog
