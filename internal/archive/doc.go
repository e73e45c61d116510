// Package archive unpacks compressed tar release artifacts.
//
// The compression is detected from magic bytes rather than the file name.
// Extraction goes through an os.Root opened on the destination, and member
// names and link targets are checked lexically first so hostile archives fail
// with ErrArchive before anything is written outside the destination.
package archive
