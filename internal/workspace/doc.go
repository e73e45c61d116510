// Package workspace owns the on-disk layout of a packaging run.
//
// The workspace root (./target by default) belongs to ppabuild alone: it is
// deleted and recreated at the start of every run, and the source tree inside
// it is reset again before the second extraction. Reset refuses roots, the
// home directory and mount points, and Acquire serializes runs with an flock
// held next to the root so a reset can never remove it.
package workspace
