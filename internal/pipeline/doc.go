// Package pipeline drives a release through the packaging stages.
//
// The stage order is fixed:
//
//	reset-workspace → fetch → extract → stage-metadata → vendor-dependencies →
//	reset-source-tree → reextract → relocate-metadata → stamp-changelog → build
//
// The source tree is extracted twice. The first copy is only used to vendor
// dependencies, which leaves build products behind; it is then discarded and
// re-extracted so the source package is built from pristine upstream sources
// plus the staged debian/ directory carrying the dependency archives.
//
// A run can stop early after any stage (Options.StopAfter) and may skip the
// changelog stamp and the build (Options.Skip). The first failing stage ends
// the run; the workspace is left as it was for inspection and is reset by the
// next run.
package pipeline
