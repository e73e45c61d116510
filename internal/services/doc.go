// Package services defines shared utilities consumed by the pipeline stages and
// the components that drive external tools.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, and the release version
//     for logging.
//   - Structured error markers plus the Wrap helper so every failure carries a
//     class (filesystem, network, archive, external tool, usage, configuration)
//     that the CLI can report and map to an exit status.
//
// Use these helpers when wiring new stage logic so failures surface the same
// way across the pipeline.
package services
