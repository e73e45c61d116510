// Package preflight provides readiness checks for the filesystem paths and
// external tools a ppabuild run depends on.
//
// These checks run in two contexts:
//   - The pipeline calls RunAll before the first stage. Any failure aborts
//     the run with a configuration error before the workspace is touched.
//   - The CLI "ppabuild doctor" command uses the individual checks, plus
//     CheckRelease, to display readiness.
//
// Tool checks are gated by the run plan -- stages that will not run do not
// require their tools.
package preflight
