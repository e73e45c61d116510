// Package runner executes the external tools the pipeline drives (cargo, tar,
// dch, debuild).
//
// Every invocation names its working directory explicitly through exec.Cmd.Dir,
// so the ppabuild process never changes its own current directory and a failed
// tool cannot leave later stages running from the wrong place. Output is
// streamed line by line into the structured logger and the trailing lines are
// kept on the returned ToolError for operator diagnostics.
package runner
