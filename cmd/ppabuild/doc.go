// Command ppabuild turns a tagged upstream release into a signed Ubuntu
// source package.
//
//	ppabuild [flags] <version> <codename> <changelog-version>
//
// Subcommands: config (init, validate), history, logs and doctor.
package main
