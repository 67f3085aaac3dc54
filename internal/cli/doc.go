// Package cli implements the scormrte command line.
//
// Commands share the --format (text|json) and --verbose flags from the
// root command. JSON output is always wrapped in a CLIResponse envelope.
// Errors that should map to a specific process exit code are returned as
// *ExitError; see GetExitCode.
package cli
