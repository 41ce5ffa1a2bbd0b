// Parses flags and configures logging for the bake CLI.
//
// The CLI accepts the following global flags:
//
//	-q, --quiet     Suppress informational output.
//	-d, --debug     Enable debug output.
//
// After parsing, the global log level is adjusted to reflect the final
// flags before the selected subcommand runs.
package cli
