// Package cli parses command-line arguments, validates user input and maps
// failures to exit codes. It turns flags and positional descriptor roots
// into the application's Config.
package cli
