// Package config loads service configuration from files, the environment and
// command-line flags.
//
// Sources are layered, later ones winning:
//
//  1. config.yml (searched under ./cmd/<service>/, ./config/ and the working
//     directory, or given with WithConfigFile)
//  2. config.<environment>.yml next to it, when present
//  3. a .env file and the process environment
//  4. flags that were explicitly set on the command line (WithFlags)
//
// Environment variables map onto nested keys by trying every split of the
// upper-case name, so SERVER_HTTPS_PORT reaches server.https_port.
package config
