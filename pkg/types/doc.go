/*
Package types defines the core data structures used throughout Burrow.

This package contains the fundamental types that represent Burrow's domain
model: workload instance network specifications and port mappings. These types
are consumed by the network facade for instance setup/teardown and by the CLI
for YAML spec files.

All types are designed to be:
  - Serializable (YAML for spec files)
  - Free of behavior beyond trivial defaulting helpers
  - Self-documenting (clear field names and comments)
*/
package types
