// Package paths provides standardized filesystem paths.
//
// All persistent state lives under a single per-user root so that
// profiles and recordings are easy to locate, back up, or wipe.
//
// # Directory Structure
//
//	~/.termgrid/
//	  ├── profiles.toml  (launch profiles)
//	  └── recordings/    (gzip session transcripts)
//
// # Usage
//
//	import "github.com/termgrid/termgrid/internal/shared/paths"
//
//	// Resolve standard locations
//	file := paths.ProfilesFile()
//	dir := paths.RecordingsDir()
//
//	// Expand user-relative input
//	abs := paths.ExpandHome("~/projects")
package paths
