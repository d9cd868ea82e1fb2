// Package proctree enumerates and terminates the descendants of a PTY child.
//
// Shells fork freely, and a lingering grandchild keeps the PTY slave open
// after the shell itself dies, which delays the master-side EOF. Killing the
// whole tree on close keeps session teardown prompt.
//
// Enumeration is platform-specific: POSIX systems filter the process listing
// by parent pid, Windows queries the process tree by ParentProcessId. Both
// feed the same breadth-first walk.
//
// Termination is strictly best-effort. Pids race with the scheduler, so a
// listed process may be gone before the signal lands; every per-pid failure
// is logged and ignored. The session root is the registry's job, not ours.
package proctree
