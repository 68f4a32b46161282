// Package supervisor runs the provisioned executable as a child process.
//
// The child either inherits the launcher's standard streams or exposes them as
// pipes. Forward relays host interrupts to the child (SIGINT first, SIGTERM if
// it is still alive after the escalation window) and returns the child's
// Result, which the caller turns into its own exit status.
package supervisor
