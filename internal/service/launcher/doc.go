// Package launcher wires provisioning and supervision into one invocation.
//
// Run makes the executable available, starts it with the caller's arguments
// and relays signals until it exits. Exit maps the outcome to the launcher's
// own status: the child's code, 1 when provisioning failed, or the child's
// terminating signal re-raised against the launcher.
package launcher
