// Package notifications announces finished runs over ntfy.
//
// Builds spend most of their time in cargo and debuild, so a push when a run
// ends is the main feedback channel for unattended runs. Without a configured
// topic the service is a no-op.
package notifications
