package app

import "errors"

var (
	// ErrPortalExists means portal creation was attempted while all three
	// portal channels are still live. The caller should offer deletion
	// instead of silently succeeding.
	ErrPortalExists = errors.New("private rooms already created")

	// ErrInconsistent means drift self-healing exceeded its retry bound;
	// the remote state keeps flapping and the portal cannot be rebuilt.
	ErrInconsistent = errors.New("portal state inconsistent")

	// ErrNoPortal means the guild has no portal configured.
	ErrNoPortal = errors.New("no portal for guild")

	// ErrRoomNotFound means the referenced dynamic room no longer exists.
	ErrRoomNotFound = errors.New("room not found")

	// ErrPermissionDenied means a command was issued outside the settings
	// channel, outside a portal room, or by a non-owner.
	ErrPermissionDenied = errors.New("permission denied")
)
