package world

import "errors"

// Sentinel errors returned by Gateway implementations. Callers classify
// failures with errors.Is; implementations wrap them with detail.
var (
	ErrNotSpawned     = errors.New("not spawned")
	ErrNoPath         = errors.New("no path to goal")
	ErrDigFailed      = errors.New("dig failed")
	ErrUnknownItem    = errors.New("unknown item")
	ErrNoRecipe       = errors.New("no recipe")
	ErrNotInInventory = errors.New("item not in inventory")
	ErrDisconnected   = errors.New("disconnected")
)
