// Package room manages the rooms of a house and applies mood presets to
// the devices in them.
//
// Rooms are linked to devices by name only: a device is in a room when its
// location equals the room's name. Because devices can name locations that
// have no room yet, the reconciler (Service.Reconcile and Sweeper)
// synthesises missing rooms so every location in use is represented.
package room
