// Package device is the device state engine of a house.
//
// Devices are owned by exactly one house. Every read and write goes through
// a [tenancy.Principal] and is rejected when the device belongs to another
// house. Mutations are persisted with an optimistic version check, append one
// activity entry in the same transaction, and then fan out to the audit log,
// telemetry, and the broadcast sink.
//
// Each house numbers its devices from 1 using a per-house counter; the
// surrogate id ("dev-" plus a UUID) is what the API exposes.
package device
