// Package user manages the accounts of a house: the single admin (the
// Family Head) who registers the house, and the members the admin adds.
//
// Members start authorised when added by the admin. A member whose
// authorisation is withdrawn can still read house state but cannot change it.
package user
