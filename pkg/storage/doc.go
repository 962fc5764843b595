// Package storage defines the persistence interfaces the API depends on.
//
// The auth pipeline only ever consumes two narrow capabilities from here:
// user re-resolution (UserStore.UserByIDAndEmail) and the ownership check
// (TaskStore.TaskExistsForOwner). Everything else is plain CRUD plumbing
// for the handlers. Implementations live in the memory and postgres
// subpackages.
package storage
