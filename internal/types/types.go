// Package types holds the data structures shared by the storage and HTTP
// layers. Keeping them in one place prevents import cycles: handlers and
// every storage backend import types without depending on each other.
package types

// Worker is a persisted worker record.
//
// ID is assigned by the store on creation and never changes afterwards.
// Email is unique across all workers.
type Worker struct {
	ID    int64
	Name  string
	Email string
	Role  string
}

// WorkerUpdate carries the fields to change on an existing worker.
//
// A nil field is left untouched. A full update sets all three; a partial
// update sets only the fields the client supplied.
type WorkerUpdate struct {
	Name  *string
	Email *string
	Role  *string
}

// Empty reports whether the update changes nothing.
func (u WorkerUpdate) Empty() bool {
	return u.Name == nil && u.Email == nil && u.Role == nil
}

// Apply returns w with every non-nil field of u written over it.
func (u WorkerUpdate) Apply(w Worker) Worker {
	if u.Name != nil {
		w.Name = *u.Name
	}
	if u.Email != nil {
		w.Email = *u.Email
	}
	if u.Role != nil {
		w.Role = *u.Role
	}
	return w
}

// WorkerFilter narrows a worker listing.
//
// Search is a case-insensitive substring of the name, Role an exact role.
// Empty values do not filter; both set means both must match.
type WorkerFilter struct {
	Search string
	Role   string
}
