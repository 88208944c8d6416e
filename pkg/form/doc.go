// Package form implements the parameter forms attached to service containers
// and to the workflow itself.
//
// A Form holds an ordered list of typed fields and a current value, an opaque
// Snapshot keyed by field name. Values are replaced wholesale through
// SetValue, whose notify parameter selects between a user edit (listeners are
// told about the change) and a silent write used when the command history
// replays an old or new value.
package form
