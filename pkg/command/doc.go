// Package command implements the reversible edit operations of the workflow
// editor and the undo/redo stack that replays them.
//
// Commands form a closed set. Each variant captures exactly the state it needs
// to reverse and re-apply itself against a Graph, and the Stack dispatches
// execute, undo and redo over the variants with a type switch.
//
// A command is executed once when pushed. Afterwards it only alternates
// between undo and redo. Commands whose target leaves the graph are removed
// from both stacks by the command that removed it (cross-invalidation), so
// later undo/redo never touches a detached node.
//
// Nothing in this package is safe for concurrent use. Callers serialize
// access, see pkg/editor.
package command
