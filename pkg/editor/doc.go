// Package editor is the shell that turns user gestures on the canvas into
// commands.
//
// Every gesture first applies its visible effect to the graph (a drag has
// already moved the node, a form edit has already changed the value), then
// records the matching command on the stack. Undo and Redo replay the stack.
//
// An Editor is safe for concurrent use: gestures, Undo and Redo are
// serialized behind one mutex so history keeps strict LIFO order.
package editor
