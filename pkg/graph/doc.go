// Package graph is the in-memory workflow graph edited on the canvas:
// service containers (nodes) with positions, terminals and parameter forms,
// and the wires connecting terminals.
//
// The graph knows nothing about history. Commands in package command mutate
// it through the same operations a gesture would, and rely on two behaviours:
// removing a node drops its wires silently, and removing a wire whose valid
// marker is set fires the wire-removed hooks so the editor can record the
// disconnect.
package graph
