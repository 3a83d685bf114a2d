// Package batch runs geometry traversal over a list of elements.
//
// Results are index-aligned with the input: element i of the input is
// always slot i of the output, whatever happened to it. Elements that are
// null, hidden, unresolvable, empty or failed get the "no geometry"
// placeholder and a status saying why. Only configuration problems and
// context cancellation fail the batch as a whole.
//
// With WithWorkers(n > 1), elements are processed concurrently. The Source
// and Oracle must then be safe for concurrent reads.
package batch
