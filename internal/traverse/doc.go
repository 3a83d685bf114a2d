// Package traverse walks one element's geometry graph and produces its
// meshes.
//
// Instances are unwrapped recursively. Each solid becomes one mesh: its
// faces are tessellated and the local meshes joined. Raw meshes pass
// through after validation. Degenerate geometry (solids without faces or
// edges, meshes without vertices) is skipped, not reported. A face that
// cannot be tessellated fails the whole element.
//
// An element that yields nothing is reported as a single nil mesh, so
// "no geometry" stays distinguishable from "not processed".
package traverse
