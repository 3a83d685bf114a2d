// Package source defines the host collaborators dynamesh consumes and ships
// one concrete host.
//
// A Source resolves an element id to the root of its geometry graph under a
// set of Options (view, detail level). An Oracle answers whether an element
// is visible in a view. A ViewProvider names the active view.
//
// Document implements all three over an in-memory model loaded from a YAML
// or CUE file (see LoadDocument). It is read-only once loaded and safe for
// concurrent use.
package source
