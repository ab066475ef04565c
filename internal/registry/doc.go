// Package registry maps the function names carried by deferred units to the
// Go functions that implement them.
//
// Graphs only hold names, so the same graph can run in-process or on a
// remote worker. Before a graph is dispatched the registry checks that
// every name it references is registered, turning a typo into a startup
// error instead of a failed branch.
package registry
