// Package remote models the entities owned by the external laboratory services
// (Set, Material/Container and Study) and the client contracts the work order
// core consumes. Local records only ever hold the UUIDs of these entities; the
// entities themselves are fetched on demand through the service interfaces.
package remote
