// Package process holds the business process model: frameworks made of a
// tree of processes, each owning an ordered list of activities.
//
// Frameworks are persisted as one JSON document per framework in a storage
// directory ("<framework_id>.json") and served from a Repository that keeps
// an id index per framework for constant time lookups.
//
// The tree is read-mostly. Values returned by the repository are shared and
// must be treated as read-only; Flatten copies activities by value so
// workflow instances are not affected by later changes.
package process
