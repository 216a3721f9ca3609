// Package workflow sequences the activities of a process across agents.
//
// CreateWorkflow flattens a process tree into a fixed list of activities
// (pre-order: a process's own activities, then its subprocesses). Each call to
// ExecuteNextActivity runs exactly one of them synchronously through the
// interpreter, using the first registered agent that holds every capability
// the activity is mapped to.
//
// A failed activity is recorded and the workflow moves on. An instance is
// completed exactly when every activity has been attempted.
package workflow
