// Package contentstate reconciles learner content-progress updates against the
// stored record for each (learner, content, course, batch) identity.
//
// The Ingestor walks a request's items, filters out items whose batch window is
// closed and hands the rest to the Merger. The Merger applies the monotonic
// merge (status, progress and timestamps never regress; view and completion
// counters only grow) and persists the result with an optimistic version check,
// retrying on conflict so concurrent writers for the same key do not lose
// increments.
package contentstate
