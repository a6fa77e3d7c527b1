// Package pipeline wires the search stages into a single invocation.
//
// A Pipeline runs one user message through:
//   - query composition, which may short-circuit on a locator
//   - web search
//   - relevance ranking against the user's message
//   - placement dispatch of the ranked links
//
// Configuration errors and embedding failures are returned to the caller.
// An unavailable search provider yields an empty Outcome and a nil error,
// since the provider failure has already been reported to the user.
package pipeline
