// Package websearch runs a query against a web search provider and
// normalizes the results into candidates.
//
// Every search is a single request. There is no retry or backoff: a
// transport failure is reported to the user through the Notifier and the
// search yields no candidates, leaving any retry to the caller.
//
// Missing credentials are different. They are user-correctable, so Execute
// presents a prompt through the Notifier and returns a
// core.ConfigurationError without touching the network.
package websearch
