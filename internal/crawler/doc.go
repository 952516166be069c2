// Package crawler implements the crawl engine: frontier management,
// the fetch/retry policy state machine, robots evaluation, and the
// orchestrating Spider.
//
// # Architecture
//
// The package is designed around the Spider type, which drives one crawl
// session as an explicit work-queue loop:
//
//	dequeue -> robots check -> fetch -> classify -> extract -> enqueue -> record
//
// The pieces are deliberately separable:
//
//   - Frontier owns the pending queue and the visitation registry.
//     Dequeue marks a URL visited immediately, which is the sole guard
//     against duplicate in-flight fetches.
//   - Policy is a pure classification function from one attempt's outcome
//     to Accept, Retry, Skip, or Fail, per the active operating mode.
//   - Parser is a stateless HTML-to-record transform.
//   - RobotsPolicy evaluates robots.txt once per session.
//
// Every URL reaches exactly one terminal outcome per session: a page
// record, a skip record, or a failure record. Per-URL errors never abort
// a session.
package crawler
