// Package backends fetches review items from each supported kind of review
// server and normalizes them into [review.Change] values.
//
// Supported site types: Gerrit, Rietveld, and a Demo backend that serves
// canned changes for screenshots and tests.
//
// Every network backend first resolves the user's identity through a
// [session.Resolver], which may open an interactive login tab. A data
// response that turns out to be a login page is treated as an expired
// session: the backend logs in again and repeats the fetch exactly once.
//
// Use [New] to obtain a Backend for a configured site.
package backends
