// Package session establishes an authenticated session with a review server
// and yields the current user's identity on it.
//
// A [Resolver] first probes the server with an authenticated "who am I"
// request. When the probe fails it tries a silent auto-login navigation (if
// the backend provides one), and finally opens a visible login tab through a
// [TabController] and polls it until the user lands back on the server or
// closes the tab.
//
// The polling loop has no timeout of its own; callers that need one cancel
// the context.
package session
