package session

import "context"

// TabHandle identifies a tab opened by a TabController.
type TabHandle string

// TabInfo describes the current state of an open tab.
type TabInfo struct {
	URL string
}

// TabController opens, inspects and closes interactive browser tabs.
type TabController interface {
	// OpenTab opens a visible tab at url.
	OpenTab(ctx context.Context, url string) (TabHandle, error)
	// Tab returns the tab's current state, or nil if the user closed it.
	Tab(ctx context.Context, h TabHandle) (*TabInfo, error)
	// CloseTab closes a tab previously returned by OpenTab.
	CloseTab(ctx context.Context, h TabHandle) error
}
