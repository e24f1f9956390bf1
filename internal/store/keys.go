package store

const (
	// KeyBookmarks holds the bookmark collection as a JSON array.
	KeyBookmarks = "bookmarks"
	// KeyQueue holds pending job ids as a JSON array.
	KeyQueue = "processingQueue"
	// KeyLastBookmarkID holds the highest id ever issued.
	KeyLastBookmarkID = "lastBookmarkId"
	// KeyAnalyticsClientID holds the installation id reported to analytics.
	KeyAnalyticsClientID = "analyticsClientId"
)
