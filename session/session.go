package session

import "github.com/hupe1980/agentkit/core"

// Session stores the conversation of one logical thread.
type Session interface {
	// ID identifies the session.
	ID() string

	// Items returns stored contents in order. A positive limit returns only
	// the most recent limit items.
	Items(limit int) ([]core.Content, error)

	// AddItems appends contents.
	AddItems(items ...core.Content) error

	// PopItem removes and returns the most recent item, if any.
	PopItem() (*core.Content, error)

	// Clear drops all items.
	Clear() error
}
