// Package events is a small generic pub-sub broker: one publisher, many
// subscribers, each subscriber seeing every published value in order.
//
// Unlike a best-effort event bus, Publish here blocks until every
// subscriber has accepted the value rather than dropping it on a full
// buffer — callers that need a guaranteed-consistent view across
// subscribers (as opposed to fire-and-forget notifications) should use
// this instead of skipping slow readers.
package events
