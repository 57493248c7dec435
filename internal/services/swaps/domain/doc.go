// Package domain implements the swap request state machine and the rating
// gate that completes swaps.
//
// Every operation commits through Store before publishing an Event, so a
// Publisher never observes uncommitted state and delivery failures cannot
// undo a committed change.
package domain
