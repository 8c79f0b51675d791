// Package commands implements the vpower-log CLI commands.
package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/vpower-bridge/vpower-go/pkg/log"
)

// FilterOptions holds the filter flags shared by every command.
type FilterOptions struct {
	SessionID string
	Component string
	Category  string
	TimeStart string
	TimeEnd   string
}

// Build converts the flag values into a log.Filter.
func (o FilterOptions) Build() (log.Filter, error) {
	filter := log.Filter{SessionID: o.SessionID}

	if o.Component != "" {
		c, err := ParseComponentFlag(o.Component)
		if err != nil {
			return log.Filter{}, err
		}
		filter.Component = &c
	}

	if o.Category != "" {
		c, err := ParseCategoryFlag(o.Category)
		if err != nil {
			return log.Filter{}, err
		}
		filter.Category = &c
	}

	if o.TimeStart != "" {
		t, err := time.Parse(time.RFC3339, o.TimeStart)
		if err != nil {
			return log.Filter{}, fmt.Errorf("invalid time-start format: %w", err)
		}
		filter.TimeStart = &t
	}

	if o.TimeEnd != "" {
		t, err := time.Parse(time.RFC3339, o.TimeEnd)
		if err != nil {
			return log.Filter{}, fmt.Errorf("invalid time-end format: %w", err)
		}
		filter.TimeEnd = &t
	}

	return filter, nil
}

// ParseComponentFlag parses a component name (case-insensitive).
func ParseComponentFlag(s string) (log.Component, error) {
	switch strings.ToLower(s) {
	case "bridge":
		return log.ComponentBridge, nil
	case "acquirer":
		return log.ComponentAcquirer, nil
	case "node":
		return log.ComponentNode, nil
	case "receive", "rx":
		return log.ComponentReceive, nil
	case "transmit", "tx":
		return log.ComponentTransmit, nil
	case "chain":
		return log.ComponentChain, nil
	case "watchdog":
		return log.ComponentWatchdog, nil
	default:
		return 0, fmt.Errorf("invalid component: %s (must be bridge, acquirer, node, receive, transmit, chain or watchdog)", s)
	}
}

// ParseCategoryFlag parses a category name (case-insensitive).
func ParseCategoryFlag(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "lifecycle":
		return log.CategoryLifecycle, nil
	case "state":
		return log.CategoryState, nil
	case "data":
		return log.CategoryData, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be lifecycle, state, data or error)", s)
	}
}

// shortenID returns the first 8 characters of a session ID.
func shortenID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

// eventType returns a short label for the payload.
func eventType(event log.Event) string {
	switch {
	case event.Lifecycle != nil:
		return "lifecycle"
	case event.StateChange != nil:
		return "state"
	case event.Data != nil:
		return "data"
	case event.Error != nil:
		return "error"
	default:
		return "unknown"
	}
}
