package dialog

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnknownAction marks a callback payload that is not one of the registered
// menu tokens. The transport only ever sends tokens this package produced, so
// hitting this is a programming error, not bad user input.
var ErrUnknownAction = errors.New("dialog: unknown action payload")

type ActionKind int

const (
	ActionAddEvent ActionKind = iota
	ActionAddReminder
	ActionViewEvents
	ActionDeleteEvent
	ActionDeleteReminder
	ActionCurrentTime
	ActionSetTimezone
	ActionBackToMenu
	ActionAddReminderNow
	ActionPickEvent                 // event_<id>
	ActionViewEvent                 // view_event_<id>
	ActionPickEventToDelete         // delete_event_<id>
	ActionConfirmDeleteEvent        // confirm_delete_event_<id>
	ActionPickEventForReminderDrop  // delete_reminder_event_<id>
	ActionPickReminderToDelete      // delete_reminder_<id>
	ActionConfirmDeleteReminder     // confirm_delete_reminder_<id>
	ActionPickTimezone              // tz_<zone>
)

// Action is the parsed form of a button payload. ID is set for the *_<id>
// tokens, Timezone for tz_<zone>.
type Action struct {
	Kind     ActionKind
	ID       int64
	Timezone string
}

// Wire tokens. Kept stable so buttons rendered before a restart still parse.
const (
	tokenAddEvent       = "add_event"
	tokenAddReminder    = "add_reminder"
	tokenViewEvents     = "view_events"
	tokenDeleteEvent    = "delete_event"
	tokenDeleteReminder = "delete_reminder"
	tokenCurrentTime    = "current_time"
	tokenSetTimezone    = "set_timezone"
	tokenBackToMenu     = "back_to_menu"
	tokenAddReminderNow = "add_reminder_now"
)

// ParseAction converts a raw callback payload into a closed Action variant.
// Prefixed tokens are tried longest-prefix first; anything unrecognized is a
// boundary error.
func ParseAction(data string) (Action, error) {
	switch data {
	case tokenAddEvent:
		return Action{Kind: ActionAddEvent}, nil
	case tokenAddReminder:
		return Action{Kind: ActionAddReminder}, nil
	case tokenViewEvents:
		return Action{Kind: ActionViewEvents}, nil
	case tokenDeleteEvent:
		return Action{Kind: ActionDeleteEvent}, nil
	case tokenDeleteReminder:
		return Action{Kind: ActionDeleteReminder}, nil
	case tokenCurrentTime:
		return Action{Kind: ActionCurrentTime}, nil
	case tokenSetTimezone:
		return Action{Kind: ActionSetTimezone}, nil
	case tokenBackToMenu:
		return Action{Kind: ActionBackToMenu}, nil
	case tokenAddReminderNow:
		return Action{Kind: ActionAddReminderNow}, nil
	}

	prefixed := []struct {
		prefix string
		kind   ActionKind
	}{
		{"confirm_delete_event_", ActionConfirmDeleteEvent},
		{"confirm_delete_reminder_", ActionConfirmDeleteReminder},
		{"delete_reminder_event_", ActionPickEventForReminderDrop},
		{"delete_reminder_", ActionPickReminderToDelete},
		{"delete_event_", ActionPickEventToDelete},
		{"view_event_", ActionViewEvent},
		{"event_", ActionPickEvent},
	}
	for _, p := range prefixed {
		if strings.HasPrefix(data, p.prefix) {
			id, err := strconv.ParseInt(strings.TrimPrefix(data, p.prefix), 10, 64)
			if err != nil {
				return Action{}, fmt.Errorf("%w: %q", ErrUnknownAction, data)
			}
			return Action{Kind: p.kind, ID: id}, nil
		}
	}

	if zone := strings.TrimPrefix(data, "tz_"); zone != data && zone != "" {
		return Action{Kind: ActionPickTimezone, Timezone: zone}, nil
	}

	return Action{}, fmt.Errorf("%w: %q", ErrUnknownAction, data)
}

// Token builders used when rendering button menus.

func eventToken(id int64) string              { return fmt.Sprintf("event_%d", id) }
func viewEventToken(id int64) string          { return fmt.Sprintf("view_event_%d", id) }
func deleteEventToken(id int64) string        { return fmt.Sprintf("delete_event_%d", id) }
func confirmDeleteEventToken(id int64) string { return fmt.Sprintf("confirm_delete_event_%d", id) }
func reminderDropEventToken(id int64) string  { return fmt.Sprintf("delete_reminder_event_%d", id) }
func deleteReminderToken(id int64) string     { return fmt.Sprintf("delete_reminder_%d", id) }
func confirmDeleteReminderToken(id int64) string {
	return fmt.Sprintf("confirm_delete_reminder_%d", id)
}
func timezoneToken(zone string) string { return "tz_" + zone }
