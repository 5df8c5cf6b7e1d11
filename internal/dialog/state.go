package dialog

// State identifies where a user is in the multi-step conversation. The set
// mirrors the conversation flow: one state per prompt, with explicit
// confirmation states in front of every destructive action.
type State int

const (
	ChoosingAction State = iota
	AddingEventName
	AddingEventDate
	AddingEventTime
	AddingReminder
	ChoosingEventForReminder
	AddingReminderDate
	AddingReminderTime
	ChoosingEventToView
	ChoosingTimezone
	ChoosingEventToDelete
	ConfirmingEventDeletion
	ChoosingReminderToDelete
	ConfirmingReminderDeletion
)

// Session is the accumulated state of one user's in-progress dialog. Fields
// collected step by step are buffered here and written to the store only at
// the single commit point of each flow. Every return to the top-level menu
// discards them.
type Session struct {
	UserID int64 `json:"user_id"`
	State  State `json:"state"`

	EventID      int64  `json:"event_id,omitempty"`
	EventName    string `json:"event_name,omitempty"`
	EventDate    string `json:"event_date,omitempty"`
	EventTime    string `json:"event_time,omitempty"`
	ReminderDate string `json:"reminder_date,omitempty"`
}

// resetToMenu clears the accumulated fields and returns the session to the
// top-level menu.
func (s *Session) resetToMenu() {
	*s = Session{UserID: s.UserID, State: ChoosingAction}
}
