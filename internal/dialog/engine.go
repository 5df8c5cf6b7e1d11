package dialog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"remindbot/internal/logger"
	"remindbot/internal/models"
	"remindbot/internal/store"
)

// DBLayer is the slice of the data store the dialog engine needs.
type DBLayer interface {
	CreateEvent(ctx context.Context, userID int64, name, date, timeOfDay string) (int64, error)
	GetEvent(ctx context.Context, eventID int64) (*models.Event, error)
	ListEvents(ctx context.Context, userID int64) ([]models.Event, error)
	ListEventsWithReminders(ctx context.Context, userID int64) ([]models.Event, error)
	DeleteEvent(ctx context.Context, eventID int64) error
	CreateReminder(ctx context.Context, eventID int64, date, timeOfDay string) (int64, error)
	GetReminder(ctx context.Context, reminderID int64) (*models.Reminder, error)
	ListReminders(ctx context.Context, eventID int64) ([]models.Reminder, error)
	DeleteReminder(ctx context.Context, reminderID int64) error
	CountReminders(ctx context.Context, eventID int64) (int, error)
	GetUserTimezone(ctx context.Context, userID int64, defaultTimezone string) (string, error)
	SetUserTimezone(ctx context.Context, userID int64, timezone string) error
}

// Engine advances one user's dialog session per inbound input. Sessions for
// different users are independent; the engine itself holds no per-user state
// outside the SessionStore.
type Engine struct {
	DB       DBLayer
	Sessions SessionStore
	Logger   *logger.Logger

	DefaultTimezone string
	Timezones       []string

	// Now is replaceable in tests.
	Now func() time.Time
}

func NewEngine(db DBLayer, sessions SessionStore, log *logger.Logger, defaultTimezone string, timezones []string) *Engine {
	return &Engine{
		DB:              db,
		Sessions:        sessions,
		Logger:          log,
		DefaultTimezone: defaultTimezone,
		Timezones:       timezones,
		Now:             time.Now,
	}
}

// session returns the user's session, creating a fresh one at the main menu
// when the user has none yet.
func (e *Engine) session(ctx context.Context, userID int64) (*Session, error) {
	session, err := e.Sessions.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		session = &Session{UserID: userID, State: ChoosingAction}
	}
	return session, nil
}

// Start handles the entry command: the session is reset and the main menu
// shown.
func (e *Engine) Start(ctx context.Context, userID int64) (Reply, error) {
	session := &Session{UserID: userID, State: ChoosingAction}
	if err := e.Sessions.Put(ctx, session); err != nil {
		return Reply{}, err
	}
	return mainMenu(), nil
}

// Cancel abandons whatever flow is in progress, discarding accumulated
// fields.
func (e *Engine) Cancel(ctx context.Context, userID int64) (Reply, error) {
	session, err := e.session(ctx, userID)
	if err != nil {
		return Reply{}, err
	}
	session.resetToMenu()
	if err := e.Sessions.Put(ctx, session); err != nil {
		return Reply{}, err
	}
	reply := mainMenu()
	reply.Text = "Operation cancelled.\n\n" + reply.Text
	return reply, nil
}

// HandleText processes a free-text message. Only the five data-entry states
// accept text; in every other state text input is ignored.
func (e *Engine) HandleText(ctx context.Context, userID int64, text string) (Reply, error) {
	session, err := e.session(ctx, userID)
	if err != nil {
		return Reply{}, err
	}

	var reply Reply
	switch session.State {
	case AddingEventName:
		reply = e.enterEventName(session, text)
	case AddingEventDate:
		reply = e.enterEventDate(session, text)
	case AddingEventTime:
		reply, err = e.enterEventTime(ctx, session, text)
	case AddingReminderDate:
		reply = e.enterReminderDate(session, text)
	case AddingReminderTime:
		reply, err = e.enterReminderTime(ctx, session, text)
	default:
		return Reply{}, nil
	}
	if err != nil {
		return Reply{}, err
	}

	if err := e.Sessions.Put(ctx, session); err != nil {
		return Reply{}, err
	}
	return reply, nil
}

// HandleAction processes a parsed button selection. Tokens that are valid but
// do not belong to the current state are ignored, mirroring how the menus are
// registered per state.
func (e *Engine) HandleAction(ctx context.Context, userID int64, action Action) (Reply, error) {
	session, err := e.session(ctx, userID)
	if err != nil {
		return Reply{}, err
	}

	if action.Kind == ActionBackToMenu {
		session.resetToMenu()
		if err := e.Sessions.Put(ctx, session); err != nil {
			return Reply{}, err
		}
		return mainMenu(), nil
	}

	var reply Reply
	switch session.State {
	case ChoosingAction:
		reply, err = e.handleMenuChoice(ctx, session, action)
	case AddingReminder:
		reply, err = e.handleReminderOffer(ctx, session, action)
	case ChoosingEventForReminder:
		reply, err = e.handleEventForReminder(ctx, session, action)
	case ChoosingEventToView:
		reply, err = e.handleEventToView(ctx, session, action)
	case ChoosingTimezone:
		reply, err = e.handleTimezoneChoice(ctx, session, action)
	case ChoosingEventToDelete:
		reply, err = e.handleEventToDelete(ctx, session, action)
	case ConfirmingEventDeletion:
		reply, err = e.handleEventDeletion(ctx, session, action)
	case ChoosingReminderToDelete:
		reply, err = e.handleReminderToDelete(ctx, session, action)
	case ConfirmingReminderDeletion:
		reply, err = e.handleReminderDeletion(ctx, session, action)
	default:
		return Reply{}, nil
	}
	if err != nil {
		return Reply{}, err
	}
	if reply.Empty() {
		return reply, nil
	}

	if err := e.Sessions.Put(ctx, session); err != nil {
		return Reply{}, err
	}
	return reply, nil
}

// ---------------- top-level menu ----------------

func (e *Engine) handleMenuChoice(ctx context.Context, session *Session, action Action) (Reply, error) {
	switch action.Kind {
	case ActionAddEvent:
		session.State = AddingEventName
		return Reply{Text: "Enter the event name:"}, nil
	case ActionAddReminder:
		return e.showEventsForReminder(ctx, session)
	case ActionViewEvents:
		return e.showEvents(ctx, session)
	case ActionDeleteEvent:
		return e.showEventsForDeletion(ctx, session)
	case ActionDeleteReminder:
		return e.showEventsForReminderDeletion(ctx, session)
	case ActionCurrentTime:
		return e.showCurrentTime(ctx, session)
	case ActionSetTimezone:
		return e.showTimezoneSelection(session)
	case ActionPickEvent:
		// "Add reminder" button on the event details screen.
		return e.startReminderForEvent(ctx, session, action.ID)
	case ActionPickEventToDelete:
		// "Delete event" button on the event details screen.
		return e.confirmEventDeletion(ctx, session, action.ID)
	default:
		return Reply{}, nil
	}
}

func (e *Engine) showCurrentTime(ctx context.Context, session *Session) (Reply, error) {
	now, timezone, err := e.userNow(ctx, session.UserID)
	if err != nil {
		return Reply{}, err
	}
	text := fmt.Sprintf("Current date: %s\nCurrent time: %s\nTimezone: %s",
		now.Format(DateLayout), now.Format("15:04:05"), timezone)
	return Reply{Text: text, Buttons: []Button{backButton()}}, nil
}

func (e *Engine) showTimezoneSelection(session *Session) (Reply, error) {
	buttons := make([]Button, 0, len(e.Timezones)+1)
	for _, zone := range e.Timezones {
		buttons = append(buttons, Button{Label: zone, Data: timezoneToken(zone)})
	}
	buttons = append(buttons, backButton())
	session.State = ChoosingTimezone
	return Reply{Text: "Choose your timezone:", Buttons: buttons}, nil
}

func (e *Engine) handleTimezoneChoice(ctx context.Context, session *Session, action Action) (Reply, error) {
	if action.Kind != ActionPickTimezone {
		return Reply{}, nil
	}
	if !e.knownTimezone(action.Timezone) {
		return Reply{}, fmt.Errorf("dialog: timezone %q is not in the configured list", action.Timezone)
	}
	if err := e.DB.SetUserTimezone(ctx, session.UserID, action.Timezone); err != nil {
		return Reply{}, err
	}

	now, timezone, err := e.userNow(ctx, session.UserID)
	if err != nil {
		return Reply{}, err
	}
	session.resetToMenu()
	text := fmt.Sprintf("Timezone set: %s\n\nCurrent date: %s\nCurrent time: %s",
		timezone, now.Format(DateLayout), now.Format("15:04:05"))
	return Reply{Text: text, Buttons: []Button{{Label: "Back to main menu", Data: tokenBackToMenu}}}, nil
}

func (e *Engine) knownTimezone(zone string) bool {
	for _, z := range e.Timezones {
		if z == zone {
			return true
		}
	}
	return false
}

// userNow resolves the user's timezone and returns the current time in it.
func (e *Engine) userNow(ctx context.Context, userID int64) (time.Time, string, error) {
	timezone, err := e.DB.GetUserTimezone(ctx, userID, e.DefaultTimezone)
	if err != nil {
		return time.Time{}, "", err
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("dialog: bad timezone %q: %w", timezone, err)
	}
	return e.Now().In(loc), timezone, nil
}

// ---------------- add event ----------------

func (e *Engine) enterEventName(session *Session, text string) Reply {
	name := strings.TrimSpace(text)
	if name == "" {
		return Reply{Text: "The event name cannot be empty. Enter the event name:"}
	}
	session.EventName = name
	session.State = AddingEventDate
	return Reply{Text: "Enter the event date (DD.MM.YYYY):"}
}

func (e *Engine) enterEventDate(session *Session, text string) Reply {
	if !ValidDate(text) {
		return Reply{Text: "Invalid date format. Please enter the date as DD.MM.YYYY:"}
	}
	session.EventDate = text
	session.State = AddingEventTime
	return Reply{Text: "Enter the event time (HH:MM):"}
}

// enterEventTime is the single commit point of the add-event flow: only after
// name, date and a valid time are all collected is the event written.
func (e *Engine) enterEventTime(ctx context.Context, session *Session, text string) (Reply, error) {
	if !ValidTime(text) {
		return Reply{Text: "Invalid time format. Please enter the time as HH:MM:"}, nil
	}
	session.EventTime = text

	eventID, err := e.DB.CreateEvent(ctx, session.UserID, session.EventName, session.EventDate, session.EventTime)
	if err != nil {
		return Reply{}, err
	}
	session.EventID = eventID
	session.State = AddingReminder
	e.Logger.Info("DIALOG", fmt.Sprintf("user %d created event %d (%s)", session.UserID, eventID, session.EventName))

	text = fmt.Sprintf("Event '%s' added for %s at %s.\n\nWould you like to add a reminder?",
		session.EventName, session.EventDate, session.EventTime)
	return Reply{Text: text, Buttons: []Button{
		{Label: "Yes", Data: tokenAddReminderNow},
		{Label: "No", Data: tokenBackToMenu},
	}}, nil
}

func (e *Engine) handleReminderOffer(ctx context.Context, session *Session, action Action) (Reply, error) {
	if action.Kind != ActionAddReminderNow {
		return Reply{}, nil
	}
	if session.EventID == 0 {
		return e.notFound(session, "Event not found."), nil
	}
	session.State = AddingReminderDate
	text := fmt.Sprintf("Adding a reminder for event '%s' (%s %s).\n\nEnter the reminder date (DD.MM.YYYY):",
		session.EventName, session.EventDate, session.EventTime)
	return Reply{Text: text}, nil
}

// ---------------- add reminder ----------------

func (e *Engine) showEventsForReminder(ctx context.Context, session *Session) (Reply, error) {
	events, err := e.DB.ListEvents(ctx, session.UserID)
	if err != nil {
		return Reply{}, err
	}
	if len(events) == 0 {
		session.resetToMenu()
		return Reply{
			Text:    "You have no events. Add an event first.",
			Buttons: []Button{backButton()},
		}, nil
	}

	buttons := make([]Button, 0, len(events)+1)
	for _, event := range events {
		buttons = append(buttons, Button{Label: eventLabel(event), Data: eventToken(event.ID)})
	}
	buttons = append(buttons, backButton())
	session.State = ChoosingEventForReminder
	return Reply{Text: "Choose an event to add a reminder to:", Buttons: buttons}, nil
}

func (e *Engine) handleEventForReminder(ctx context.Context, session *Session, action Action) (Reply, error) {
	switch action.Kind {
	case ActionPickEvent:
		return e.startReminderForEvent(ctx, session, action.ID)
	case ActionPickEventForReminderDrop:
		return e.showRemindersForDeletion(ctx, session, action.ID)
	default:
		return Reply{}, nil
	}
}

func (e *Engine) startReminderForEvent(ctx context.Context, session *Session, eventID int64) (Reply, error) {
	event, err := e.DB.GetEvent(ctx, eventID)
	if errors.Is(err, store.ErrNotFound) {
		return e.notFound(session, "Event not found."), nil
	}
	if err != nil {
		return Reply{}, err
	}

	session.EventID = event.ID
	session.EventName = event.Name
	session.EventDate = event.EventDate
	session.EventTime = event.EventTime
	session.State = AddingReminderDate

	text := fmt.Sprintf("Adding a reminder for event '%s' (%s %s).\n\nEnter the reminder date (DD.MM.YYYY):",
		event.Name, event.EventDate, event.EventTime)
	return Reply{Text: text}, nil
}

func (e *Engine) enterReminderDate(session *Session, text string) Reply {
	if !ValidDate(text) {
		return Reply{Text: "Invalid date format. Please enter the date as DD.MM.YYYY:"}
	}
	session.ReminderDate = text
	session.State = AddingReminderTime
	return Reply{Text: "Enter the reminder time (HH:MM):"}
}

// enterReminderTime commits the reminder against the event id carried in the
// session, whichever path put it there.
func (e *Engine) enterReminderTime(ctx context.Context, session *Session, text string) (Reply, error) {
	if !ValidTime(text) {
		return Reply{Text: "Invalid time format. Please enter the time as HH:MM:"}, nil
	}

	reminderID, err := e.DB.CreateReminder(ctx, session.EventID, session.ReminderDate, text)
	if err != nil {
		return Reply{}, err
	}
	e.Logger.Info("DIALOG", fmt.Sprintf("user %d created reminder %d for event %d", session.UserID, reminderID, session.EventID))

	replyText := fmt.Sprintf("Reminder for event '%s' set for %s at %s.",
		session.EventName, session.ReminderDate, text)
	session.ReminderDate = ""
	session.State = ChoosingEventForReminder
	return Reply{Text: replyText, Buttons: []Button{
		{Label: "Add another reminder", Data: eventToken(session.EventID)},
		{Label: "Back to main menu", Data: tokenBackToMenu},
	}}, nil
}

// ---------------- view events ----------------

func (e *Engine) showEvents(ctx context.Context, session *Session) (Reply, error) {
	events, err := e.DB.ListEvents(ctx, session.UserID)
	if err != nil {
		return Reply{}, err
	}
	if len(events) == 0 {
		session.resetToMenu()
		return Reply{Text: "You have no events.", Buttons: []Button{backButton()}}, nil
	}

	buttons := make([]Button, 0, len(events)+1)
	for _, event := range events {
		buttons = append(buttons, Button{Label: eventLabel(event), Data: viewEventToken(event.ID)})
	}
	buttons = append(buttons, backButton())
	session.State = ChoosingEventToView
	return Reply{Text: "Your events:", Buttons: buttons}, nil
}

func (e *Engine) handleEventToView(ctx context.Context, session *Session, action Action) (Reply, error) {
	switch action.Kind {
	case ActionViewEvent:
		return e.viewEventDetails(ctx, session, action.ID)
	case ActionPickEventToDelete:
		return e.confirmEventDeletion(ctx, session, action.ID)
	default:
		return Reply{}, nil
	}
}

func (e *Engine) viewEventDetails(ctx context.Context, session *Session, eventID int64) (Reply, error) {
	event, err := e.DB.GetEvent(ctx, eventID)
	if errors.Is(err, store.ErrNotFound) {
		return e.notFound(session, "Event not found."), nil
	}
	if err != nil {
		return Reply{}, err
	}

	reminders, err := e.DB.ListReminders(ctx, eventID)
	if err != nil {
		return Reply{}, err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Event: %s\nDate: %s\nTime: %s", event.Name, event.EventDate, event.EventTime)
	if len(reminders) == 0 {
		sb.WriteString("\n\nNo reminders.")
	} else {
		sb.WriteString("\n\nReminders:\n")
		for i, reminder := range reminders {
			fmt.Fprintf(&sb, "%d. %s at %s\n", i+1, reminder.ReminderDate, reminder.ReminderTime)
		}
	}

	session.resetToMenu()
	return Reply{Text: sb.String(), Buttons: []Button{
		{Label: "Add reminder", Data: eventToken(event.ID)},
		{Label: "Delete event", Data: deleteEventToken(event.ID)},
		{Label: "Back to event list", Data: tokenViewEvents},
		{Label: "Main menu", Data: tokenBackToMenu},
	}}, nil
}

// ---------------- delete event ----------------

func (e *Engine) showEventsForDeletion(ctx context.Context, session *Session) (Reply, error) {
	events, err := e.DB.ListEvents(ctx, session.UserID)
	if err != nil {
		return Reply{}, err
	}
	if len(events) == 0 {
		session.resetToMenu()
		return Reply{Text: "You have no events to delete.", Buttons: []Button{backButton()}}, nil
	}

	buttons := make([]Button, 0, len(events)+1)
	for _, event := range events {
		buttons = append(buttons, Button{Label: eventLabel(event), Data: deleteEventToken(event.ID)})
	}
	buttons = append(buttons, backButton())
	session.State = ChoosingEventToDelete
	return Reply{Text: "Choose an event to delete:", Buttons: buttons}, nil
}

func (e *Engine) handleEventToDelete(ctx context.Context, session *Session, action Action) (Reply, error) {
	if action.Kind != ActionPickEventToDelete {
		return Reply{}, nil
	}
	return e.confirmEventDeletion(ctx, session, action.ID)
}

func (e *Engine) confirmEventDeletion(ctx context.Context, session *Session, eventID int64) (Reply, error) {
	event, err := e.DB.GetEvent(ctx, eventID)
	if errors.Is(err, store.ErrNotFound) {
		return e.notFound(session, "Event not found."), nil
	}
	if err != nil {
		return Reply{}, err
	}

	count, err := e.DB.CountReminders(ctx, eventID)
	if err != nil {
		return Reply{}, err
	}

	text := fmt.Sprintf("Are you sure you want to delete event '%s' (%s %s)?",
		event.Name, event.EventDate, event.EventTime)
	if count > 0 {
		text += fmt.Sprintf("\n\nAll linked reminders (%d) will be deleted with it.", count)
	}

	session.State = ConfirmingEventDeletion
	return Reply{Text: text, Buttons: []Button{
		{Label: "Yes, delete", Data: confirmDeleteEventToken(eventID)},
		{Label: "No, cancel", Data: tokenBackToMenu},
	}}, nil
}

func (e *Engine) handleEventDeletion(ctx context.Context, session *Session, action Action) (Reply, error) {
	if action.Kind != ActionConfirmDeleteEvent {
		return Reply{}, nil
	}
	if err := e.DB.DeleteEvent(ctx, action.ID); err != nil {
		return Reply{}, err
	}
	e.Logger.Info("DIALOG", fmt.Sprintf("user %d deleted event %d", session.UserID, action.ID))

	session.resetToMenu()
	return Reply{
		Text:    "The event and all linked reminders have been deleted.",
		Buttons: []Button{{Label: "Back to main menu", Data: tokenBackToMenu}},
	}, nil
}

// ---------------- delete reminder ----------------

func (e *Engine) showEventsForReminderDeletion(ctx context.Context, session *Session) (Reply, error) {
	events, err := e.DB.ListEventsWithReminders(ctx, session.UserID)
	if err != nil {
		return Reply{}, err
	}
	if len(events) == 0 {
		session.resetToMenu()
		return Reply{Text: "You have no events with reminders.", Buttons: []Button{backButton()}}, nil
	}

	buttons := make([]Button, 0, len(events)+1)
	for _, event := range events {
		buttons = append(buttons, Button{Label: eventLabel(event), Data: reminderDropEventToken(event.ID)})
	}
	buttons = append(buttons, backButton())
	session.State = ChoosingEventForReminder
	return Reply{Text: "Choose the event whose reminder you want to delete:", Buttons: buttons}, nil
}

func (e *Engine) showRemindersForDeletion(ctx context.Context, session *Session, eventID int64) (Reply, error) {
	event, err := e.DB.GetEvent(ctx, eventID)
	if errors.Is(err, store.ErrNotFound) {
		return e.notFound(session, "Event not found."), nil
	}
	if err != nil {
		return Reply{}, err
	}
	session.EventID = event.ID
	session.EventName = event.Name

	reminders, err := e.DB.ListReminders(ctx, eventID)
	if err != nil {
		return Reply{}, err
	}
	if len(reminders) == 0 {
		session.resetToMenu()
		return Reply{
			Text:    fmt.Sprintf("Event '%s' has no reminders.", event.Name),
			Buttons: []Button{backButton()},
		}, nil
	}

	buttons := make([]Button, 0, len(reminders)+1)
	for _, reminder := range reminders {
		buttons = append(buttons, Button{
			Label: fmt.Sprintf("%s at %s", reminder.ReminderDate, reminder.ReminderTime),
			Data:  deleteReminderToken(reminder.ID),
		})
	}
	buttons = append(buttons, backButton())
	session.State = ChoosingReminderToDelete
	text := fmt.Sprintf("Choose a reminder of event '%s' (%s %s) to delete:",
		event.Name, event.EventDate, event.EventTime)
	return Reply{Text: text, Buttons: buttons}, nil
}

func (e *Engine) handleReminderToDelete(ctx context.Context, session *Session, action Action) (Reply, error) {
	if action.Kind != ActionPickReminderToDelete {
		return Reply{}, nil
	}

	reminder, err := e.DB.GetReminder(ctx, action.ID)
	if errors.Is(err, store.ErrNotFound) {
		return e.notFound(session, "Reminder not found."), nil
	}
	if err != nil {
		return Reply{}, err
	}

	session.State = ConfirmingReminderDeletion
	text := fmt.Sprintf("Are you sure you want to delete the reminder for %s at %s for event '%s'?",
		reminder.ReminderDate, reminder.ReminderTime, session.EventName)
	return Reply{Text: text, Buttons: []Button{
		{Label: "Yes, delete", Data: confirmDeleteReminderToken(action.ID)},
		{Label: "No, cancel", Data: tokenBackToMenu},
	}}, nil
}

func (e *Engine) handleReminderDeletion(ctx context.Context, session *Session, action Action) (Reply, error) {
	if action.Kind != ActionConfirmDeleteReminder {
		return Reply{}, nil
	}
	if err := e.DB.DeleteReminder(ctx, action.ID); err != nil {
		return Reply{}, err
	}
	e.Logger.Info("DIALOG", fmt.Sprintf("user %d deleted reminder %d", session.UserID, action.ID))

	session.resetToMenu()
	return Reply{
		Text:    "The reminder has been deleted.",
		Buttons: []Button{{Label: "Back to main menu", Data: tokenBackToMenu}},
	}, nil
}

// ---------------- helpers ----------------

// notFound reports a stale reference and drops the user back to the menu.
func (e *Engine) notFound(session *Session, message string) Reply {
	session.resetToMenu()
	return Reply{Text: message + "\n\nChoose an action:", Buttons: mainMenuButtons()}
}

func eventLabel(event models.Event) string {
	return fmt.Sprintf("%s (%s %s)", event.Name, event.EventDate, event.EventTime)
}
