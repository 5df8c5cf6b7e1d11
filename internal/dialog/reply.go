package dialog

// Button is one selectable menu item: a label the transport renders and the
// opaque action token sent back when the user picks it.
type Button struct {
	Label string `json:"label"`
	Data  string `json:"data"`
}

// Reply is the transport-agnostic outcome of one dialog step. Each button is
// rendered on its own row. An empty reply (no text) means the input was
// ignored and nothing should be sent.
type Reply struct {
	Text    string   `json:"text"`
	Buttons []Button `json:"buttons,omitempty"`
}

func (r Reply) Empty() bool {
	return r.Text == ""
}

func backButton() Button {
	return Button{Label: "Back", Data: tokenBackToMenu}
}

func mainMenuButtons() []Button {
	return []Button{
		{Label: "Add event", Data: tokenAddEvent},
		{Label: "Add reminder", Data: tokenAddReminder},
		{Label: "View events", Data: tokenViewEvents},
		{Label: "Delete event", Data: tokenDeleteEvent},
		{Label: "Delete reminder", Data: tokenDeleteReminder},
		{Label: "Current date and time", Data: tokenCurrentTime},
		{Label: "Timezone settings", Data: tokenSetTimezone},
	}
}

func mainMenu() Reply {
	return Reply{Text: "Choose an action:", Buttons: mainMenuButtons()}
}
