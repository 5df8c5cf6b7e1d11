package models

// Dates and times are stored as formatted text and compared with exact string
// equality, never as timestamps or ranges. These are the canonical layouts.
const (
	DateLayout = "02.01.2006" // DD.MM.YYYY
	TimeLayout = "15:04"      // HH:MM, 24h
)
