// Package notify renders notification emails and drives a single
// recipient's delivery through the provider with retries.
package notify

import (
	"bytes"
	"embed"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
)

//go:embed templates/*
var templateFS embed.FS

var (
	htmlTemplates = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/*.html"))
	textTemplates = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/*.txt"))
)

const (
	// AlertSubject is the fixed subject line of every emergency alert.
	AlertSubject = "🚨 EMERGENCY ALERT from Health Mate"

	reminderSubjectPrefix = "Medication Reminder: "

	defaultSender  = "A Health Mate user"
	defaultClosing = "the sender"
)

// Notification is a rendered email ready to hand to a provider.
type Notification struct {
	Subject string
	HTML    string
	Text    string
}

// AlertContent carries the user-supplied fields of an emergency alert.
// Empty strings mean the field is absent.
type AlertContent struct {
	Message    string
	Location   string
	SenderName string
}

type alertView struct {
	ContactName string
	Sender      string
	Closing     string
	Message     string
	Location    string
}

// RenderAlert renders the emergency alert for one contact. It is pure and
// cannot fail. Every user-supplied field is HTML-escaped in the HTML body.
func RenderAlert(c AlertContent, contactName string) Notification {
	sender := strings.TrimSpace(c.SenderName)
	view := alertView{
		ContactName: strings.TrimSpace(contactName),
		Sender:      sender,
		Closing:     sender,
		Message:     strings.TrimSpace(c.Message),
		Location:    strings.TrimSpace(c.Location),
	}
	if sender == "" {
		view.Sender = defaultSender
		view.Closing = defaultClosing
	}

	return Notification{
		Subject: AlertSubject,
		HTML:    executeHTML("alert.html", view),
		Text:    executeText("alert.txt", view),
	}
}

// ReminderContent carries the fields of a medication reminder.
type ReminderContent struct {
	MedicineName string
	Dosage       string
	TimeOfDay    string
}

// RenderReminder renders a medication reminder email.
func RenderReminder(r ReminderContent) Notification {
	view := ReminderContent{
		MedicineName: strings.TrimSpace(r.MedicineName),
		Dosage:       strings.TrimSpace(r.Dosage),
		TimeOfDay:    strings.TrimSpace(r.TimeOfDay),
	}
	return Notification{
		Subject: reminderSubjectPrefix + singleLine(view.MedicineName),
		HTML:    executeHTML("reminder.html", view),
		Text:    executeText("reminder.txt", view),
	}
}

// singleLine collapses whitespace, including line breaks, so user input
// cannot add header lines when placed in a subject.
func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Templates are parsed at init and only ever executed against the view
// structs above, so execution into a bytes.Buffer cannot fail.
func executeHTML(name string, data any) string {
	var buf bytes.Buffer
	_ = htmlTemplates.ExecuteTemplate(&buf, name, data)
	return buf.String()
}

func executeText(name string, data any) string {
	var buf bytes.Buffer
	_ = textTemplates.ExecuteTemplate(&buf, name, data)
	return buf.String()
}
