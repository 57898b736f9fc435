// Package ics renders the booked appointments as an iCalendar feed so they
// can be subscribed to from ordinary calendar clients.
package ics

import (
	ical "github.com/arran4/golang-ical"

	"apptbook/internal/domain"
)

// Feed serializes the given appointments as a VCALENDAR document. Each
// appointment becomes one VEVENT with the scheduler as organizer and the
// participants as attendees.
func Feed(appointments []domain.Appointment) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//apptbook//appointments//EN")

	for _, a := range appointments {
		ev := cal.AddEvent(a.ID.String())
		ev.SetDtStampTime(a.UpdatedAt.UTC())
		ev.SetStartAt(a.StartAt.UTC())
		ev.SetEndAt(a.EndAt.UTC())
		ev.SetSummary(a.Title)
		ev.SetDescription(a.Description)
		if a.SchedulerEmail != "" {
			ev.SetOrganizer("mailto:"+a.SchedulerEmail, ical.WithCN(a.SchedulerName))
		}
		for _, p := range a.Participants {
			ev.AddAttendee(p.Email, ical.WithCN(p.Name))
		}
	}

	return cal.Serialize()
}
