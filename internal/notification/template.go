package notification

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"cinebook/pkg/model"
)

var emailTemplate = template.Must(template.New("booking").Parse(`<html><body>
<h2>{{.Heading}}</h2>
<p>Booking reference: <strong>{{.BookingID}}</strong></p>
<p>Showtime: {{.Showtime}}</p>
<p>Seats: {{.Seats}}</p>
<p>Total: {{.Total}}</p>
{{if .Cancelled}}<p>Your seats have been released.</p>{{else}}<p>Please arrive 15 minutes before the show.</p>{{end}}
</body></html>`))

type emailData struct {
	Heading   string
	BookingID string
	Showtime  string
	Seats     string
	Total     string
	Cancelled bool
}

// Render builds the email for a notification. Unknown kinds are an error.
func Render(n model.BookingNotification) (Email, error) {
	data := emailData{
		BookingID: n.BookingID,
		Showtime:  n.ShowStart.UTC().Format(time.RFC1123),
		Seats:     seatList(n.Seats),
		Total:     fmt.Sprintf("%.2f %s", n.TotalAmount, strings.ToUpper(n.Currency)),
	}

	var subject string
	switch n.Kind {
	case model.NotificationBookingConfirmed:
		subject = "Booking confirmed #" + n.BookingID
		data.Heading = "Your booking is confirmed"
	case model.NotificationBookingCancelled:
		subject = "Booking cancelled #" + n.BookingID
		data.Heading = "Your booking was cancelled"
		data.Cancelled = true
	default:
		return Email{}, fmt.Errorf("unknown notification kind %q", n.Kind)
	}

	var body bytes.Buffer
	if err := emailTemplate.Execute(&body, data); err != nil {
		return Email{}, fmt.Errorf("failed to render email: %w", err)
	}
	return Email{To: n.Email, Subject: subject, HTML: body.String()}, nil
}

func seatList(seats []model.BookedSeat) string {
	parts := make([]string, 0, len(seats))
	for _, s := range seats {
		parts = append(parts, fmt.Sprintf("%s (%s)", s.SeatID, s.Tier))
	}
	return strings.Join(parts, ", ")
}
