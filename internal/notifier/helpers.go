package notifier

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anonto42/nano-midea/notifier/internal/models"
)

const previewLimit = 100

// NotifyNewMessage tells userID that senderName wrote in a conversation.
func (d *Dispatcher) NotifyNewMessage(ctx context.Context, userID, senderName, preview, conversationID string) (*models.DispatchResult, error) {
	return d.Notify(ctx, userID, models.Notification{
		Title: fmt.Sprintf("New message from %s", senderName),
		Body:  truncate(preview, previewLimit),
		URL:   d.link("/messages/" + conversationID),
		Tag:   "message-" + conversationID,
		Data:  map[string]any{"type": "new_message", "conversationId": conversationID},
	})
}

// NotifyAppointmentConfirmed tells userID their appointment is booked.
func (d *Dispatcher) NotifyAppointmentConfirmed(ctx context.Context, userID string, startsAt time.Time, appointmentID string) (*models.DispatchResult, error) {
	return d.Notify(ctx, userID, models.Notification{
		Title: "Appointment confirmed",
		Body:  fmt.Sprintf("Your appointment on %s is confirmed.", startsAt.Format("Mon, Jan 2 at 15:04")),
		URL:   d.link("/appointments/" + appointmentID),
		Tag:   "appointment-" + appointmentID,
		Data:  map[string]any{"type": "appointment_confirmed", "appointmentId": appointmentID},
	})
}

// NotifyNewConsultation tells a practitioner a patient requested a consultation.
func (d *Dispatcher) NotifyNewConsultation(ctx context.Context, userID, patientName, consultationID string) (*models.DispatchResult, error) {
	return d.Notify(ctx, userID, models.Notification{
		Title: "New consultation request",
		Body:  fmt.Sprintf("%s requested a consultation.", patientName),
		URL:   d.link("/consultations/" + consultationID),
		Tag:   "consultation-" + consultationID,
		Data:  map[string]any{"type": "new_consultation", "consultationId": consultationID},
	})
}

func (d *Dispatcher) link(path string) string {
	if d.baseURL == "" {
		return path
	}
	return strings.TrimSuffix(d.baseURL, "/") + path
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-1]) + "…"
}
