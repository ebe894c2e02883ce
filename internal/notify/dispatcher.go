package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"parkgate-service/internal/domain/parking"
)

// Dispatcher renders alert emails and hands them to the mailer. It carries
// no dedup state of its own: callers decide what is due, the dispatcher
// only sends.
type Dispatcher struct {
	mailer Mailer
	log    zerolog.Logger
}

func NewDispatcher(mailer Mailer, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		mailer: mailer,
		log:    log,
	}
}

// DispatchAlert sends the correct/wrong parking notification for an alert.
func (d *Dispatcher) DispatchAlert(ctx context.Context, to string, alert parking.Alert) error {
	var subject, text, html string

	switch alert.Key.Classification {
	case parking.ClassCorrect:
		subject, text, html = correctParkingEmail(alert)
	case parking.ClassWrong:
		subject, text, html = wrongParkingEmail(alert)
	default:
		return fmt.Errorf("no notification defined for classification %q", alert.Key.Classification)
	}

	return d.mailer.Send(ctx, to, subject, text, html)
}

// DispatchExitConfirmation sends the two-link approve/deny email for a
// pending exit.
func (d *Dispatcher) DispatchExitConfirmation(ctx context.Context, to, plate, yesURL, noURL string, expires time.Duration) error {
	subject := fmt.Sprintf("Exit Confirmation Required - Vehicle %s", plate)

	text := fmt.Sprintf(`Hello,

Your vehicle (license plate %s) has been detected at the exit gate.

Please confirm if you want to exit the parking:

To ALLOW EXIT, click: %s
To DENY EXIT, click: %s

This request will expire in %s for security purposes.

If you didn't request to exit, please click the DENY link or ignore this email.

Urban Park Management Team
`, plate, yesURL, noURL, formatMinutes(expires))

	html := fmt.Sprintf(`<html><body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
<h2 style="background-color: #2196F3; color: white; padding: 16px; text-align: center;">Exit Confirmation Required</h2>
<p>Your vehicle has been detected at the exit gate and is requesting to leave the parking area.</p>
<p style="text-align: center; font-size: 24px; font-weight: bold; color: #1976d2;">%s</p>
<p style="text-align: center;">
  <a href="%s" style="display: inline-block; padding: 14px 28px; margin: 8px; background-color: #4CAF50; color: white; text-decoration: none; border-radius: 8px; font-weight: bold;">YES - Open Gate</a>
  <a href="%s" style="display: inline-block; padding: 14px 28px; margin: 8px; background-color: #f44336; color: white; text-decoration: none; border-radius: 8px; font-weight: bold;">NO - Keep Closed</a>
</p>
<p style="background-color: #fff3e0; border-left: 4px solid #ff9800; padding: 12px;">
This request expires in %s. If you didn't request to exit, click NO immediately.</p>
</body></html>`, plate, yesURL, noURL, formatMinutes(expires))

	return d.mailer.Send(ctx, to, subject, text, html)
}

func correctParkingEmail(alert parking.Alert) (subject, text, html string) {
	ts := alert.ObservedAt.Format("2006-01-02 15:04:05")
	subject = "Parking Confirmation - Correct Spot"
	text = fmt.Sprintf(`Dear Customer,

Your vehicle %s has been successfully parked in the correct spot (Slot %d).

Parking Details:
- Vehicle Number: %s
- Slot Number: %d
- Time: %s
- Status: Correctly Parked

Thank you for using our smart parking system!

Urban Park Management Team
`, alert.Key.Plate, alert.Key.Slot, alert.Key.Plate, alert.Key.Slot, ts)

	html = fmt.Sprintf(`<html><body style="font-family: Arial, sans-serif;">
<h2 style="color: #28a745;">Parking Confirmation</h2>
<p>Your vehicle <strong>%s</strong> has been successfully parked in the correct spot.</p>
<ul>
  <li><strong>Slot Number:</strong> %d</li>
  <li><strong>Time:</strong> %s</li>
  <li><strong>Status:</strong> <span style="color: #28a745;">Correctly Parked</span></li>
</ul>
<p>Thank you for using our smart parking system!</p>
</body></html>`, alert.Key.Plate, alert.Key.Slot, ts)

	return subject, text, html
}

func wrongParkingEmail(alert parking.Alert) (subject, text, html string) {
	ts := alert.ObservedAt.Format("2006-01-02 15:04:05")

	var situation, action, bookedSlot string
	if alert.HasBookedSlot {
		situation = fmt.Sprintf("You have booked Slot %d but parked in Slot %d", alert.BookedSlot, alert.Key.Slot)
		action = fmt.Sprintf("Please move your vehicle from Slot %d to your booked Slot %d immediately.", alert.Key.Slot, alert.BookedSlot)
		bookedSlot = fmt.Sprintf("Slot %d", alert.BookedSlot)
	} else {
		situation = fmt.Sprintf("You are parked in Slot %d which is not your booked slot", alert.Key.Slot)
		action = "Please check your booking and move to your correct assigned slot immediately."
		bookedSlot = "Please check your booking"
	}

	subject = "Wrong Parking Alert - Please Move Your Vehicle"
	text = fmt.Sprintf(`Dear Customer,

URGENT ALERT: %s!

Parking Details:
- Your Vehicle Number: %s
- Currently Parked In: Slot %d
- Your Booked Slot: %s
- Slot %d is reserved for: %s
- Time: %s
- Status: Wrong Parking

IMMEDIATE ACTION REQUIRED:
%s

Failure to move your vehicle may result in parking penalties or towing charges.

Urban Park Management Team
`, situation, alert.Key.Plate, alert.Key.Slot, bookedSlot, alert.Key.Slot, alert.Expected, ts, action)

	html = fmt.Sprintf(`<html><body style="font-family: Arial, sans-serif;">
<h2 style="color: #dc3545;">Wrong Parking Alert</h2>
<p><strong style="color: #dc3545;">URGENT ALERT:</strong> %s!</p>
<ul>
  <li><strong>Your Vehicle Number:</strong> %s</li>
  <li><strong>Currently Parked In:</strong> Slot %d</li>
  <li><strong>Your Booked Slot:</strong> %s</li>
  <li><strong>Slot %d is reserved for:</strong> %s</li>
  <li><strong>Time:</strong> %s</li>
</ul>
<p style="background-color: #fff3cd; padding: 12px;">%s</p>
<p>Failure to move your vehicle may result in parking penalties or towing charges.</p>
</body></html>`, situation, alert.Key.Plate, alert.Key.Slot, bookedSlot, alert.Key.Slot, alert.Expected, ts, action)

	return subject, text, html
}

func formatMinutes(d time.Duration) string {
	if d >= time.Minute && d%time.Minute == 0 {
		return fmt.Sprintf("%d minutes", int(d.Minutes()))
	}
	return d.String()
}
