package notification

import (
	"fmt"
	"strings"
)

// Subject returns the email subject for a template key.
func Subject(templateKey string, hoursRemaining int) string {
	if strings.HasSuffix(templateKey, "_expired") {
		return "Intake Expired - Action Required"
	}
	if strings.HasPrefix(templateKey, string(RoleAttorney)) {
		return fmt.Sprintf("Attorney Confirmation Reminder - %dh Remaining", hoursRemaining)
	}
	return fmt.Sprintf("Intake Confirmation Reminder - %dh Remaining", hoursRemaining)
}

// Body returns the email body for a template key.
func Body(templateKey string, hoursRemaining int) string {
	if strings.HasSuffix(templateKey, "_expired") {
		return "<h1>Intake Expired</h1>" +
			"<p>The confirmation window has expired. All client intake data has been " +
			"permanently deleted and the intake process must be restarted.</p>"
	}
	if strings.HasPrefix(templateKey, string(RoleAttorney)) {
		return fmt.Sprintf("<h1>Attorney Confirmation Reminder</h1>"+
			"<p>You have <strong>%d hours</strong> remaining to confirm this intake. "+
			"If you do not confirm within this window, all intake data will be "+
			"permanently deleted.</p>", hoursRemaining)
	}
	return fmt.Sprintf("<h1>Intake Confirmation Reminder</h1>"+
		"<p>Your attorney has <strong>%d hours</strong> remaining to confirm your "+
		"intake. If your attorney does not confirm within this window, all intake "+
		"data will be permanently deleted and you will need to restart the intake "+
		"process.</p>", hoursRemaining)
}
