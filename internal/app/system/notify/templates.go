// internal/app/system/notify/templates.go
package notify

import "fmt"

// ReminderTitle is the fixed title of a fridge reminder.
const ReminderTitle = "Food Journal Reminder"

// ReminderData holds data for the reminder template.
type ReminderData struct {
	Token      string
	TargetName string
	SenderName string
	GroupID    string
}

// BuildReminder creates the push message asking TargetName to put food away.
func BuildReminder(data ReminderData) Message {
	return Message{
		Token: data.Token,
		Title: ReminderTitle,
		Body:  fmt.Sprintf("Hi %s, remember to put the food in the fridge!", data.TargetName),
		Data: map[string]string{
			"type":     "reminder",
			"group_id": data.GroupID,
			"sender":   data.SenderName,
		},
	}
}
