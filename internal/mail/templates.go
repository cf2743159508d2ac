package mail

import (
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/example/meetapp/internal/domain"
)

var subscriptionCreatedBody = template.Must(template.New("subscription_created").Parse(
	`Hi {{.Recipient.Name}},

{{.Subscriber.Name}} ({{.Subscriber.Email}}) just subscribed to your meetup "{{.Meetup.Title}}"
on {{.Meetup.StartTime.Format "Mon, 02 Jan 2006 at 15:04 MST"}}.

See you there!
`))

var meetupCancelledBody = template.Must(template.New("meetup_cancelled").Parse(
	`Hi {{.Recipient.Name}},

The meetup "{{.Meetup.Title}}"{{if .Meetup.Location}} at {{.Meetup.Location}}{{end}}, scheduled
for {{.Meetup.StartTime.Format "Mon, 02 Jan 2006 at 15:04 MST"}}, was cancelled by
{{.Meetup.OrganizerName}}. Your subscription has been removed.
`))

// Render turns a notification job into a deliverable message. A job that
// cannot be rendered is malformed and must go straight to the dead letters,
// so every failure here is permanent.
func Render(job *domain.NotificationJob) (Message, error) {
	if job.Recipient.Email == "" {
		return Message{}, Permanent(errors.New("job has no recipient email"))
	}

	msg := Message{
		To:     job.Recipient.Email,
		ToName: job.Recipient.Name,
	}

	switch job.Kind {
	case domain.JobSubscriptionCreated:
		if job.Subscriber == nil {
			return Message{}, Permanent(errors.New("subscription_created job has no subscriber snapshot"))
		}
		msg.Subject = fmt.Sprintf("[%s] New subscription", job.Meetup.Title)
		body, err := render(subscriptionCreatedBody, job)
		if err != nil {
			return Message{}, err
		}
		msg.Body = body

	case domain.JobMeetupCancelled:
		msg.Subject = fmt.Sprintf("[%s] Meetup cancelled", job.Meetup.Title)
		body, err := render(meetupCancelledBody, job)
		if err != nil {
			return Message{}, err
		}
		msg.Body = body

	default:
		return Message{}, Permanent(fmt.Errorf("unknown job kind %q", job.Kind))
	}

	return msg, nil
}

func render(t *template.Template, job *domain.NotificationJob) (string, error) {
	var b strings.Builder
	if err := t.Execute(&b, job); err != nil {
		return "", Permanent(fmt.Errorf("rendering %s: %w", t.Name(), err))
	}
	return b.String(), nil
}
