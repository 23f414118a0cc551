package mailer

// EmailJob is the JSON payload put on the RabbitMQ queue for sending email.
// Bodies are rendered before publishing; the worker only delivers.
type EmailJob struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text,omitempty"`
	HTML    string `json:"html,omitempty"`
	Kind    string `json:"kind,omitempty"` // e.g. "digest", "confirm_email"; used for logging only
}
