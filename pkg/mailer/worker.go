package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrBadJob marks a queued message that can never be delivered; it should be
// dropped rather than requeued.
var ErrBadJob = errors.New("bad email job")

// Deliver decodes one queued EmailJob and sends it through s.
func Deliver(ctx context.Context, s Sender, body []byte) (EmailJob, error) {
	var job EmailJob
	if err := json.Unmarshal(body, &job); err != nil {
		return job, fmt.Errorf("%w: %v", ErrBadJob, err)
	}
	if strings.TrimSpace(job.To) == "" {
		return job, fmt.Errorf("%w: missing recipient", ErrBadJob)
	}
	if job.Text == "" && job.HTML == "" {
		return job, fmt.Errorf("%w: empty body", ErrBadJob)
	}

	c, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := s.Send(c, job.To, job.Subject, job.Text, job.HTML); err != nil {
		return job, fmt.Errorf("send %s email: %w", job.Kind, err)
	}
	return job, nil
}
