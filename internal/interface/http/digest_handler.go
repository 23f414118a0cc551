package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-weather-digest/internal/application"
	"github.com/oksasatya/go-weather-digest/pkg/response"
)

// DigestRunner is the part of the digest service the handler triggers.
type DigestRunner interface {
	RunOnce(ctx context.Context) (application.DigestReport, error)
}

type DigestHandler struct {
	Digest    DigestRunner
	Operators map[int64]struct{}
	Logger    *logrus.Logger
}

// NewDigestHandler allows only the operator ids to trigger runs; with none,
// the endpoint answers 403 to everyone.
func NewDigestHandler(digest DigestRunner, operators []int64, logger *logrus.Logger) *DigestHandler {
	ops := make(map[int64]struct{}, len(operators))
	for _, id := range operators {
		ops[id] = struct{}{}
	}
	return &DigestHandler{Digest: digest, Operators: ops, Logger: logger}
}

// Run POST /api/digest/run starts a dispatch in the background and returns 202.
// A run mails every subscriber, so it is restricted to operators.
func (h *DigestHandler) Run(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	if _, allowed := h.Operators[uid]; !allowed {
		if h.Logger != nil {
			h.Logger.WithField("user_id", uid).Warn("digest trigger refused")
		}
		response.Error[any](c, http.StatusForbidden, "forbidden", nil)
		return
	}
	ctx := context.WithoutCancel(c.Request.Context())
	requestID := c.GetString("request_id")
	go func() {
		report, err := h.Digest.RunOnce(ctx)
		if h.Logger == nil {
			return
		}
		entry := h.Logger.WithFields(logrus.Fields{"triggered_by": uid, "request_id": requestID})
		switch {
		case errors.Is(err, application.ErrDigestInProgress):
			entry.Info("manual digest skipped; a run is in progress")
		case err != nil:
			entry.WithError(err).Error("manual digest run failed")
		default:
			entry.WithField("sent", report.Sent).Info("manual digest run finished")
		}
	}()
	response.Success[any](c, http.StatusAccepted, map[string]any{"started": true}, "digest run started", nil)
}
