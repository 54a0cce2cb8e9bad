package services

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// PipelineTrigger pokes the downstream transcription/analysis service after
// a recording is created. Strictly fire-and-forget: the session is already
// merged when this runs, and an unprocessed recording can be picked up by a
// later reconciliation, so failures are only logged.
type PipelineTrigger interface {
	Trigger(recordingID string)
}

type httpPipelineTrigger struct {
	endpoint string
	httpc    *http.Client
	log      *logrus.Logger
}

func NewHTTPPipelineTrigger(endpoint string, log *logrus.Logger) PipelineTrigger {
	if log == nil {
		log = logrus.New()
	}
	return &httpPipelineTrigger{
		endpoint: endpoint,
		httpc:    &http.Client{Timeout: 30 * time.Second},
		log:      log,
	}
}

func (t *httpPipelineTrigger) Trigger(recordingID string) {
	if t.endpoint == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	payload, _ := json.Marshal(map[string]string{"recording_id": recordingID})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(payload))
	if err != nil {
		t.log.WithError(err).WithField("recording_id", recordingID).Warn("pipeline trigger request build failed")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpc.Do(req)
	if err != nil {
		t.log.WithError(err).WithField("recording_id", recordingID).Warn("pipeline trigger failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		t.log.WithFields(logrus.Fields{
			"recording_id": recordingID,
			"status":       resp.StatusCode,
		}).Warn("pipeline trigger rejected")
	}
}
