package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/nba-highlights/frame-splitter/internal/dispatcher"
	"github.com/nba-highlights/frame-splitter/internal/splitter"
)

const snsMessageTypeHeader = "x-amz-sns-message-type"

// detailTypeObjectCreated is the only event detail type that triggers a run;
// every other detail type is acknowledged without processing.
const detailTypeObjectCreated = "Object Created"

type Dispatcher interface {
	Submit(key string, task dispatcher.Task) error
	Snapshot(key string) (dispatcher.Record, bool)
}

type Pipeline interface {
	Process(ctx context.Context, bucket, objectKey, jobKey string) (int, error)
}

type Handler struct {
	dispatcher Dispatcher
	pipeline   Pipeline
	validator  *validator.Validate
	httpClient *http.Client
}

func New(d Dispatcher, p Pipeline) *Handler {
	return &Handler{
		dispatcher: d,
		pipeline:   p,
		validator:  validator.New(),
		httpClient: http.DefaultClient,
	}
}

// SplitFullMatchVideo accepts the object-created notification and hands the
// splitting job to the dispatcher. The pipeline never runs on the request
// path: the caller only ever observes accepted, duplicate or malformed.
func (h *Handler) SplitFullMatchVideo(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSONError(w, "failed to read request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	var env snsEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if r.Header.Get(snsMessageTypeHeader) == "SubscriptionConfirmation" {
		h.confirmSubscription(w, r, env)
		return
	}

	log.Printf("[handler] received event: %s", body)

	var msg objectCreatedMessage
	if err := json.Unmarshal([]byte(env.Message), &msg); err != nil {
		writeJSONError(w, "invalid message payload: "+err.Error(), http.StatusBadRequest)
		return
	}

	if msg.DetailType != detailTypeObjectCreated {
		writeJSON(w, http.StatusOK, map[string]string{"message": "nothing to process"})
		return
	}

	if err := h.validator.Struct(msg); err != nil {
		writeJSONError(w, "invalid object created event: "+err.Error(), http.StatusBadRequest)
		return
	}

	bucket := msg.Detail.Bucket.Name
	objectKey := msg.Detail.Object.Key
	jobKey := splitter.JobKey(objectKey)

	// The request context dies with this response; the job runs on its own.
	task := func() (int, error) {
		return h.pipeline.Process(context.Background(), bucket, objectKey, jobKey)
	}

	switch err := h.dispatcher.Submit(jobKey, task); {
	case err == nil:
		log.Printf("[handler] accepted job %q for object %q in bucket %q", jobKey, objectKey, bucket)
		writeJSON(w, http.StatusAccepted, map[string]string{"message": "processing started", "job_key": jobKey})
	case errors.Is(err, dispatcher.ErrAlreadyRunning):
		writeJSONError(w, "job "+jobKey+" is already running", http.StatusConflict)
	default:
		writeJSONError(w, err.Error(), http.StatusBadRequest)
	}
}

// JobStatus reports the dispatcher's record for one job key.
func (h *Handler) JobStatus(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "jobKey")

	rec, ok := h.dispatcher.Snapshot(key)
	if !ok {
		writeJSONError(w, "no job with key "+key, http.StatusNotFound)
		return
	}

	resp := jobStatusResponse{
		Key:        rec.Key,
		State:      rec.State.String(),
		FrameCount: rec.FrameCount,
	}
	if rec.Err != nil {
		resp.Error = rec.Err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) HelloWorld(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte("Hello World"))
}

// confirmSubscription completes the SNS handshake by fetching the
// SubscribeURL from the confirmation request.
func (h *Handler) confirmSubscription(w http.ResponseWriter, r *http.Request, env snsEnvelope) {
	log.Printf("[handler] got request for confirming subscription")

	if env.SubscribeURL == "" {
		writeJSONError(w, "confirmation request without SubscribeURL", http.StatusBadRequest)
		return
	}

	log.Printf("[handler] going to URL %s to confirm the subscription", env.SubscribeURL)
	resp, err := h.httpClient.Get(env.SubscribeURL)
	if err != nil {
		writeJSONError(w, "failed to confirm subscription: "+err.Error(), http.StatusInternalServerError)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("[handler] failed to confirm subscription, code %d", resp.StatusCode)
		writeJSONError(w, "failed to confirm subscription", http.StatusInternalServerError)
		return
	}

	log.Printf("[handler] subscription confirmed")
	writeJSON(w, http.StatusOK, map[string]string{"message": "SubscriptionConfirmed"})
}
