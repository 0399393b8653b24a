package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/nba-highlights/frame-splitter/internal/dispatcher"
)

type submission struct {
	key  string
	task dispatcher.Task
}

type fakeDispatcher struct {
	err         error
	submissions []submission
	records     map[string]dispatcher.Record
}

func (d *fakeDispatcher) Submit(key string, task dispatcher.Task) error {
	if key == "" {
		return dispatcher.ErrEmptyKey
	}
	if d.err != nil {
		return d.err
	}
	d.submissions = append(d.submissions, submission{key, task})
	return nil
}

func (d *fakeDispatcher) Snapshot(key string) (dispatcher.Record, bool) {
	rec, ok := d.records[key]
	return rec, ok
}

type fakePipeline struct {
	frameCount int
	err        error
	runs       int
}

func (p *fakePipeline) Process(ctx context.Context, bucket, objectKey, jobKey string) (int, error) {
	p.runs++
	return p.frameCount, p.err
}

// objectCreatedBody builds the SNS envelope around an object created event.
func objectCreatedBody(t *testing.T, detailType, bucket, key string) string {
	t.Helper()

	msg := map[string]any{
		"detail-type": detailType,
		"detail": map[string]any{
			"bucket": map[string]string{"name": bucket},
			"object": map[string]string{"key": key},
		},
	}
	inner, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal message: %v", err)
	}
	outer, err := json.Marshal(map[string]string{"Message": string(inner)})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return string(outer)
}

func postSplit(h *Handler, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/split-full-match-video", strings.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.SplitFullMatchVideo(rr, req)
	return rr
}

func TestSplitAccepted(t *testing.T) {
	d := &fakeDispatcher{}
	h := New(d, &fakePipeline{frameCount: 3})

	rr := postSplit(h, objectCreatedBody(t, "Object Created", "match-videos", "game1.mp4"), nil)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d; body %s", rr.Code, http.StatusAccepted, rr.Body)
	}

	if len(d.submissions) != 1 {
		t.Fatalf("got %d submissions, want 1", len(d.submissions))
	}
	if d.submissions[0].key != "game1" {
		t.Fatalf("submitted job key %q, want game1", d.submissions[0].key)
	}
}

func TestSplitDuplicate(t *testing.T) {
	d := &fakeDispatcher{err: dispatcher.ErrAlreadyRunning}
	h := New(d, &fakePipeline{})

	rr := postSplit(h, objectCreatedBody(t, "Object Created", "match-videos", "game1.mp4"), nil)
	if rr.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusConflict)
	}
}

func TestSplitMalformedEnvelope(t *testing.T) {
	h := New(&fakeDispatcher{}, &fakePipeline{})

	rr := postSplit(h, "{not json", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestSplitMalformedMessage(t *testing.T) {
	h := New(&fakeDispatcher{}, &fakePipeline{})

	rr := postSplit(h, `{"Message": "{not json"}`, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestSplitMissingBucketName(t *testing.T) {
	d := &fakeDispatcher{}
	h := New(d, &fakePipeline{})

	rr := postSplit(h, objectCreatedBody(t, "Object Created", "", "game1.mp4"), nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
	if len(d.submissions) != 0 {
		t.Fatal("job submitted despite invalid event")
	}
}

func TestSplitOtherDetailTypeIsNoOp(t *testing.T) {
	d := &fakeDispatcher{}
	h := New(d, &fakePipeline{})

	rr := postSplit(h, objectCreatedBody(t, "Object Deleted", "match-videos", "game1.mp4"), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	if len(d.submissions) != 0 {
		t.Fatal("job submitted for a detail type other than Object Created")
	}
}

func TestSubscriptionConfirmation(t *testing.T) {
	hits := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer ts.Close()

	d := &fakeDispatcher{}
	h := New(d, &fakePipeline{})

	body, _ := json.Marshal(map[string]string{"SubscribeURL": ts.URL})
	rr := postSplit(h, string(body), map[string]string{snsMessageTypeHeader: "SubscriptionConfirmation"})

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	if hits != 1 {
		t.Fatalf("SubscribeURL fetched %d times, want 1", hits)
	}
	if len(d.submissions) != 0 {
		t.Fatal("confirmation request submitted a job")
	}
}

func TestSubscriptionConfirmationFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer ts.Close()

	h := New(&fakeDispatcher{}, &fakePipeline{})

	body, _ := json.Marshal(map[string]string{"SubscribeURL": ts.URL})
	rr := postSplit(h, string(body), map[string]string{snsMessageTypeHeader: "SubscriptionConfirmation"})

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusInternalServerError)
	}
}

func TestJobStatus(t *testing.T) {
	d := &fakeDispatcher{
		records: map[string]dispatcher.Record{
			"game1": {Key: "game1", State: dispatcher.StateCompleted, FrameCount: 42},
			"game2": {Key: "game2", State: dispatcher.StateCompleted, Err: errors.New("video decode failed")},
		},
	}
	h := New(d, &fakePipeline{})

	r := chi.NewRouter()
	r.Get("/split-jobs/{jobKey}", h.JobStatus)

	tests := []struct {
		key        string
		wantCode   int
		wantState  string
		wantFrames int
		wantErr    string
	}{
		{key: "game1", wantCode: http.StatusOK, wantState: "completed", wantFrames: 42},
		{key: "game2", wantCode: http.StatusOK, wantState: "completed", wantErr: "video decode failed"},
		{key: "unknown", wantCode: http.StatusNotFound},
	}

	for _, tt := range tests {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/split-jobs/"+tt.key, nil))

		if rr.Code != tt.wantCode {
			t.Errorf("GET %s: status = %d, want %d", tt.key, rr.Code, tt.wantCode)
			continue
		}
		if tt.wantCode != http.StatusOK {
			continue
		}

		var resp jobStatusResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Errorf("GET %s: bad body: %v", tt.key, err)
			continue
		}
		if resp.State != tt.wantState || resp.FrameCount != tt.wantFrames || resp.Error != tt.wantErr {
			t.Errorf("GET %s: response %+v", tt.key, resp)
		}
	}
}

func TestHelloWorld(t *testing.T) {
	h := New(&fakeDispatcher{}, &fakePipeline{})

	rr := httptest.NewRecorder()
	h.HelloWorld(rr, httptest.NewRequest(http.MethodGet, "/hello-world", nil))

	if rr.Code != http.StatusOK || rr.Body.String() != "Hello World" {
		t.Fatalf("got %d %q, want 200 Hello World", rr.Code, rr.Body.String())
	}
}
