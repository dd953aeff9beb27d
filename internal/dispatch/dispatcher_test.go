package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pybill/pbdash/internal/envelope"
	"github.com/pybill/pbdash/internal/notify"
)

type shown struct {
	text     string
	category notify.Category
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []shown
	// order records callback/notification interleaving.
	order *[]string
}

func (r *recordingNotifier) Show(text string, category notify.Category) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, shown{text, category})
	if r.order != nil {
		*r.order = append(*r.order, "notify")
	}
}

func (r *recordingNotifier) snapshot() []shown {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]shown(nil), r.events...)
}

func newFakeAPI(t *testing.T) *httptest.Server {
	t.Helper()
	r := mux.NewRouter()
	write := func(w http.ResponseWriter, status int, body string) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
	r.HandleFunc("/ajax/ok", func(w http.ResponseWriter, _ *http.Request) {
		write(w, http.StatusOK, `{"success": true, "value": {"n": 7}}`)
	})
	r.HandleFunc("/ajax/ok-message", func(w http.ResponseWriter, _ *http.Request) {
		write(w, http.StatusOK, `{"success": true, "value": [1], "message": "Stored to bookmark.yml."}`)
	})
	r.HandleFunc("/ajax/fail", func(w http.ResponseWriter, _ *http.Request) {
		write(w, http.StatusOK, `{"success": false, "message": "Need to log in.", "value": {"ignored": true}}`)
	})
	r.HandleFunc("/ajax/fail-legacy", func(w http.ResponseWriter, _ *http.Request) {
		write(w, http.StatusOK, `{"success": false, "errmsg": "legacy failure"}`)
	})
	r.HandleFunc("/ajax/absent", func(w http.ResponseWriter, _ *http.Request) {
		write(w, http.StatusOK, `{"value": {"n": 1}, "message": "ignored"}`)
	})
	r.HandleFunc("/ajax/garbage", func(w http.ResponseWriter, _ *http.Request) {
		write(w, http.StatusOK, `{not-json`)
	})
	r.HandleFunc("/ajax/boom", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	})
	r.HandleFunc("/ajax/fail-400", func(w http.ResponseWriter, _ *http.Request) {
		write(w, http.StatusBadRequest, `{"success": false, "message": "Invalid or Need Parameters"}`)
	})
	r.HandleFunc("/ajax/success-500", func(w http.ResponseWriter, _ *http.Request) {
		write(w, http.StatusInternalServerError, `{"success": true, "value": 1, "message": "stored"}`)
	})
	r.HandleFunc("/ajax/gateway", func(w http.ResponseWriter, _ *http.Request) {
		write(w, http.StatusBadGateway, `{"error": "upstream down"}`)
	})
	r.HandleFunc("/ajax/huge", func(w http.ResponseWriter, _ *http.Request) {
		write(w, http.StatusOK, `{"success": true, "value": "`+strings.Repeat("a", maxBodyBytes)+`"}`)
	})
	r.HandleFunc("/ajax/echo", func(w http.ResponseWriter, req *http.Request) {
		body, _ := io.ReadAll(req.Body)
		resp := map[string]any{
			"success": true,
			"value": map[string]string{
				"method":       req.Method,
				"body":         string(body),
				"content_type": req.Header.Get("Content-Type"),
				"accept":       req.Header.Get("Accept"),
				"request_id":   req.Header.Get("X-Request-ID"),
				"user_agent":   req.Header.Get("User-Agent"),
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func newTestDispatcher(t *testing.T, srv *httptest.Server, opts Options) (*Dispatcher, *recordingNotifier) {
	t.Helper()
	n := &recordingNotifier{}
	opts.BaseURL = srv.URL
	d, err := New(n, opts)
	require.NoError(t, err)
	return d, n
}

func wait(t *testing.T, p *Pending) Outcome {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	out, err := p.Wait(ctx)
	require.NoError(t, err)
	return out
}

func TestDispatch_SuccessInvokesCallbackOnce(t *testing.T) {
	srv := newFakeAPI(t)
	d, n := newTestDispatcher(t, srv, Options{})

	var calls int
	var got json.RawMessage
	out := wait(t, d.Dispatch(context.Background(), Request{
		Verb: http.MethodGet,
		URL:  "/ajax/ok",
		OnSuccess: func(v json.RawMessage) {
			calls++
			got = v
		},
	}))

	assert.Equal(t, 1, calls)
	assert.JSONEq(t, `{"n": 7}`, string(got))
	assert.True(t, out.Called)
	assert.NoError(t, out.Err)
	assert.Empty(t, n.snapshot(), "no message means no notification")
}

func TestDispatch_SuccessWithMessageNotifiesAfterCallback(t *testing.T) {
	srv := newFakeAPI(t)
	var order []string
	n := &recordingNotifier{order: &order}
	d, err := New(n, Options{BaseURL: srv.URL})
	require.NoError(t, err)

	wait(t, d.Dispatch(context.Background(), Request{
		Verb:      http.MethodPost,
		URL:       "/ajax/ok-message",
		OnSuccess: func(json.RawMessage) { order = append(order, "callback") },
	}))

	assert.Equal(t, []string{"callback", "notify"}, order)
	assert.Equal(t, []shown{{"Stored to bookmark.yml.", notify.CategorySuccess}}, n.snapshot())
}

func TestDispatch_ApplicationFailureNotifiesWithVerbAndURL(t *testing.T) {
	srv := newFakeAPI(t)
	d, n := newTestDispatcher(t, srv, Options{})

	called := false
	out := wait(t, d.Dispatch(context.Background(), Request{
		Verb:      http.MethodPatch,
		URL:       "/ajax/fail",
		OnSuccess: func(json.RawMessage) { called = true },
	}))

	assert.False(t, called)
	assert.False(t, out.Called)
	var appErr *ApplicationError
	require.True(t, errors.As(out.Err, &appErr))
	assert.Equal(t, "Need to log in.", appErr.Message)

	events := n.snapshot()
	require.Len(t, events, 1)
	assert.Equal(t, notify.CategoryDanger, events[0].category)
	assert.Contains(t, events[0].text, "PATCH")
	assert.Contains(t, events[0].text, "/ajax/fail")
	assert.Contains(t, events[0].text, "Need to log in.")
}

func TestDispatch_LegacyErrMsgField(t *testing.T) {
	srv := newFakeAPI(t)
	d, n := newTestDispatcher(t, srv, Options{Codec: envelope.NewCodec("errmsg")})

	wait(t, d.Dispatch(context.Background(), Request{Verb: http.MethodGet, URL: "/ajax/fail-legacy"}))

	events := n.snapshot()
	require.Len(t, events, 1)
	assert.Contains(t, events[0].text, "legacy failure")
}

func TestDispatch_AbsentSuccessIsIgnored(t *testing.T) {
	srv := newFakeAPI(t)
	d, n := newTestDispatcher(t, srv, Options{})

	called := false
	out := wait(t, d.Dispatch(context.Background(), Request{
		Verb:      http.MethodGet,
		URL:       "/ajax/absent",
		OnSuccess: func(json.RawMessage) { called = true },
	}))

	assert.False(t, called)
	assert.True(t, out.Ignored)
	assert.NoError(t, out.Err)
	assert.Empty(t, n.snapshot())
}

func TestDispatch_DecodeErrorNotifiesDanger(t *testing.T) {
	srv := newFakeAPI(t)
	d, n := newTestDispatcher(t, srv, Options{})

	called := false
	out := wait(t, d.Dispatch(context.Background(), Request{
		Verb:      http.MethodGet,
		URL:       "/ajax/garbage",
		OnSuccess: func(json.RawMessage) { called = true },
	}))

	assert.False(t, called)
	var decErr *envelope.DecodeError
	require.True(t, errors.As(out.Err, &decErr))

	events := n.snapshot()
	require.Len(t, events, 1)
	assert.Equal(t, notify.CategoryDanger, events[0].category)
	assert.Contains(t, events[0].text, "GET /ajax/garbage")
}

func TestDispatch_HTTPErrorIsTransportFailure(t *testing.T) {
	srv := newFakeAPI(t)
	d, n := newTestDispatcher(t, srv, Options{})

	out := wait(t, d.Dispatch(context.Background(), Request{Verb: http.MethodDelete, URL: "/ajax/boom"}))

	var te *TransportError
	require.True(t, errors.As(out.Err, &te))
	assert.Equal(t, http.StatusInternalServerError, te.Status)

	events := n.snapshot()
	require.Len(t, events, 1)
	assert.True(t, strings.HasPrefix(events[0].text, "Failed(1): DELETE /ajax/boom"), events[0].text)
	assert.Contains(t, events[0].text, "HTTP(500)")
}

func TestDispatch_NonSuccessStatusWithEnvelopeUsesEnvelope(t *testing.T) {
	srv := newFakeAPI(t)
	d, n := newTestDispatcher(t, srv, Options{})

	out := wait(t, d.Dispatch(context.Background(), Request{Verb: http.MethodGet, URL: "/ajax/fail-400"}))

	var appErr *ApplicationError
	require.True(t, errors.As(out.Err, &appErr))
	require.Len(t, n.snapshot(), 1)
	assert.Contains(t, n.snapshot()[0].text, "Invalid or Need Parameters")
}

func TestDispatch_FailedStatusNeverRunsCallback(t *testing.T) {
	srv := newFakeAPI(t)
	d, n := newTestDispatcher(t, srv, Options{})

	called := false
	out := wait(t, d.Dispatch(context.Background(), Request{
		Verb:      http.MethodPost,
		URL:       "/ajax/success-500",
		OnSuccess: func(json.RawMessage) { called = true },
	}))

	assert.False(t, called)
	assert.False(t, out.Called)
	var te *TransportError
	require.True(t, errors.As(out.Err, &te))
	assert.Equal(t, http.StatusInternalServerError, te.Status)

	events := n.snapshot()
	require.Len(t, events, 1)
	assert.Equal(t, notify.CategoryDanger, events[0].category)
	assert.Contains(t, events[0].text, "Failed(1): POST /ajax/success-500")
	assert.Contains(t, events[0].text, "HTTP(500)")
}

func TestDispatch_FailedStatusWithoutSuccessFieldIsSurfaced(t *testing.T) {
	srv := newFakeAPI(t)
	d, n := newTestDispatcher(t, srv, Options{})

	out := wait(t, d.Dispatch(context.Background(), Request{Verb: http.MethodGet, URL: "/ajax/gateway"}))

	assert.False(t, out.Ignored)
	var te *TransportError
	require.True(t, errors.As(out.Err, &te))
	assert.Equal(t, http.StatusBadGateway, te.Status)

	events := n.snapshot()
	require.Len(t, events, 1)
	assert.Equal(t, notify.CategoryDanger, events[0].category)
	assert.Contains(t, events[0].text, "Failed(1): GET /ajax/gateway")
	assert.Contains(t, events[0].text, "HTTP(502)")
}

func TestDispatch_OversizedResponseIsTransportFailure(t *testing.T) {
	srv := newFakeAPI(t)
	d, n := newTestDispatcher(t, srv, Options{})

	called := false
	out := wait(t, d.Dispatch(context.Background(), Request{
		Verb:      http.MethodGet,
		URL:       "/ajax/huge",
		OnSuccess: func(json.RawMessage) { called = true },
	}))

	assert.False(t, called)
	assert.True(t, errors.Is(out.Err, ErrResponseTooLarge))
	var te *TransportError
	require.True(t, errors.As(out.Err, &te))

	events := n.snapshot()
	require.Len(t, events, 1)
	assert.Contains(t, events[0].text, "response too large")
	assert.NotContains(t, events[0].text, "unexpected end of JSON input")
}

func TestDispatch_OnValueErrorNotifiesDanger(t *testing.T) {
	srv := newFakeAPI(t)
	d, n := newTestDispatcher(t, srv, Options{})

	out := wait(t, d.Dispatch(context.Background(), Request{
		Verb:    http.MethodGet,
		URL:     "/ajax/ok-message",
		OnValue: func(json.RawMessage) error { return errors.New("want object") },
	}))

	assert.True(t, out.Called)
	var ve *ValueError
	require.True(t, errors.As(out.Err, &ve))
	assert.Equal(t, "/ajax/ok-message", ve.URL)

	events := n.snapshot()
	require.Len(t, events, 1, "the success message is replaced by the failure")
	assert.Equal(t, notify.CategoryDanger, events[0].category)
	assert.Equal(t, "URL@GET: /ajax/ok-message Error: unexpected value: want object", events[0].text)
}

func TestDispatch_OnValueSuccessKeepsMessage(t *testing.T) {
	srv := newFakeAPI(t)
	d, n := newTestDispatcher(t, srv, Options{})

	var got string
	out := wait(t, d.Dispatch(context.Background(), Request{
		Verb: http.MethodGet,
		URL:  "/ajax/ok-message",
		OnValue: func(v json.RawMessage) error {
			got = string(v)
			return nil
		},
	}))

	require.NoError(t, out.Err)
	assert.Equal(t, "[1]", got)
	events := n.snapshot()
	require.Len(t, events, 1)
	assert.Equal(t, notify.CategorySuccess, events[0].category)
}

func TestDispatch_NetworkErrorIsTransportFailure(t *testing.T) {
	srv := newFakeAPI(t)
	base := srv.URL
	srv.Close()

	n := &recordingNotifier{}
	d, err := New(n, Options{BaseURL: base, Timeout: time.Second})
	require.NoError(t, err)

	out := wait(t, d.Dispatch(context.Background(), Request{Verb: http.MethodGet, URL: "/ajax/ok"}))

	var te *TransportError
	require.True(t, errors.As(out.Err, &te))
	assert.Zero(t, te.Status)
	require.Len(t, n.snapshot(), 1)
	assert.Contains(t, n.snapshot()[0].text, "Failed(1): GET /ajax/ok")
}

func TestDispatch_InvalidVerbRejected(t *testing.T) {
	srv := newFakeAPI(t)
	d, n := newTestDispatcher(t, srv, Options{})

	out := wait(t, d.Dispatch(context.Background(), Request{Verb: "TRACE", URL: "/ajax/ok"}))
	assert.True(t, errors.Is(out.Err, ErrInvalidVerb))
	require.Len(t, n.snapshot(), 1)
	assert.Equal(t, notify.CategoryDanger, n.snapshot()[0].category)
}

func TestDispatch_SendsJSONBodyForEveryVerb(t *testing.T) {
	srv := newFakeAPI(t)
	d, _ := newTestDispatcher(t, srv, Options{UserAgent: "pbdash/test"})

	for _, verb := range []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		t.Run(verb, func(t *testing.T) {
			var echo map[string]string
			wait(t, d.Dispatch(context.Background(), Request{
				Verb: strings.ToLower(verb),
				URL:  "/ajax/echo",
				Body: map[string]any{"colnames": []string{"stamp", "end"}},
				OnSuccess: func(v json.RawMessage) {
					assert.NoError(t, json.Unmarshal(v, &echo))
				},
			}))
			assert.Equal(t, verb, echo["method"])
			assert.JSONEq(t, `{"colnames": ["stamp", "end"]}`, echo["body"])
			assert.Equal(t, "application/json", echo["content_type"])
			assert.Equal(t, "application/json", echo["accept"])
			assert.Equal(t, "pbdash/test", echo["user_agent"])
			assert.NotEmpty(t, echo["request_id"])
		})
	}
}

func TestDispatch_UsesScheduler(t *testing.T) {
	srv := newFakeAPI(t)
	var scheduled int
	var mu sync.Mutex
	d, _ := newTestDispatcher(t, srv, Options{
		Scheduler: func(fn func()) {
			mu.Lock()
			scheduled++
			mu.Unlock()
			fn()
		},
	})

	wait(t, d.Dispatch(context.Background(), Request{Verb: http.MethodGet, URL: "/ajax/ok"}))
	wait(t, d.Dispatch(context.Background(), Request{Verb: http.MethodGet, URL: "/ajax/fail"}))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, scheduled)
}

func TestDispatch_QueuedSchedulerDefersResolution(t *testing.T) {
	srv := newFakeAPI(t)
	queue := make(chan func(), 1)
	d, _ := newTestDispatcher(t, srv, Options{Scheduler: func(fn func()) { queue <- fn }})

	called := false
	p := d.Dispatch(context.Background(), Request{
		Verb:      http.MethodGet,
		URL:       "/ajax/ok",
		OnSuccess: func(json.RawMessage) { called = true },
	})

	var fn func()
	select {
	case fn = <-queue:
	case <-time.After(3 * time.Second):
		t.Fatal("continuation was never scheduled")
	}
	select {
	case <-p.Done():
		t.Fatal("pending resolved before scheduled work ran")
	default:
	}
	assert.False(t, called)

	fn()
	out := wait(t, p)
	assert.True(t, called)
	assert.True(t, out.Called)
}

func TestDispatch_ConcurrentRequestsLastShowWins(t *testing.T) {
	srv := newFakeAPI(t)
	ctrl := notify.NewController()
	d, err := New(ctrl, Options{BaseURL: srv.URL})
	require.NoError(t, err)

	p1 := d.Dispatch(context.Background(), Request{Verb: http.MethodGet, URL: "/ajax/fail"})
	p2 := d.Dispatch(context.Background(), Request{Verb: http.MethodGet, URL: "/ajax/boom"})
	wait(t, p1)
	wait(t, p2)
	d.Drain()

	n, visible := ctrl.Current()
	require.True(t, visible)
	assert.Equal(t, notify.CategoryDanger, n.Category)
	ctrl.Clear()
}

func TestPending_WaitHonoursContext(t *testing.T) {
	p := newPending()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew_RequiresNotifier(t *testing.T) {
	_, err := New(nil, Options{})
	assert.Error(t, err)
}

func TestParseBaseURL_DefaultsAndNormalizes(t *testing.T) {
	u, err := parseBaseURL("")
	require.NoError(t, err)
	assert.Equal(t, "http", u.Scheme)
	assert.Equal(t, defaultBaseURL, u.Host)

	u, err = parseBaseURL("https://bill.example.com/app?x=1#frag")
	require.NoError(t, err)
	assert.Equal(t, "https://bill.example.com", u.String())
}

func TestRateLimitedDispatcherStillDelivers(t *testing.T) {
	srv := newFakeAPI(t)
	d, _ := newTestDispatcher(t, srv, Options{RateLimit: 100, Burst: 1})

	var mu sync.Mutex
	calls := 0
	var pending []*Pending
	for i := 0; i < 3; i++ {
		pending = append(pending, d.Dispatch(context.Background(), Request{
			Verb: http.MethodGet,
			URL:  "/ajax/ok",
			OnSuccess: func(json.RawMessage) {
				mu.Lock()
				calls++
				mu.Unlock()
			},
		}))
	}
	for _, p := range pending {
		wait(t, p)
	}
	assert.Equal(t, 3, calls)
}
