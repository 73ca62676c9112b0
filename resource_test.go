package wolo

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gorilla/mux"
)

func TestResourceURL(t *testing.T) {
	res, err := NewResource(nil, "http://api.test/v1/", "/workouts/:workoutID", Params{"workoutID": "@workoutID"})
	if err != nil {
		t.Fatal(err)
	}
	testCases := []struct {
		params Params
		want   string
	}{
		{params: nil, want: "http://api.test/v1/workouts"},
		{params: Params{"workoutID": "42"}, want: "http://api.test/v1/workouts/42"},
		{params: Params{"workoutID": "a b"}, want: "http://api.test/v1/workouts/a%20b"},
		{params: Params{"workoutID": "42", "limit": "5"}, want: "http://api.test/v1/workouts/42?limit=5"},
		{params: Params{"limit": "5"}, want: "http://api.test/v1/workouts?limit=5"},
	}
	for _, tc := range testCases {
		if got := res.URL(tc.params); got != tc.want {
			t.Errorf("URL(%v) = %q, want %q", tc.params, got, tc.want)
		}
	}
	settings, err := NewResource(nil, "http://api.test", "/settings", nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := settings.URL(nil); got != "http://api.test/settings" {
		t.Errorf("settings URL = %q", got)
	}
	static, err := NewResource(nil, "http://api.test", "/workouts/:workoutID", Params{"workoutID": "latest"})
	if err != nil {
		t.Fatal(err)
	}
	if got := static.URL(nil); got != "http://api.test/workouts/latest" {
		t.Errorf("default param URL = %q", got)
	}
}

type recordedRequest struct {
	Method string
	Path   string
	Body   []byte
}

func newWorkoutBackend(t *testing.T) (*httptest.Server, func() []recordedRequest) {
	t.Helper()
	var mu sync.Mutex
	var requests []recordedRequest
	record := func(r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		defer mu.Unlock()
		requests = append(requests, recordedRequest{Method: r.Method, Path: r.URL.Path, Body: b})
	}
	router := mux.NewRouter()
	router.HandleFunc("/workouts/{workoutID}", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		switch r.Method {
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		case http.MethodGet:
			if mux.Vars(r)["workoutID"] == "missing" {
				w.WriteHeader(http.StatusNotFound)
				w.Write([]byte(`{"error":"Not Found"}`))
				return
			}
			w.Write([]byte(`{"workoutID":"42","type":"run","distance":5,"distance_uom":"km"}`))
		default:
			w.Write([]byte(`{}`))
		}
	})
	router.HandleFunc("/workouts", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		if r.Method == http.MethodGet {
			w.Write([]byte(`[{"workoutID":"1","type":"run"},{"workoutID":"2","type":"swim"}]`))
			return
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"workoutID":"7"}`))
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, func() []recordedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedRequest(nil), requests...)
	}
}

func TestWorkoutResource(t *testing.T) {
	srv, recorded := newWorkoutBackend(t)
	api, err := NewAPI(srv.Client(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	var wo Workout
	if err := api.Workouts.Get(ctx, Params{"workoutID": "42"}, &wo); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if wo.ID != "42" || wo.Type != "run" || wo.Distance != 5 || wo.DistanceUOM != "km" {
		t.Errorf("Get decoded %+v", wo)
	}

	var all []Workout
	if err := api.Workouts.Query(ctx, nil, &all); err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(all) != 2 || all[1].Type != "swim" {
		t.Errorf("Query decoded %+v", all)
	}

	var created Workout
	if err := api.Workouts.Save(ctx, nil, Workout{Type: "row"}, &created); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if created.ID != "7" {
		t.Errorf("Save decoded %+v", created)
	}

	// workoutID is taken from the body
	if err := api.Workouts.Update(ctx, nil, Workout{ID: "42", Type: "run"}, nil); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := api.Workouts.Delete(ctx, Params{"workoutID": "42"}); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	requests := recorded()
	want := []recordedRequest{
		{Method: http.MethodGet, Path: "/workouts/42"},
		{Method: http.MethodGet, Path: "/workouts"},
		{Method: http.MethodPost, Path: "/workouts"},
		{Method: http.MethodPut, Path: "/workouts/42"},
		{Method: http.MethodDelete, Path: "/workouts/42"},
	}
	if len(requests) != len(want) {
		t.Fatalf("backend saw %d requests, want %d: %+v", len(requests), len(want), requests)
	}
	for i, w := range want {
		got := requests[i]
		if got.Method != w.Method || got.Path != w.Path {
			t.Errorf("request %d = %s %s, want %s %s", i, got.Method, got.Path, w.Method, w.Path)
		}
	}
	var posted map[string]any
	if err := json.Unmarshal(requests[2].Body, &posted); err != nil {
		t.Fatal(err)
	}
	if posted["type"] != "row" {
		t.Errorf("posted body %s", requests[2].Body)
	}
}

func TestResourceStatusError(t *testing.T) {
	srv, _ := newWorkoutBackend(t)
	api, err := NewAPI(srv.Client(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	var wo Workout
	err = api.Workouts.Get(context.Background(), Params{"workoutID": "missing"}, &wo)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("error = %v, want *StatusError", err)
	}
	if statusErr.Code != http.StatusNotFound || statusErr.Method != http.MethodGet {
		t.Errorf("StatusError = %+v", statusErr)
	}
	if string(statusErr.Body) != `{"error":"Not Found"}` {
		t.Errorf("StatusError body = %s", statusErr.Body)
	}
}
