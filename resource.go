package wolo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type StatusError struct {
	Method string
	URL    string
	Code   int
	Body   []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.URL, e.Code)
}

// Resource is a client-side proxy for a REST endpoint such as /workouts/:workoutID.
type Resource struct {
	client   *http.Client
	base     *url.URL
	pattern  string
	defaults Params
}

func NewResource(client *http.Client, baseURL string, pattern string, defaults Params) (*Resource, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	if client == nil {
		client = http.DefaultClient
	}
	if defaults == nil {
		defaults = Params{}
	}
	return &Resource{client: client, base: base, pattern: pattern, defaults: defaults}, nil
}

// URL expands the pattern. Missing parameters drop their segment, params
// that do not appear in the pattern become query values.
func (r *Resource) URL(params Params) string {
	used := make(map[string]bool)
	var segments, escaped []string
	for _, seg := range strings.Split(r.pattern, "/") {
		esc := seg
		if strings.HasPrefix(seg, ":") && 1 < len(seg) {
			name := seg[1:]
			used[name] = true
			v := params[name]
			if v == "" && !strings.HasPrefix(r.defaults[name], "@") {
				v = r.defaults[name]
			}
			seg, esc = v, url.PathEscape(v)
		}
		if seg != "" {
			segments = append(segments, seg)
			escaped = append(escaped, esc)
		}
	}
	u := *r.base
	prefix := strings.TrimSuffix(r.base.Path, "/")
	u.Path = prefix + "/" + strings.Join(segments, "/")
	u.RawPath = strings.TrimSuffix(r.base.EscapedPath(), "/") + "/" + strings.Join(escaped, "/")
	query := u.Query()
	for k, v := range params {
		if !used[k] && v != "" {
			query.Set(k, v)
		}
	}
	u.RawQuery = query.Encode()
	return u.String()
}

func (r *Resource) Get(ctx context.Context, params Params, out any) error {
	return r.do(ctx, http.MethodGet, params, nil, out)
}

func (r *Resource) Query(ctx context.Context, params Params, out any) error {
	return r.do(ctx, http.MethodGet, params, nil, out)
}

func (r *Resource) Save(ctx context.Context, params Params, body any, out any) error {
	return r.do(ctx, http.MethodPost, params, body, out)
}

func (r *Resource) Update(ctx context.Context, params Params, body any, out any) error {
	return r.do(ctx, http.MethodPut, params, body, out)
}

func (r *Resource) Delete(ctx context.Context, params Params) error {
	return r.do(ctx, http.MethodDelete, params, nil, nil)
}

func (r *Resource) do(ctx context.Context, method string, params Params, body any, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		params = r.bindBody(params, b)
		reader = bytes.NewReader(b)
	}
	target := r.URL(params)
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	log.Println(method, target, resp.StatusCode, time.Since(start))
	if resp.StatusCode < 200 || 299 < resp.StatusCode {
		return &StatusError{Method: method, URL: target, Code: resp.StatusCode, Body: respBody}
	}
	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	return json.Unmarshal(respBody, out)
}

// bindBody fills "@field" defaults from the top level of the request body.
func (r *Resource) bindBody(params Params, body []byte) Params {
	bound := make(Params, len(params))
	for k, v := range params {
		bound[k] = v
	}
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		return bound
	}
	for name, def := range r.defaults {
		if !strings.HasPrefix(def, "@") || bound[name] != "" {
			continue
		}
		if v, ok := fields[def[1:]]; ok && v != nil {
			bound[name] = fmt.Sprint(v)
		}
	}
	return bound
}

type Workout struct {
	ID          string    `json:"workoutID,omitempty"`
	Type        string    `json:"type"`
	Duration    int64     `json:"duration"`
	Distance    int       `json:"distance"`
	DistanceUOM string    `json:"distance_uom"`
	Details     string    `json:"details"`
	Date        time.Time `json:"date"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// API binds the backend endpoints consumed by the controllers.
type API struct {
	Settings *Resource
	Workouts *Resource
}

func NewAPI(client *http.Client, baseURL string) (*API, error) {
	settings, err := NewResource(client, baseURL, "/settings", nil)
	if err != nil {
		return nil, err
	}
	workouts, err := NewResource(client, baseURL, "/workouts/:workoutID", Params{"workoutID": "@workoutID"})
	if err != nil {
		return nil, err
	}
	return &API{Settings: settings, Workouts: workouts}, nil
}
