package wolo

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/gorilla/mux"
)

var ErrUnknownState = errors.New("unknown state")

// NOTE if state json changes, then the management output changes with it
type State struct {
	Name       string
	URL        string
	Template   string
	Controller string
}

// Params holds the path parameters extracted for a state, e.g. workoutID.
type Params map[string]string

type Match struct {
	State    State
	Params   Params
	Fallback bool
}

const HomeState = "home"

func DefaultStates() []State {
	return []State{
		{Name: "home", URL: "/", Template: "index.html", Controller: "WorkoutIndexController"},
		{Name: "settings", URL: "/settings", Template: "settings.html", Controller: "SettingsController"},
		{Name: "newWorkout", URL: "/workouts/new", Template: "workouts/new.html", Controller: "NewWorkoutController"},
		{Name: "viewWorkout", URL: "/workouts/:workoutID", Template: "workouts/view.html", Controller: "ViewWorkoutController"},
		{Name: "editWorkout", URL: "/workouts/:workoutID/edit", Template: "workouts/edit.html", Controller: "EditWorkoutController"},
	}
}

// StateTable is immutable once built.
type StateTable struct {
	states   []State
	ordered  []State
	byName   map[string]State
	fallback State
	router   *mux.Router
}

func NewStateTable(states []State, fallback string) (*StateTable, error) {
	t := &StateTable{
		byName: make(map[string]State),
		router: mux.NewRouter(),
	}
	patterns := make(map[string]string)
	for _, s := range states {
		if s.Name == "" {
			return nil, errors.New("state without a name")
		}
		if !strings.HasPrefix(s.URL, "/") {
			return nil, fmt.Errorf("state %s: url %q must start with /", s.Name, s.URL)
		}
		if _, ok := t.byName[s.Name]; ok {
			return nil, fmt.Errorf("duplicate state %s", s.Name)
		}
		key := structure(s.URL)
		if other, ok := patterns[key]; ok {
			return nil, fmt.Errorf("state %s: url %q conflicts with state %s", s.Name, s.URL, other)
		}
		patterns[key] = s.Name
		t.byName[s.Name] = s
		t.states = append(t.states, s)
	}
	fb, ok := t.byName[fallback]
	if !ok {
		return nil, fmt.Errorf("fallback %s: %w", fallback, ErrUnknownState)
	}
	t.fallback = fb
	// mux matches in registration order, literal segments must be tried
	// before parameters so /workouts/new never binds workoutID=new
	t.ordered = make([]State, len(t.states))
	copy(t.ordered, t.states)
	sort.SliceStable(t.ordered, func(i, j int) bool {
		return paramCount(t.ordered[i].URL) < paramCount(t.ordered[j].URL)
	})
	for _, s := range t.ordered {
		t.router.NewRoute().Path(PathTemplate(s.URL)).Name(s.Name)
	}
	return t, nil
}

func (t *StateTable) States() []State {
	result := make([]State, len(t.states))
	copy(result, t.states)
	return result
}

// Ordered returns the states in matching order, literal urls first.
func (t *StateTable) Ordered() []State {
	result := make([]State, len(t.ordered))
	copy(result, t.ordered)
	return result
}

func (t *StateTable) Get(name string) (State, bool) {
	s, ok := t.byName[name]
	return s, ok
}

func (t *StateTable) Fallback() State {
	return t.fallback
}

// Resolve matches the path of rawURL against the table. Anything that does
// not match resolves to the fallback state.
func (t *StateTable) Resolve(rawURL string) Match {
	u, err := url.Parse(rawURL)
	if err != nil {
		return t.fallbackMatch()
	}
	if u.Path == "" {
		u.Path = "/"
	}
	req := &http.Request{Method: http.MethodGet, URL: u, Header: make(http.Header)}
	var rm mux.RouteMatch
	if !t.router.Match(req, &rm) || rm.MatchErr != nil || rm.Route == nil {
		return t.fallbackMatch()
	}
	s := t.byName[rm.Route.GetName()]
	params := make(Params, len(rm.Vars))
	for k, v := range rm.Vars {
		params[k] = v
	}
	return Match{State: s, Params: params}
}

func (t *StateTable) fallbackMatch() Match {
	return Match{State: t.fallback, Params: Params{}, Fallback: true}
}

// URL builds the concrete url of a named state.
func (t *StateTable) URL(name string, params Params) (string, error) {
	route := t.router.Get(name)
	if route == nil {
		return "", fmt.Errorf("%s: %w", name, ErrUnknownState)
	}
	var pairs []string
	for _, p := range paramNames(t.byName[name].URL) {
		v, ok := params[p]
		if !ok || v == "" {
			return "", fmt.Errorf("state %s: missing parameter %s", name, p)
		}
		pairs = append(pairs, p, v)
	}
	u, err := route.URLPath(pairs...)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// PathTemplate converts /workouts/:workoutID into the mux form /workouts/{workoutID}.
func PathTemplate(pattern string) string {
	segments := strings.Split(pattern, "/")
	for i, seg := range segments {
		if strings.HasPrefix(seg, ":") && 1 < len(seg) {
			segments[i] = "{" + seg[1:] + "}"
		}
	}
	return strings.Join(segments, "/")
}

func paramNames(pattern string) []string {
	var result []string
	for _, seg := range strings.Split(pattern, "/") {
		if strings.HasPrefix(seg, ":") && 1 < len(seg) {
			result = append(result, seg[1:])
		}
	}
	return result
}

// structure blanks parameter names so /a/:x and /a/:y compare equal.
func structure(pattern string) string {
	segments := strings.Split(pattern, "/")
	for i, seg := range segments {
		if strings.HasPrefix(seg, ":") {
			segments[i] = ":"
		}
	}
	return strings.Join(segments, "/")
}

func paramCount(pattern string) int {
	return len(paramNames(pattern))
}
