package wolo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"
)

type Server struct {
	config      Config
	states      *StateTable
	api         *API
	controllers map[string]ControllerFactory
	router      *mux.Router
	server      *http.Server
}

// View is the template input for a rendered state.
type View struct {
	ID         string
	State      State
	Params     Params
	Controller Controller
}

func New(cfg Config) (*Server, error) {
	states, err := NewStateTable(DefaultStates(), HomeState)
	if err != nil {
		return nil, err
	}
	client := &http.Client{Timeout: cfg.Timeout()}
	api, err := NewAPI(client, cfg.ServiceURL)
	if err != nil {
		return nil, err
	}
	s := &Server{
		config:      cfg,
		states:      states,
		api:         api,
		controllers: DefaultControllers(api),
	}
	s.config.States = states.States()
	router, err := s.CreateRouter()
	if err != nil {
		return nil, err
	}
	s.router = router
	s.server = &http.Server{Addr: ":" + cfg.ListenPort, Handler: router}
	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) FormatErr(err string) []byte {
	return []byte(fmt.Sprintf(`{"error":%q}`, err))
}

func (s *Server) TeeError(w http.ResponseWriter, err error) {
	log.Println(err)
	w.WriteHeader(http.StatusInternalServerError)
	if s.config.Debug {
		w.Write(s.FormatErr(err.Error()))
	}
}

func (s *Server) CreateRouter() (*mux.Router, error) {
	router := mux.NewRouter()
	serviceURL, err := url.Parse(s.config.ServiceURL)
	if err != nil {
		return router, err
	}
	serviceProxy := httputil.NewSingleHostReverseProxy(serviceURL)
	router.PathPrefix(s.config.APIPrefix + "/").
		HandlerFunc(s.CreateServiceFunc(s.config.APIPrefix, serviceProxy.ServeHTTP)).
		Name("api")
	for endpoint, dir := range s.config.FileServers {
		router.PathPrefix(endpoint).Handler(http.StripPrefix(endpoint, http.FileServer(http.Dir(dir))))
	}
	router.HandleFunc("/settings", s.SaveSettingsHandler).
		Name("saveSettings").
		Methods("POST")
	for _, st := range s.states.Ordered() {
		router.HandleFunc(PathTemplate(st.URL), s.StateHandler).
			Name(st.Name).
			Methods("GET")
	}
	router.NotFoundHandler = http.HandlerFunc(s.FallbackHandler)
	return router, nil
}

func (s *Server) CreateServiceFunc(prefix string, wrapped func(http.ResponseWriter, *http.Request)) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, req *http.Request) {
		req.URL.Path = strings.TrimPrefix(req.URL.Path, prefix)
		if req.URL.Path == "" {
			req.URL.Path = "/"
		}
		req.URL.RawPath = ""
		wrapped(w, req)
	}
}

// each request is its own activation
func (s *Server) navigator() *Navigator {
	return NewNavigator(s.states, s.controllers)
}

func (s *Server) FallbackHandler(w http.ResponseWriter, r *http.Request) {
	fallback := s.states.Fallback()
	log.Println("no state for", r.Method, r.URL.Path, "redirecting to", fallback.Name)
	http.Redirect(w, r, fallback.URL, http.StatusFound)
}

func (s *Server) StateHandler(w http.ResponseWriter, r *http.Request) {
	nav := s.navigator()
	a, err := nav.Navigate(r.Context(), r.URL.Path)
	if err != nil {
		s.TeeError(w, err)
		return
	}
	if c, ok := a.Controller.(*SettingsController); ok {
		// a failed load renders the empty settings
		_, _ = c.Loaded().Wait(r.Context())
	}
	s.Render(w, a)
}

func (s *Server) SaveSettingsHandler(w http.ResponseWriter, r *http.Request) {
	nav := s.navigator()
	a, err := nav.Go(r.Context(), "settings", nil)
	if err != nil {
		s.TeeError(w, err)
		return
	}
	c, ok := a.Controller.(*SettingsController)
	if !ok {
		s.TeeError(w, fmt.Errorf("state settings: unexpected controller %T", a.Controller))
		return
	}
	_, _ = c.Loaded().Wait(r.Context())
	err = r.ParseForm()
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	current := c.Settings()
	name, email := current.Name, current.Email
	if _, ok := r.PostForm["name"]; ok {
		name = r.PostForm.Get("name")
	}
	if _, ok := r.PostForm["email"]; ok {
		email = r.PostForm.Get("email")
	}
	c.Edit(name, email)
	_, err = c.Save(r.Context()).Wait(r.Context())
	if err != nil {
		// no error view, the form is shown again
		log.Println("settings not saved:", err)
		s.Render(w, a)
		return
	}
	next := nav.Current()
	target, err := s.states.URL(next.State.Name, next.Params)
	if err != nil {
		s.TeeError(w, err)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// NOTE base.html holds the layout, the state template fills its "content" block
func (s *Server) Render(w http.ResponseWriter, a *Activation) {
	baseTmpl := filepath.Clean(filepath.Join(s.config.ViewRoot, "base.html"))
	base, err := template.New("base.html").ParseFiles(baseTmpl)
	if err != nil {
		s.TeeError(w, err)
		return
	}
	reqTmpl := filepath.Clean(filepath.Join(s.config.ViewRoot, filepath.FromSlash(a.State.Template)))
	overlay, err := template.Must(base.Clone()).ParseFiles(reqTmpl)
	if err != nil {
		s.TeeError(w, err)
		return
	}
	view := View{
		ID:         a.ID.String(),
		State:      a.State,
		Params:     a.Params,
		Controller: a.Controller,
	}
	buf := bytes.Buffer{}
	err = overlay.ExecuteTemplate(&buf, "base.html", view)
	if err != nil {
		s.TeeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}

func (s *Server) StatesHandler(w http.ResponseWriter, r *http.Request) {
	j, err := json.Marshal(s.config.States)
	if err != nil {
		s.TeeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(j)
}

func (s *Server) ManagementRouter() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/states", s.StatesHandler).Methods("GET")
	return router
}
