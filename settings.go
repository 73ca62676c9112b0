package wolo

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"

	"go.uber.org/atomic"
)

var ErrNotLoaded = errors.New("settings not loaded")

type Settings struct {
	Name  string
	Email string
	// fields the backend sent that this client does not edit
	Extra map[string]json.RawMessage
}

func (s *Settings) UnmarshalJSON(b []byte) error {
	var fields map[string]json.RawMessage
	err := json.Unmarshal(b, &fields)
	if err != nil {
		return err
	}
	*s = Settings{}
	for k, v := range fields {
		switch k {
		case "name":
			err = json.Unmarshal(v, &s.Name)
		case "email":
			err = json.Unmarshal(v, &s.Email)
		default:
			if s.Extra == nil {
				s.Extra = make(map[string]json.RawMessage)
			}
			s.Extra[k] = v
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// settingsUpdate is the only shape ever posted back.
type settingsUpdate struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type SettingsController struct {
	resource *Resource
	nav      *Navigator
	mu       sync.Mutex
	settings Settings
	loaded   *Pending[Settings]
	saving   atomic.Int64
}

func NewSettingsController(resource *Resource, nav *Navigator) *SettingsController {
	return &SettingsController{resource: resource, nav: nav}
}

// Activate starts the single settings read of this activation.
func (c *SettingsController) Activate(ctx context.Context, params Params) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded != nil {
		return errors.New("settings controller already activated")
	}
	log.Println("loading settings")
	c.loaded = goPending(func() (Settings, error) {
		var s Settings
		err := c.resource.Get(ctx, nil, &s)
		if err != nil {
			log.Println("loading settings:", err)
			return Settings{}, err
		}
		c.mu.Lock()
		c.settings = s
		c.mu.Unlock()
		return s, nil
	})
	return nil
}

// Loaded is nil before Activate.
func (c *SettingsController) Loaded() *Pending[Settings] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

func (c *SettingsController) Settings() Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.settings
	if c.settings.Extra != nil {
		s.Extra = make(map[string]json.RawMessage, len(c.settings.Extra))
		for k, v := range c.settings.Extra {
			s.Extra[k] = v
		}
	}
	return s
}

func (c *SettingsController) Edit(name, email string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings.Name = name
	c.settings.Email = email
}

// InFlight reports the number of saves waiting for a response.
func (c *SettingsController) InFlight() int64 {
	return c.saving.Load()
}

// Save posts name and email as they are now and navigates home once the
// write succeeds. It fails with ErrNotLoaded until the load has finished.
// Concurrent saves are independent, the last response wins.
func (c *SettingsController) Save(ctx context.Context) *Pending[struct{}] {
	loaded := c.Loaded()
	if loaded == nil {
		return failed[struct{}](ErrNotLoaded)
	}
	select {
	case <-loaded.Done():
	default:
		return failed[struct{}](ErrNotLoaded)
	}
	current := c.Settings()
	body := settingsUpdate{Name: current.Name, Email: current.Email}
	c.saving.Inc()
	return goPending(func() (struct{}, error) {
		defer c.saving.Dec()
		log.Println("saving settings", body.Name, body.Email)
		err := c.resource.Save(ctx, nil, body, nil)
		if err != nil {
			log.Println("saving settings:", err)
			return struct{}{}, err
		}
		_, err = c.nav.Go(ctx, HomeState, nil)
		return struct{}{}, err
	})
}
