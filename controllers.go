package wolo

import "context"

const Greeting = "Wolo"

type Controller interface {
	Activate(ctx context.Context, params Params) error
}

// ControllerFactory builds a fresh controller for every activation.
type ControllerFactory func(nav *Navigator) Controller

func DefaultControllers(api *API) map[string]ControllerFactory {
	return map[string]ControllerFactory{
		"WorkoutIndexController": func(nav *Navigator) Controller {
			return &WorkoutIndexController{}
		},
		"NewWorkoutController": func(nav *Navigator) Controller {
			return &NewWorkoutController{}
		},
		"ViewWorkoutController": func(nav *Navigator) Controller {
			return &ViewWorkoutController{}
		},
		"EditWorkoutController": func(nav *Navigator) Controller {
			return &EditWorkoutController{}
		},
		"SettingsController": func(nav *Navigator) Controller {
			return NewSettingsController(api.Settings, nav)
		},
	}
}

type WorkoutIndexController struct {
	Message string
}

func (c *WorkoutIndexController) Activate(ctx context.Context, params Params) error {
	c.Message = Greeting
	return nil
}

type NewWorkoutController struct {
	Message string
}

func (c *NewWorkoutController) Activate(ctx context.Context, params Params) error {
	c.Message = Greeting
	return nil
}

type ViewWorkoutController struct {
	Message   string
	WorkoutID string
}

func (c *ViewWorkoutController) Activate(ctx context.Context, params Params) error {
	c.Message = Greeting
	c.WorkoutID = params["workoutID"]
	return nil
}

type EditWorkoutController struct {
	Message   string
	WorkoutID string
}

func (c *EditWorkoutController) Activate(ctx context.Context, params Params) error {
	c.Message = Greeting
	c.WorkoutID = params["workoutID"]
	return nil
}
