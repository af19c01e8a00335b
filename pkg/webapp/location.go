package webapp

import (
	"sync"

	"github.com/go-drift/miniapp/pkg/version"
)

// Location is one position fix. Optional fields are nil when the device
// does not report them.
type Location struct {
	Latitude           float64  `json:"latitude"`
	Longitude          float64  `json:"longitude"`
	Altitude           *float64 `json:"altitude,omitempty"`
	Course             *float64 `json:"course,omitempty"`
	Speed              *float64 `json:"speed,omitempty"`
	HorizontalAccuracy *float64 `json:"horizontalAccuracy,omitempty"`
	VerticalAccuracy   *float64 `json:"verticalAccuracy,omitempty"`
	CourseAccuracy     *float64 `json:"courseAccuracy,omitempty"`
	SpeedAccuracy      *float64 `json:"speedAccuracy,omitempty"`
}

// LocationState is what the host last reported about location access.
type LocationState struct {
	Inited          bool
	Available       bool
	AccessRequested bool
	AccessGranted   bool
}

// LocationManager reads the device position.
type LocationManager struct {
	app *WebApp

	mu    sync.Mutex
	state LocationState
}

func newLocationManager(w *WebApp) *LocationManager {
	return &LocationManager{app: w}
}

func (l *LocationManager) State() LocationState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *LocationManager) update(e LocationManagerUpdated) {
	l.mu.Lock()
	l.state = LocationState{
		Inited:          true,
		Available:       e.Available,
		AccessRequested: e.AccessRequested,
		AccessGranted:   e.AccessGranted,
	}
	l.mu.Unlock()
}

// Init fetches location availability. GetLocation needs it first.
func (l *LocationManager) Init(cb func(error)) error {
	if err := l.app.guard(version.Location); err != nil {
		return err
	}
	return call(l.app, "web_app_check_location", nil, func(e LocationManagerUpdated, err error) {
		if err == nil {
			l.update(e)
		}
		if cb != nil {
			cb(err)
		}
	})
}

// GetLocation requests a fix. cb receives nil when none is available or
// access was denied.
func (l *LocationManager) GetLocation(cb func(*Location, error)) error {
	if err := l.ready(); err != nil {
		return err
	}
	return call(l.app, "web_app_request_location", nil, func(e LocationRequested, err error) {
		if cb == nil {
			return
		}
		if !e.Available {
			cb(nil, err)
			return
		}
		cb(e.Location, err)
	})
}

// OpenSettings opens the host's location permission settings.
func (l *LocationManager) OpenSettings() error {
	if err := l.ready(); err != nil {
		return err
	}
	return l.app.notify("web_app_open_location_settings", nil)
}

func (l *LocationManager) ready() error {
	if err := l.app.guard(version.Location); err != nil {
		return err
	}
	if !l.State().Inited {
		return ErrNotInitialized
	}
	return nil
}
