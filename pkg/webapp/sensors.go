package webapp

import (
	"sync"

	"github.com/go-drift/miniapp/pkg/bridge"
	"github.com/go-drift/miniapp/pkg/version"
)

// Refresh rate bounds in milliseconds.
const (
	MinRefreshRate     = 20
	MaxRefreshRate     = 1000
	DefaultRefreshRate = 1000
)

// Vector is a three axis reading: m/s² for the accelerometer, rad/s for
// the gyroscope.
type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Orientation is a device orientation reading in radians.
type Orientation struct {
	Absolute bool    `json:"absolute"`
	Alpha    float64 `json:"alpha"`
	Beta     float64 `json:"beta"`
	Gamma    float64 `json:"gamma"`
}

type sensorSpec struct {
	feature version.Feature
	start   string
	stop    string
	started bridge.EventName
	stopped bridge.EventName
	failed  bridge.EventName
}

var accelerometerSpec = sensorSpec{
	feature: version.Accelerometer,
	start:   "web_app_start_accelerometer",
	stop:    "web_app_stop_accelerometer",
	started: EventAccelerometerStarted,
	stopped: EventAccelerometerStopped,
	failed:  EventAccelerometerFailed,
}

var gyroscopeSpec = sensorSpec{
	feature: version.Gyroscope,
	start:   "web_app_start_gyroscope",
	stop:    "web_app_stop_gyroscope",
	started: EventGyroscopeStarted,
	stopped: EventGyroscopeStopped,
	failed:  EventGyroscopeFailed,
}

var deviceOrientationSpec = sensorSpec{
	feature: version.DeviceOrientation,
	start:   "web_app_start_device_orientation",
	stop:    "web_app_stop_device_orientation",
	started: EventDeviceOrientationStarted,
	stopped: EventDeviceOrientationStopped,
	failed:  EventDeviceOrientationFailed,
}

// sensor is the start/stop lifecycle shared by the motion sensors.
type sensor struct {
	app  *WebApp
	spec sensorSpec

	mu      sync.Mutex
	started bool
	vector  Vector
}

func newSensor(w *WebApp, spec sensorSpec) *sensor {
	return &sensor{app: w, spec: spec}
}

type sensorOutcome struct {
	Error string `json:"error"`
}

func (s *sensor) start(refreshRate int, extra map[string]any, cb func(bool, error)) error {
	if err := s.app.guard(s.spec.feature); err != nil {
		return err
	}
	if refreshRate == 0 {
		refreshRate = DefaultRefreshRate
	}
	if refreshRate < MinRefreshRate || refreshRate > MaxRefreshRate {
		return invalid("refresh rate %dms outside %d..%d", refreshRate, MinRefreshRate, MaxRefreshRate)
	}
	payload := map[string]any{"refresh_rate": refreshRate}
	for k, v := range extra {
		payload[k] = v
	}
	return call(s.app, s.spec.start, payload, func(o sensorOutcome, err error) {
		if cb != nil {
			cb(err == nil && o.Error == "", err)
		}
	})
}

func (s *sensor) stop(cb func(bool, error)) error {
	if err := s.app.guard(s.spec.feature); err != nil {
		return err
	}
	return call(s.app, s.spec.stop, nil, func(o sensorOutcome, err error) {
		if cb != nil {
			cb(err == nil && o.Error == "", err)
		}
	})
}

func (s *sensor) IsStarted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// reduce tracks lifecycle events and readings. Runs on the dispatcher.
func (s *sensor) reduce(e bridge.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch e.EventName() {
	case s.spec.started:
		s.started = true
	case s.spec.stopped, s.spec.failed:
		s.started = false
	}
	switch e := e.(type) {
	case AccelerometerChanged:
		if s.spec.feature == version.Accelerometer {
			s.vector = e.Vector
		}
	case GyroscopeChanged:
		if s.spec.feature == version.Gyroscope {
			s.vector = e.Vector
		}
	}
}

// AccelerometerParams tunes Accelerometer.Start. RefreshRate is in
// milliseconds; zero means DefaultRefreshRate.
type AccelerometerParams struct {
	RefreshRate int
}

// Accelerometer reports acceleration along three axes.
type Accelerometer struct {
	*sensor
}

func (a *Accelerometer) Start(p AccelerometerParams, cb func(bool, error)) error {
	return a.start(p.RefreshRate, nil, cb)
}

func (a *Accelerometer) Stop(cb func(bool, error)) error { return a.stop(cb) }

// Reading returns the last reported acceleration.
func (a *Accelerometer) Reading() Vector {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.vector
}

type GyroscopeParams struct {
	RefreshRate int
}

// Gyroscope reports rotation rate around three axes.
type Gyroscope struct {
	*sensor
}

func (g *Gyroscope) Start(p GyroscopeParams, cb func(bool, error)) error {
	return g.start(p.RefreshRate, nil, cb)
}

func (g *Gyroscope) Stop(cb func(bool, error)) error { return g.stop(cb) }

func (g *Gyroscope) Reading() Vector {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.vector
}

type DeviceOrientationParams struct {
	RefreshRate int
	// NeedAbsolute asks for angles relative to magnetic north.
	NeedAbsolute bool
}

// DeviceOrientation reports the device's attitude.
type DeviceOrientation struct {
	*sensor
	orientation Orientation
}

func newDeviceOrientation(w *WebApp) *DeviceOrientation {
	return &DeviceOrientation{sensor: newSensor(w, deviceOrientationSpec)}
}

func (d *DeviceOrientation) Start(p DeviceOrientationParams, cb func(bool, error)) error {
	return d.start(p.RefreshRate, map[string]any{"need_absolute": p.NeedAbsolute}, cb)
}

func (d *DeviceOrientation) Stop(cb func(bool, error)) error { return d.stop(cb) }

func (d *DeviceOrientation) Reading() Orientation {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.orientation
}

func (d *DeviceOrientation) reduce(e bridge.Event) {
	d.sensor.reduce(e)
	if c, ok := e.(DeviceOrientationChanged); ok {
		d.mu.Lock()
		d.orientation = c.Orientation
		d.mu.Unlock()
	}
}
