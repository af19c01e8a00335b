package bridge

import (
	"sync"
	"testing"

	"github.com/go-drift/miniapp/pkg/errors"
)

type pinged struct {
	N int `json:"n"`
}

func (pinged) EventName() EventName { return "pinged" }

type closed struct {
	ButtonID string `json:"buttonId"`
}

func (closed) EventName() EventName { return "popupClosed" }

var testCatalog = Catalog{
	"pinged":      Decoder[pinged](),
	"popupClosed": Decoder[closed](),
}

type reports struct {
	mu     sync.Mutex
	errs   []*errors.BridgeError
	panics []*errors.PanicError
}

func (r *reports) HandleError(err *errors.BridgeError) {
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
}

func (r *reports) HandlePanic(err *errors.PanicError) {
	r.mu.Lock()
	r.panics = append(r.panics, err)
	r.mu.Unlock()
}

func (r *reports) errors() []*errors.BridgeError {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*errors.BridgeError(nil), r.errs...)
}

// captureReports routes the global error handler into a recorder for the
// duration of the test.
func captureReports(t *testing.T) *reports {
	t.Helper()
	r := &reports{}
	errors.SetHandler(r)
	t.Cleanup(func() { errors.SetHandler(nil) })
	return r
}
