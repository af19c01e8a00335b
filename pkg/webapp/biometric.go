package webapp

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/go-drift/miniapp/pkg/errors"
	"github.com/go-drift/miniapp/pkg/version"
)

// MaxBiometricReason is the longest prompt text in characters.
const MaxBiometricReason = 128

// MaxBiometricToken is the largest token the host stores.
const MaxBiometricToken = 1024

// ErrNotInitialized is returned by managers used before Init finished.
var ErrNotInitialized = errors.New("manager not initialized")

// BiometricState is what the host last reported about biometrics.
type BiometricState struct {
	Inited          bool
	Available       bool
	Type            string
	AccessRequested bool
	AccessGranted   bool
	TokenSaved      bool
	DeviceID        string
}

// BiometricManager gates a token behind fingerprint or face checks.
type BiometricManager struct {
	app *WebApp

	mu    sync.Mutex
	state BiometricState
}

func newBiometricManager(w *WebApp) *BiometricManager {
	return &BiometricManager{app: w}
}

// State returns a copy of the last reported state.
func (b *BiometricManager) State() BiometricState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *BiometricManager) update(e BiometricManagerUpdated) {
	b.mu.Lock()
	b.state = BiometricState{
		Inited:          true,
		Available:       e.Available,
		Type:            e.Type,
		AccessRequested: e.AccessRequested,
		AccessGranted:   e.AccessGranted,
		TokenSaved:      e.TokenSaved,
		DeviceID:        e.DeviceID,
	}
	b.mu.Unlock()
}

// Init fetches the biometric state. The other methods need it first.
func (b *BiometricManager) Init(cb func(error)) error {
	if err := b.app.guard(version.Biometric); err != nil {
		return err
	}
	return call(b.app, "web_app_biometry_get_info", nil, func(e BiometricManagerUpdated, err error) {
		if err == nil {
			b.update(e)
		}
		if cb != nil {
			cb(err)
		}
	})
}

// RequestAccess asks the user to allow biometrics. cb receives whether
// access is granted.
func (b *BiometricManager) RequestAccess(reason string, cb func(bool, error)) error {
	if err := b.ready(); err != nil {
		return err
	}
	reason, err := checkReason(reason)
	if err != nil {
		return err
	}
	return call(b.app, "web_app_biometry_request_access", map[string]string{"reason": reason},
		func(e BiometricManagerUpdated, err error) {
			if err == nil {
				b.update(e)
			}
			if cb != nil {
				cb(err == nil && e.AccessGranted, err)
			}
		})
}

// Authenticate checks the user and returns the stored token on success.
func (b *BiometricManager) Authenticate(reason string, cb func(ok bool, token string, err error)) error {
	if err := b.ready(); err != nil {
		return err
	}
	if !b.State().AccessGranted {
		return invalid("biometric access not granted")
	}
	reason, err := checkReason(reason)
	if err != nil {
		return err
	}
	return call(b.app, "web_app_biometry_request_auth", map[string]string{"reason": reason},
		func(e BiometricAuthRequested, err error) {
			if cb != nil {
				ok := err == nil && e.Status == "authorized"
				cb(ok, e.Token, err)
			}
		})
}

// UpdateBiometricToken stores token, or removes it when token is empty.
func (b *BiometricManager) UpdateBiometricToken(token string, cb func(bool, error)) error {
	if err := b.ready(); err != nil {
		return err
	}
	if len(token) > MaxBiometricToken {
		return invalid("biometric token is %d bytes, max %d", len(token), MaxBiometricToken)
	}
	return call(b.app, "web_app_biometry_update_token", map[string]string{"token": token},
		func(e BiometricTokenUpdated, err error) {
			if err == nil && e.Status != "failed" {
				b.mu.Lock()
				b.state.TokenSaved = token != ""
				b.mu.Unlock()
			}
			if cb != nil {
				cb(err == nil && e.Status != "failed", err)
			}
		})
}

// OpenSettings opens the host's biometric settings page.
func (b *BiometricManager) OpenSettings() error {
	if err := b.ready(); err != nil {
		return err
	}
	return b.app.notify("web_app_biometry_open_settings", nil)
}

func (b *BiometricManager) ready() error {
	if err := b.app.guard(version.Biometric); err != nil {
		return err
	}
	if !b.State().Inited {
		return ErrNotInitialized
	}
	return nil
}

func checkReason(reason string) (string, error) {
	reason = strings.TrimSpace(reason)
	if n := utf8.RuneCountInString(reason); n > MaxBiometricReason {
		return "", invalid("reason is %d characters, max %d", n, MaxBiometricReason)
	}
	return reason, nil
}
