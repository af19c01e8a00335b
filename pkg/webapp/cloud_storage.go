package webapp

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/go-drift/miniapp/pkg/version"
)

// Cloud storage limits.
const (
	MaxStorageKey   = 128
	MaxStorageValue = 4096
)

var storageKey = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// StorageError is a failure the host reported for a storage call.
type StorageError struct {
	Method string
	Reason string
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %s", e.Method, e.Reason)
}

// CloudStorage is the bot's per-user key/value store on the host's
// servers.
type CloudStorage struct {
	app *WebApp
}

type customMethod struct {
	Method string `json:"method"`
	Params any    `json:"params"`
}

// SetItem stores value under key.
func (s *CloudStorage) SetItem(key, value string, cb func(bool, error)) error {
	if err := s.app.guard(version.CloudStorage); err != nil {
		return err
	}
	if err := checkStorageKey(key); err != nil {
		return err
	}
	if len(value) > MaxStorageValue {
		return invalid("value for %q is %d bytes, max %d", key, len(value), MaxStorageValue)
	}
	return invoke(s, "saveStorageValue", map[string]string{"key": key, "value": value}, func(_ bool, err error) {
		if cb != nil {
			cb(err == nil, err)
		}
	})
}

// GetItem returns the value stored under key, or "" when absent.
func (s *CloudStorage) GetItem(key string, cb func(string, error)) error {
	return s.GetItems([]string{key}, func(values map[string]string, err error) {
		if cb != nil {
			cb(values[key], err)
		}
	})
}

// GetItems returns the values stored under keys. Absent keys map to "".
func (s *CloudStorage) GetItems(keys []string, cb func(map[string]string, error)) error {
	if err := s.app.guard(version.CloudStorage); err != nil {
		return err
	}
	if err := checkStorageKeys(keys); err != nil {
		return err
	}
	return invoke(s, "getStorageValues", map[string][]string{"keys": keys}, cb)
}

// RemoveItem deletes key.
func (s *CloudStorage) RemoveItem(key string, cb func(bool, error)) error {
	return s.RemoveItems([]string{key}, cb)
}

// RemoveItems deletes every key in keys.
func (s *CloudStorage) RemoveItems(keys []string, cb func(bool, error)) error {
	if err := s.app.guard(version.CloudStorage); err != nil {
		return err
	}
	if err := checkStorageKeys(keys); err != nil {
		return err
	}
	return invoke(s, "deleteStorageValues", map[string][]string{"keys": keys}, func(_ bool, err error) {
		if cb != nil {
			cb(err == nil, err)
		}
	})
}

// GetKeys lists every stored key.
func (s *CloudStorage) GetKeys(cb func([]string, error)) error {
	if err := s.app.guard(version.CloudStorage); err != nil {
		return err
	}
	return invoke(s, "getStorageKeys", struct{}{}, cb)
}

// invoke runs a custom method and decodes its result into T. Callers
// check the CloudStorage gate first.
func invoke[T any](s *CloudStorage, method string, params any, cb func(T, error)) error {
	return call(s.app, "web_app_invoke_custom_method", customMethod{Method: method, Params: params},
		func(e CustomMethodInvoked, err error) {
			var v T
			if err == nil && e.Error != "" {
				err = &StorageError{Method: method, Reason: e.Error}
			}
			if err == nil && len(e.Result) > 0 {
				if uerr := json.Unmarshal(e.Result, &v); uerr != nil {
					err = fmt.Errorf("%s result: %w", method, uerr)
				}
			}
			if cb != nil {
				cb(v, err)
			}
		})
}

func checkStorageKey(key string) error {
	if !storageKey.MatchString(key) {
		return invalid("storage key %q must be 1..%d characters of A-Z, a-z, 0-9, _ and -", key, MaxStorageKey)
	}
	return nil
}

func checkStorageKeys(keys []string) error {
	if len(keys) == 0 {
		return invalid("no storage keys")
	}
	for _, k := range keys {
		if err := checkStorageKey(k); err != nil {
			return err
		}
	}
	return nil
}
