package webapp

import (
	"github.com/go-drift/miniapp/pkg/version"
)

// DeviceStorage is plain key/value storage kept on the device.
type DeviceStorage struct {
	app *WebApp
}

func (s *DeviceStorage) SetItem(key, value string, cb func(bool, error)) error {
	if err := checkDeviceKey(key); err != nil {
		return err
	}
	return s.save(map[string]any{"key": key, "value": value}, cb)
}

// GetItem returns the value under key; ok is false when none is stored.
func (s *DeviceStorage) GetItem(key string, cb func(value string, ok bool, err error)) error {
	if err := s.app.guard(version.DeviceStorage); err != nil {
		return err
	}
	if err := checkDeviceKey(key); err != nil {
		return err
	}
	return call(s.app, "web_app_device_storage_get_key", map[string]string{"key": key},
		func(r DeviceStorageResult, err error) {
			err = storageFailure("web_app_device_storage_get_key", r.Error, err)
			if cb != nil {
				cb(deref(r.Value), r.Value != nil && err == nil, err)
			}
		})
}

func (s *DeviceStorage) RemoveItem(key string, cb func(bool, error)) error {
	if err := checkDeviceKey(key); err != nil {
		return err
	}
	return s.save(map[string]any{"key": key, "value": nil}, cb)
}

func (s *DeviceStorage) Clear(cb func(bool, error)) error {
	if err := s.app.guard(version.DeviceStorage); err != nil {
		return err
	}
	return storageCall[DeviceStorageResult](s.app, "web_app_device_storage_clear", nil, cb)
}

func (s *DeviceStorage) save(payload map[string]any, cb func(bool, error)) error {
	if err := s.app.guard(version.DeviceStorage); err != nil {
		return err
	}
	return storageCall[DeviceStorageResult](s.app, "web_app_device_storage_save_key", payload, cb)
}

// SecureStorage is key/value storage in the device keychain.
type SecureStorage struct {
	app *WebApp
}

func (s *SecureStorage) SetItem(key, value string, cb func(bool, error)) error {
	if err := checkDeviceKey(key); err != nil {
		return err
	}
	return s.save(map[string]any{"key": key, "value": value}, cb)
}

// GetItem returns the value under key. When none is stored canRestore
// reports whether RestoreItem may recover it from a backup.
func (s *SecureStorage) GetItem(key string, cb func(value string, canRestore bool, err error)) error {
	if err := s.app.guard(version.SecureStorage); err != nil {
		return err
	}
	if err := checkDeviceKey(key); err != nil {
		return err
	}
	return call(s.app, "web_app_secure_storage_get_key", map[string]string{"key": key},
		func(r SecureStorageResult, err error) {
			err = storageFailure("web_app_secure_storage_get_key", r.Error, err)
			if cb != nil {
				cb(deref(r.Value), r.CanRestore, err)
			}
		})
}

// RestoreItem recovers key from a backup on another device.
func (s *SecureStorage) RestoreItem(key string, cb func(string, error)) error {
	if err := s.app.guard(version.SecureStorage); err != nil {
		return err
	}
	if err := checkDeviceKey(key); err != nil {
		return err
	}
	return call(s.app, "web_app_secure_storage_restore_key", map[string]string{"key": key},
		func(r SecureStorageResult, err error) {
			err = storageFailure("web_app_secure_storage_restore_key", r.Error, err)
			if cb != nil {
				cb(deref(r.Value), err)
			}
		})
}

func (s *SecureStorage) RemoveItem(key string, cb func(bool, error)) error {
	if err := checkDeviceKey(key); err != nil {
		return err
	}
	return s.save(map[string]any{"key": key, "value": nil}, cb)
}

func (s *SecureStorage) Clear(cb func(bool, error)) error {
	if err := s.app.guard(version.SecureStorage); err != nil {
		return err
	}
	return storageCall[SecureStorageResult](s.app, "web_app_secure_storage_clear", nil, cb)
}

func (s *SecureStorage) save(payload map[string]any, cb func(bool, error)) error {
	if err := s.app.guard(version.SecureStorage); err != nil {
		return err
	}
	return storageCall[SecureStorageResult](s.app, "web_app_secure_storage_save_key", payload, cb)
}

type storageResult interface {
	DeviceStorageResult | SecureStorageResult
}

// storageCall runs a write and reports success.
func storageCall[R storageResult](w *WebApp, method string, payload any, cb func(bool, error)) error {
	return call(w, method, payload, func(r R, err error) {
		var reason string
		switch r := any(r).(type) {
		case DeviceStorageResult:
			reason = r.Error
		case SecureStorageResult:
			reason = r.Error
		}
		err = storageFailure(method, reason, err)
		if cb != nil {
			cb(err == nil, err)
		}
	})
}

func storageFailure(method, reason string, err error) error {
	if err == nil && reason != "" {
		return &StorageError{Method: method, Reason: reason}
	}
	return err
}

func checkDeviceKey(key string) error {
	if key == "" {
		return invalid("storage key is empty")
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
