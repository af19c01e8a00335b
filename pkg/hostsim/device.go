package hostsim

import (
	"encoding/json"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/go-drift/miniapp/pkg/wire"
)

// Profile describes the device a Device pretends to be. It doubles as the
// simulator section of the CLI config file.
type Profile struct {
	Version        string            `yaml:"version"`
	Platform       string            `yaml:"platform"`
	Theme          map[string]string `yaml:"theme"`
	ViewportHeight float64           `yaml:"viewport_height"`
	Clipboard      string            `yaml:"clipboard"`
	QRText         string            `yaml:"qr_text"`
	InvoiceStatus  string            `yaml:"invoice_status"`
	Biometric      bool              `yaml:"biometric"`
	Location       *Fix              `yaml:"location"`
}

// Fix is a simulated position.
type Fix struct {
	Latitude  float64 `yaml:"latitude" json:"latitude"`
	Longitude float64 `yaml:"longitude" json:"longitude"`
}

// DefaultProfile is a dark themed phone on a recent API.
func DefaultProfile() Profile {
	return Profile{
		Version:  "9.1",
		Platform: "android",
		Theme: map[string]string{
			"bg_color":            "#17212b",
			"text_color":          "#f5f5f5",
			"hint_color":          "#708499",
			"link_color":          "#6ab3f3",
			"button_color":        "#5288c1",
			"button_text_color":   "#ffffff",
			"secondary_bg_color":  "#232e3c",
			"bottom_bar_bg_color": "#232e3c",
		},
		ViewportHeight: 720,
		InvoiceStatus:  "paid",
		Biometric:      true,
	}
}

// Device answers calls the way a cooperative host would. Its storage lives
// in memory for the life of the Device.
type Device struct {
	profile Profile

	mu      sync.Mutex
	cloud   map[string]string
	local   map[string]string
	secure  map[string]string
	token   string
	granted bool
	sensors map[string]bool
}

// NewDevice creates a device for p.
func NewDevice(p Profile) *Device {
	return &Device{
		profile: p,
		cloud:   make(map[string]string),
		local:   make(map[string]string),
		secure:  make(map[string]string),
		sensors: make(map[string]bool),
	}
}

// Profile returns the device profile.
func (d *Device) Profile() Profile { return d.profile }

// Install registers the device's responders on h.
func (d *Device) Install(h *Host) {
	reply := func(name string, payload any) Responder {
		return func(h *Host, c wire.Envelope) { d.reply(h, c, name, payload) }
	}

	h.Handle("web_app_expand", func(h *Host, c wire.Envelope) {
		d.emit(h, "viewportChanged", map[string]any{
			"height": d.profile.ViewportHeight, "isStateStable": true, "isExpanded": true,
		})
	})
	h.Handle("web_app_request_fullscreen", func(h *Host, c wire.Envelope) {
		d.emit(h, "fullscreenChanged", map[string]bool{"isFullscreen": true})
	})
	h.Handle("web_app_exit_fullscreen", func(h *Host, c wire.Envelope) {
		d.emit(h, "fullscreenChanged", map[string]bool{"isFullscreen": false})
	})
	h.Handle("web_app_add_to_home_screen", func(h *Host, c wire.Envelope) {
		d.emit(h, "homeScreenAdded", nil)
	})
	h.Handle("web_app_open_popup", d.popup)
	h.Handle("web_app_open_scan_qr_popup", func(h *Host, c wire.Envelope) {
		if d.profile.QRText != "" {
			d.emit(h, "qrTextReceived", map[string]string{"data": d.profile.QRText})
		}
	})
	h.Handle("web_app_close_scan_qr_popup", func(h *Host, c wire.Envelope) {
		d.emit(h, "scanQrPopupClosed", nil)
	})
	h.Handle("web_app_read_text_from_clipboard", reply("clipboardTextReceived", map[string]string{"data": d.profile.Clipboard}))
	h.Handle("web_app_open_invoice", func(h *Host, c wire.Envelope) {
		var p struct {
			Slug string `json:"slug"`
		}
		_ = c.Into(&p)
		d.reply(h, c, "invoiceClosed", map[string]string{"url": p.Slug, "status": d.profile.InvoiceStatus})
	})
	h.Handle("web_app_check_home_screen", reply("homeScreenChecked", map[string]string{"status": "missed"}))
	h.Handle("web_app_request_phone", reply("contactRequested", map[string]string{"status": "sent"}))
	h.Handle("web_app_request_write_access", reply("writeAccessRequested", map[string]string{"status": "allowed"}))
	h.Handle("web_app_request_file_download", reply("fileDownloadRequested", map[string]string{"status": "downloading"}))
	h.Handle("web_app_send_prepared_message", reply("shareMessageSent", nil))
	h.Handle("web_app_set_emoji_status", reply("emojiStatusSet", nil))
	h.Handle("web_app_request_emoji_status_access", reply("emojiStatusAccessRequested", map[string]string{"status": "allowed"}))
	h.Handle("web_app_invoke_custom_method", d.customMethod)

	h.Handle("web_app_biometry_get_info", d.biometryInfo)
	h.Handle("web_app_biometry_request_access", func(h *Host, c wire.Envelope) {
		d.mu.Lock()
		d.granted = d.profile.Biometric
		d.mu.Unlock()
		d.biometryInfo(h, c)
	})
	h.Handle("web_app_biometry_request_auth", d.biometryAuth)
	h.Handle("web_app_biometry_update_token", d.biometryToken)

	h.Handle("web_app_check_location", d.locationInfo)
	h.Handle("web_app_request_location", d.locate)

	for _, s := range []string{"accelerometer", "gyroscope", "device_orientation"} {
		event := sensorEvents[s]
		h.Handle("web_app_start_"+s, d.sensor(s, event+"Started", true))
		h.Handle("web_app_stop_"+s, d.sensor(s, event+"Stopped", false))
	}

	h.Handle("web_app_device_storage_save_key", d.save(d.local, "deviceStorageResult"))
	h.Handle("web_app_device_storage_get_key", d.load(d.local, "deviceStorageResult"))
	h.Handle("web_app_device_storage_clear", d.clear(d.local, "deviceStorageResult"))
	h.Handle("web_app_secure_storage_save_key", d.save(d.secure, "secureStorageResult"))
	h.Handle("web_app_secure_storage_get_key", d.load(d.secure, "secureStorageResult"))
	h.Handle("web_app_secure_storage_restore_key", d.load(d.secure, "secureStorageResult"))
	h.Handle("web_app_secure_storage_clear", d.clear(d.secure, "secureStorageResult"))
}

var sensorEvents = map[string]string{
	"accelerometer":      "accelerometer",
	"gyroscope":          "gyroscope",
	"device_orientation": "deviceOrientation",
}

// Sensing reports whether the named sensor (accelerometer, gyroscope,
// device_orientation) is running.
func (d *Device) Sensing(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sensors[name]
}

// CloudKeys lists the keys in cloud storage.
func (d *Device) CloudKeys() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return sortedKeys(d.cloud)
}

func (d *Device) reply(h *Host, c wire.Envelope, name string, payload any) {
	if err := h.Reply(c, name, payload); err != nil {
		h.log.Debug("device reply failed", zap.String("method", c.Method), zap.Error(err))
	}
}

func (d *Device) emit(h *Host, name string, payload any) {
	if err := h.Emit(name, payload); err != nil {
		h.log.Debug("device emit failed", zap.String("event", name), zap.Error(err))
	}
}

func (d *Device) popup(h *Host, c wire.Envelope) {
	var p struct {
		Buttons []struct {
			ID string `json:"id"`
		} `json:"buttons"`
	}
	_ = c.Into(&p)
	id := ""
	if len(p.Buttons) > 0 {
		id = p.Buttons[0].ID
	}
	d.reply(h, c, "popupClosed", map[string]string{"buttonId": id})
}

func (d *Device) customMethod(h *Host, c wire.Envelope) {
	var req struct {
		Method string `json:"method"`
		Params struct {
			Key   string   `json:"key"`
			Value string   `json:"value"`
			Keys  []string `json:"keys"`
		} `json:"params"`
	}
	if err := c.Into(&req); err != nil {
		d.reply(h, c, "customMethodInvoked", map[string]string{"error": "BAD_REQUEST"})
		return
	}

	d.mu.Lock()
	var result any
	switch req.Method {
	case "saveStorageValue":
		d.cloud[req.Params.Key] = req.Params.Value
		result = true
	case "getStorageValues":
		values := make(map[string]string, len(req.Params.Keys))
		for _, k := range req.Params.Keys {
			values[k] = d.cloud[k]
		}
		result = values
	case "deleteStorageValues":
		for _, k := range req.Params.Keys {
			delete(d.cloud, k)
		}
		result = true
	case "getStorageKeys":
		result = sortedKeys(d.cloud)
	}
	d.mu.Unlock()

	if result == nil {
		d.reply(h, c, "customMethodInvoked", map[string]string{"error": "UNKNOWN_METHOD"})
		return
	}
	raw, _ := json.Marshal(result)
	d.reply(h, c, "customMethodInvoked", map[string]json.RawMessage{"result": raw})
}

func (d *Device) biometryInfo(h *Host, c wire.Envelope) {
	d.mu.Lock()
	info := map[string]any{
		"available":       d.profile.Biometric,
		"accessRequested": d.granted,
		"accessGranted":   d.granted,
		"tokenSaved":      d.token != "",
		"type":            "finger",
		"deviceId":        "hostsim",
	}
	d.mu.Unlock()
	if !d.profile.Biometric {
		info["type"] = "unknown"
	}
	d.reply(h, c, "biometricManagerUpdated", info)
}

func (d *Device) biometryAuth(h *Host, c wire.Envelope) {
	d.mu.Lock()
	ok, token := d.granted, d.token
	d.mu.Unlock()
	if !ok {
		d.reply(h, c, "biometricAuthRequested", map[string]string{"status": "failed"})
		return
	}
	d.reply(h, c, "biometricAuthRequested", map[string]string{"status": "authorized", "token": token})
}

func (d *Device) biometryToken(h *Host, c wire.Envelope) {
	var p struct {
		Token string `json:"token"`
	}
	_ = c.Into(&p)
	d.mu.Lock()
	d.token = p.Token
	d.mu.Unlock()
	status := "updated"
	if p.Token == "" {
		status = "removed"
	}
	d.reply(h, c, "biometricTokenUpdated", map[string]string{"status": status})
}

func (d *Device) locationInfo(h *Host, c wire.Envelope) {
	available := d.profile.Location != nil
	d.reply(h, c, "locationManagerUpdated", map[string]bool{
		"available": available, "accessRequested": available, "accessGranted": available,
	})
}

func (d *Device) locate(h *Host, c wire.Envelope) {
	if d.profile.Location == nil {
		d.reply(h, c, "locationRequested", map[string]bool{"available": false})
		return
	}
	d.reply(h, c, "locationRequested", map[string]any{"available": true, "location": d.profile.Location})
}

func (d *Device) sensor(name, event string, on bool) Responder {
	return func(h *Host, c wire.Envelope) {
		d.mu.Lock()
		d.sensors[name] = on
		d.mu.Unlock()
		d.reply(h, c, event, nil)
	}
}

func (d *Device) save(store map[string]string, event string) Responder {
	return func(h *Host, c wire.Envelope) {
		var p struct {
			Key   string  `json:"key"`
			Value *string `json:"value"`
		}
		if err := c.Into(&p); err != nil || p.Key == "" {
			d.reply(h, c, event, map[string]string{"error": "KEY_INVALID"})
			return
		}
		d.mu.Lock()
		if p.Value == nil {
			delete(store, p.Key)
		} else {
			store[p.Key] = *p.Value
		}
		d.mu.Unlock()
		d.reply(h, c, event, map[string]any{"value": p.Value})
	}
}

func (d *Device) load(store map[string]string, event string) Responder {
	return func(h *Host, c wire.Envelope) {
		var p struct {
			Key string `json:"key"`
		}
		_ = c.Into(&p)
		d.mu.Lock()
		v, ok := store[p.Key]
		d.mu.Unlock()
		if !ok {
			d.reply(h, c, event, map[string]any{"value": nil})
			return
		}
		d.reply(h, c, event, map[string]string{"value": v})
	}
}

func (d *Device) clear(store map[string]string, event string) Responder {
	return func(h *Host, c wire.Envelope) {
		d.mu.Lock()
		for k := range store {
			delete(store, k)
		}
		d.mu.Unlock()
		d.reply(h, c, event, map[string]any{"value": nil})
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
