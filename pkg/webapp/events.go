package webapp

import (
	"encoding/json"

	"github.com/go-drift/miniapp/pkg/bridge"
)

// Event names in the host catalog.
const (
	EventThemeChanged               bridge.EventName = "themeChanged"
	EventViewportChanged            bridge.EventName = "viewportChanged"
	EventSafeAreaChanged            bridge.EventName = "safeAreaChanged"
	EventContentSafeAreaChanged     bridge.EventName = "contentSafeAreaChanged"
	EventActivated                  bridge.EventName = "activated"
	EventDeactivated                bridge.EventName = "deactivated"
	EventMainButtonClicked          bridge.EventName = "mainButtonClicked"
	EventSecondaryButtonClicked     bridge.EventName = "secondaryButtonClicked"
	EventBackButtonClicked          bridge.EventName = "backButtonClicked"
	EventSettingsButtonClicked      bridge.EventName = "settingsButtonClicked"
	EventInvoiceClosed              bridge.EventName = "invoiceClosed"
	EventPopupClosed                bridge.EventName = "popupClosed"
	EventQrTextReceived             bridge.EventName = "qrTextReceived"
	EventScanQrPopupClosed          bridge.EventName = "scanQrPopupClosed"
	EventClipboardTextReceived      bridge.EventName = "clipboardTextReceived"
	EventWriteAccessRequested       bridge.EventName = "writeAccessRequested"
	EventContactRequested           bridge.EventName = "contactRequested"
	EventCustomMethodInvoked        bridge.EventName = "customMethodInvoked"
	EventBiometricManagerUpdated    bridge.EventName = "biometricManagerUpdated"
	EventBiometricAuthRequested     bridge.EventName = "biometricAuthRequested"
	EventBiometricTokenUpdated      bridge.EventName = "biometricTokenUpdated"
	EventFullscreenChanged          bridge.EventName = "fullscreenChanged"
	EventFullscreenFailed           bridge.EventName = "fullscreenFailed"
	EventHomeScreenAdded            bridge.EventName = "homeScreenAdded"
	EventHomeScreenChecked          bridge.EventName = "homeScreenChecked"
	EventAccelerometerStarted       bridge.EventName = "accelerometerStarted"
	EventAccelerometerStopped       bridge.EventName = "accelerometerStopped"
	EventAccelerometerChanged       bridge.EventName = "accelerometerChanged"
	EventAccelerometerFailed        bridge.EventName = "accelerometerFailed"
	EventDeviceOrientationStarted   bridge.EventName = "deviceOrientationStarted"
	EventDeviceOrientationStopped   bridge.EventName = "deviceOrientationStopped"
	EventDeviceOrientationChanged   bridge.EventName = "deviceOrientationChanged"
	EventDeviceOrientationFailed    bridge.EventName = "deviceOrientationFailed"
	EventGyroscopeStarted           bridge.EventName = "gyroscopeStarted"
	EventGyroscopeStopped           bridge.EventName = "gyroscopeStopped"
	EventGyroscopeChanged           bridge.EventName = "gyroscopeChanged"
	EventGyroscopeFailed            bridge.EventName = "gyroscopeFailed"
	EventLocationManagerUpdated     bridge.EventName = "locationManagerUpdated"
	EventLocationRequested          bridge.EventName = "locationRequested"
	EventShareMessageSent           bridge.EventName = "shareMessageSent"
	EventShareMessageFailed         bridge.EventName = "shareMessageFailed"
	EventEmojiStatusSet             bridge.EventName = "emojiStatusSet"
	EventEmojiStatusFailed          bridge.EventName = "emojiStatusFailed"
	EventEmojiStatusAccessRequested bridge.EventName = "emojiStatusAccessRequested"
	EventFileDownloadRequested      bridge.EventName = "fileDownloadRequested"
	EventDeviceStorageResult        bridge.EventName = "deviceStorageResult"
	EventSecureStorageResult        bridge.EventName = "secureStorageResult"
)

// ThemeChanged carries the new palette. ColorScheme is nil on hosts that
// leave it to be derived from the background.
type ThemeChanged struct {
	ThemeParams ThemeParams  `json:"themeParams"`
	ColorScheme *ColorScheme `json:"colorScheme,omitempty"`
}

// ViewportChanged reports the live height. IsStateStable marks the height
// the viewport settled at.
type ViewportChanged struct {
	Height        float64 `json:"height"`
	IsStateStable bool    `json:"isStateStable"`
	IsExpanded    *bool   `json:"isExpanded,omitempty"`
}

// SafeAreaChanged carries the device safe area.
type SafeAreaChanged struct{ Insets }

// ContentSafeAreaChanged carries the area left free by host controls.
type ContentSafeAreaChanged struct{ Insets }

// Activated and Deactivated follow the app in and out of the foreground.
type Activated struct{}

type Deactivated struct{}

// Button clicks.
type MainButtonClicked struct{}

type SecondaryButtonClicked struct{}

type BackButtonClicked struct{}

type SettingsButtonClicked struct{}

// InvoiceClosed carries the invoice outcome: paid, cancelled, failed or
// pending.
type InvoiceClosed struct {
	URL    string        `json:"url"`
	Status InvoiceStatus `json:"status"`
}

// PopupClosed carries the pressed button id; it is empty when the popup was
// dismissed without one.
type PopupClosed struct {
	ButtonID string `json:"buttonId"`
}

// QrTextReceived carries one scanned code.
type QrTextReceived struct {
	Data string `json:"data"`
}

// ScanQrPopupClosed means the user closed the scanner.
type ScanQrPopupClosed struct{}

// ClipboardTextReceived carries nil Data when the host denied access.
type ClipboardTextReceived struct {
	Data *string `json:"data"`
}

// WriteAccessRequested carries "allowed" or "cancelled".
type WriteAccessRequested struct {
	Status string `json:"status"`
}

// ContactRequested carries "sent" or "cancelled".
type ContactRequested struct {
	Status string `json:"status"`
}

// CustomMethodInvoked is the reply to a cloud storage call.
type CustomMethodInvoked struct {
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// BiometricManagerUpdated is the full biometric state after any change.
type BiometricManagerUpdated struct {
	Available       bool   `json:"available"`
	AccessRequested bool   `json:"accessRequested"`
	AccessGranted   bool   `json:"accessGranted"`
	TokenSaved      bool   `json:"tokenSaved"`
	Type            string `json:"type,omitempty"`
	DeviceID        string `json:"deviceId,omitempty"`
}

// BiometricAuthRequested carries the token when Status is "authorized".
type BiometricAuthRequested struct {
	Status string `json:"status"`
	Token  string `json:"token,omitempty"`
}

// BiometricTokenUpdated carries "updated", "removed" or "failed".
type BiometricTokenUpdated struct {
	Status string `json:"status"`
}

// FullscreenChanged and FullscreenFailed answer fullscreen requests.
type FullscreenChanged struct {
	IsFullscreen bool `json:"isFullscreen"`
}

type FullscreenFailed struct {
	Error string `json:"error"`
}

// HomeScreenAdded means the user added the shortcut.
type HomeScreenAdded struct{}

// HomeScreenChecked answers CheckHomeScreenStatus.
type HomeScreenChecked struct {
	Status HomeScreenStatus `json:"status"`
}

// Sensor lifecycle and readings. Failed events carry the host's reason.
type AccelerometerStarted struct{}

type AccelerometerStopped struct{}

type AccelerometerChanged struct{ Vector }

type AccelerometerFailed struct {
	Error string `json:"error"`
}

type DeviceOrientationStarted struct{}

type DeviceOrientationStopped struct{}

type DeviceOrientationChanged struct{ Orientation }

type DeviceOrientationFailed struct {
	Error string `json:"error"`
}

type GyroscopeStarted struct{}

type GyroscopeStopped struct{}

type GyroscopeChanged struct{ Vector }

type GyroscopeFailed struct {
	Error string `json:"error"`
}

// LocationManagerUpdated is the full location state after any change.
type LocationManagerUpdated struct {
	Available       bool `json:"available"`
	AccessRequested bool `json:"accessRequested"`
	AccessGranted   bool `json:"accessGranted"`
}

// LocationRequested carries a nil Location when the host could not
// determine one.
type LocationRequested struct {
	Available bool      `json:"available"`
	Location  *Location `json:"location,omitempty"`
}

// ShareMessageSent and ShareMessageFailed answer ShareMessage.
type ShareMessageSent struct{}

type ShareMessageFailed struct {
	Error string `json:"error"`
}

// EmojiStatusSet and EmojiStatusFailed answer SetEmojiStatus.
type EmojiStatusSet struct{}

type EmojiStatusFailed struct {
	Error string `json:"error"`
}

// EmojiStatusAccessRequested carries "allowed" or "cancelled".
type EmojiStatusAccessRequested struct {
	Status string `json:"status"`
}

// FileDownloadRequested carries "downloading" or "cancelled".
type FileDownloadRequested struct {
	Status string `json:"status"`
}

// DeviceStorageResult answers a device storage call. Value is nil for a
// missing key.
type DeviceStorageResult struct {
	Value *string `json:"value"`
	Error string  `json:"error,omitempty"`
}

// SecureStorageResult answers a secure storage call. CanRestore is set
// when a missing value may be restored from a backup.
type SecureStorageResult struct {
	Value      *string `json:"value"`
	CanRestore bool    `json:"canRestore,omitempty"`
	Error      string  `json:"error,omitempty"`
}

func (ThemeChanged) EventName() bridge.EventName             { return EventThemeChanged }
func (ViewportChanged) EventName() bridge.EventName          { return EventViewportChanged }
func (SafeAreaChanged) EventName() bridge.EventName          { return EventSafeAreaChanged }
func (ContentSafeAreaChanged) EventName() bridge.EventName   { return EventContentSafeAreaChanged }
func (Activated) EventName() bridge.EventName                { return EventActivated }
func (Deactivated) EventName() bridge.EventName              { return EventDeactivated }
func (MainButtonClicked) EventName() bridge.EventName        { return EventMainButtonClicked }
func (SecondaryButtonClicked) EventName() bridge.EventName   { return EventSecondaryButtonClicked }
func (BackButtonClicked) EventName() bridge.EventName        { return EventBackButtonClicked }
func (SettingsButtonClicked) EventName() bridge.EventName    { return EventSettingsButtonClicked }
func (InvoiceClosed) EventName() bridge.EventName            { return EventInvoiceClosed }
func (PopupClosed) EventName() bridge.EventName              { return EventPopupClosed }
func (QrTextReceived) EventName() bridge.EventName           { return EventQrTextReceived }
func (ScanQrPopupClosed) EventName() bridge.EventName        { return EventScanQrPopupClosed }
func (ClipboardTextReceived) EventName() bridge.EventName    { return EventClipboardTextReceived }
func (WriteAccessRequested) EventName() bridge.EventName     { return EventWriteAccessRequested }
func (ContactRequested) EventName() bridge.EventName         { return EventContactRequested }
func (CustomMethodInvoked) EventName() bridge.EventName      { return EventCustomMethodInvoked }
func (BiometricManagerUpdated) EventName() bridge.EventName  { return EventBiometricManagerUpdated }
func (BiometricAuthRequested) EventName() bridge.EventName   { return EventBiometricAuthRequested }
func (BiometricTokenUpdated) EventName() bridge.EventName    { return EventBiometricTokenUpdated }
func (FullscreenChanged) EventName() bridge.EventName        { return EventFullscreenChanged }
func (FullscreenFailed) EventName() bridge.EventName         { return EventFullscreenFailed }
func (HomeScreenAdded) EventName() bridge.EventName          { return EventHomeScreenAdded }
func (HomeScreenChecked) EventName() bridge.EventName        { return EventHomeScreenChecked }
func (AccelerometerStarted) EventName() bridge.EventName     { return EventAccelerometerStarted }
func (AccelerometerStopped) EventName() bridge.EventName     { return EventAccelerometerStopped }
func (AccelerometerChanged) EventName() bridge.EventName     { return EventAccelerometerChanged }
func (AccelerometerFailed) EventName() bridge.EventName      { return EventAccelerometerFailed }
func (DeviceOrientationStarted) EventName() bridge.EventName { return EventDeviceOrientationStarted }
func (DeviceOrientationStopped) EventName() bridge.EventName { return EventDeviceOrientationStopped }
func (DeviceOrientationChanged) EventName() bridge.EventName { return EventDeviceOrientationChanged }
func (DeviceOrientationFailed) EventName() bridge.EventName  { return EventDeviceOrientationFailed }
func (GyroscopeStarted) EventName() bridge.EventName         { return EventGyroscopeStarted }
func (GyroscopeStopped) EventName() bridge.EventName         { return EventGyroscopeStopped }
func (GyroscopeChanged) EventName() bridge.EventName         { return EventGyroscopeChanged }
func (GyroscopeFailed) EventName() bridge.EventName          { return EventGyroscopeFailed }
func (LocationManagerUpdated) EventName() bridge.EventName   { return EventLocationManagerUpdated }
func (LocationRequested) EventName() bridge.EventName        { return EventLocationRequested }
func (ShareMessageSent) EventName() bridge.EventName         { return EventShareMessageSent }
func (ShareMessageFailed) EventName() bridge.EventName       { return EventShareMessageFailed }
func (EmojiStatusSet) EventName() bridge.EventName           { return EventEmojiStatusSet }
func (EmojiStatusFailed) EventName() bridge.EventName        { return EventEmojiStatusFailed }

func (EmojiStatusAccessRequested) EventName() bridge.EventName {
	return EventEmojiStatusAccessRequested
}

func (FileDownloadRequested) EventName() bridge.EventName { return EventFileDownloadRequested }
func (DeviceStorageResult) EventName() bridge.EventName   { return EventDeviceStorageResult }
func (SecureStorageResult) EventName() bridge.EventName   { return EventSecureStorageResult }

// Catalog decodes every event the host may send.
var Catalog = bridge.Catalog{
	EventThemeChanged:               bridge.Decoder[ThemeChanged](),
	EventViewportChanged:            bridge.Decoder[ViewportChanged](),
	EventSafeAreaChanged:            bridge.Decoder[SafeAreaChanged](),
	EventContentSafeAreaChanged:     bridge.Decoder[ContentSafeAreaChanged](),
	EventActivated:                  bridge.Decoder[Activated](),
	EventDeactivated:                bridge.Decoder[Deactivated](),
	EventMainButtonClicked:          bridge.Decoder[MainButtonClicked](),
	EventSecondaryButtonClicked:     bridge.Decoder[SecondaryButtonClicked](),
	EventBackButtonClicked:          bridge.Decoder[BackButtonClicked](),
	EventSettingsButtonClicked:      bridge.Decoder[SettingsButtonClicked](),
	EventInvoiceClosed:              bridge.Decoder[InvoiceClosed](),
	EventPopupClosed:                bridge.Decoder[PopupClosed](),
	EventQrTextReceived:             bridge.Decoder[QrTextReceived](),
	EventScanQrPopupClosed:          bridge.Decoder[ScanQrPopupClosed](),
	EventClipboardTextReceived:      bridge.Decoder[ClipboardTextReceived](),
	EventWriteAccessRequested:       bridge.Decoder[WriteAccessRequested](),
	EventContactRequested:           bridge.Decoder[ContactRequested](),
	EventCustomMethodInvoked:        bridge.Decoder[CustomMethodInvoked](),
	EventBiometricManagerUpdated:    bridge.Decoder[BiometricManagerUpdated](),
	EventBiometricAuthRequested:     bridge.Decoder[BiometricAuthRequested](),
	EventBiometricTokenUpdated:      bridge.Decoder[BiometricTokenUpdated](),
	EventFullscreenChanged:          bridge.Decoder[FullscreenChanged](),
	EventFullscreenFailed:           bridge.Decoder[FullscreenFailed](),
	EventHomeScreenAdded:            bridge.Decoder[HomeScreenAdded](),
	EventHomeScreenChecked:          bridge.Decoder[HomeScreenChecked](),
	EventAccelerometerStarted:       bridge.Decoder[AccelerometerStarted](),
	EventAccelerometerStopped:       bridge.Decoder[AccelerometerStopped](),
	EventAccelerometerChanged:       bridge.Decoder[AccelerometerChanged](),
	EventAccelerometerFailed:        bridge.Decoder[AccelerometerFailed](),
	EventDeviceOrientationStarted:   bridge.Decoder[DeviceOrientationStarted](),
	EventDeviceOrientationStopped:   bridge.Decoder[DeviceOrientationStopped](),
	EventDeviceOrientationChanged:   bridge.Decoder[DeviceOrientationChanged](),
	EventDeviceOrientationFailed:    bridge.Decoder[DeviceOrientationFailed](),
	EventGyroscopeStarted:           bridge.Decoder[GyroscopeStarted](),
	EventGyroscopeStopped:           bridge.Decoder[GyroscopeStopped](),
	EventGyroscopeChanged:           bridge.Decoder[GyroscopeChanged](),
	EventGyroscopeFailed:            bridge.Decoder[GyroscopeFailed](),
	EventLocationManagerUpdated:     bridge.Decoder[LocationManagerUpdated](),
	EventLocationRequested:          bridge.Decoder[LocationRequested](),
	EventShareMessageSent:           bridge.Decoder[ShareMessageSent](),
	EventShareMessageFailed:         bridge.Decoder[ShareMessageFailed](),
	EventEmojiStatusSet:             bridge.Decoder[EmojiStatusSet](),
	EventEmojiStatusFailed:          bridge.Decoder[EmojiStatusFailed](),
	EventEmojiStatusAccessRequested: bridge.Decoder[EmojiStatusAccessRequested](),
	EventFileDownloadRequested:      bridge.Decoder[FileDownloadRequested](),
	EventDeviceStorageResult:        bridge.Decoder[DeviceStorageResult](),
	EventSecureStorageResult:        bridge.Decoder[SecureStorageResult](),
}
