package webapp

import (
	"strings"

	"github.com/go-drift/miniapp/pkg/version"
)

// DownloadFileParams names the file to download.
type DownloadFileParams struct {
	URL      string `json:"url"`
	FileName string `json:"file_name"`
}

// RequestContact asks the user to share their phone number. cb receives
// false when they declined.
func (w *WebApp) RequestContact(cb func(bool, error)) error {
	if err := w.guard(version.Contact); err != nil {
		return err
	}
	return call(w, "web_app_request_phone", nil, func(e ContactRequested, err error) {
		if cb != nil {
			cb(e.Status == "sent", err)
		}
	})
}

// RequestWriteAccess asks for permission for the bot to message the user.
func (w *WebApp) RequestWriteAccess(cb func(bool, error)) error {
	if err := w.guard(version.WriteAccess); err != nil {
		return err
	}
	return call(w, "web_app_request_write_access", nil, func(e WriteAccessRequested, err error) {
		if cb != nil {
			cb(e.Status == "allowed", err)
		}
	})
}

// DownloadFile shows the native download prompt. cb receives true when the
// download started.
func (w *WebApp) DownloadFile(params DownloadFileParams, cb func(bool, error)) error {
	if err := w.guard(version.DownloadFile); err != nil {
		return err
	}
	if err := checkHTTPURL(params.URL); err != nil {
		return err
	}
	params.FileName = strings.TrimSpace(params.FileName)
	if params.FileName == "" {
		return invalid("file name is empty")
	}
	return call(w, "web_app_request_file_download", params, func(e FileDownloadRequested, err error) {
		if cb != nil {
			cb(e.Status == "downloading", err)
		}
	})
}
