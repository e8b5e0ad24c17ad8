// Package browser opens URLs in the user's default browser.
package browser

import (
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"runtime"
)

// EnvNoBrowser disables launching; URLs are only printed.
const EnvNoBrowser = "AIBUDDIES_NO_BROWSER"

var startCommand = func(name string, args ...string) error {
	return exec.Command(name, args...).Start()
}

// Open launches the platform's URL handler for rawURL.
func Open(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("refusing to open %q", rawURL)
	}
	if os.Getenv(EnvNoBrowser) != "" {
		return fmt.Errorf("browser launch disabled by %s", EnvNoBrowser)
	}

	name, args := command(runtime.GOOS, rawURL)
	return startCommand(name, args...)
}

func command(goos, rawURL string) (string, []string) {
	switch goos {
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", rawURL}
	case "darwin":
		return "open", []string{rawURL}
	default:
		return "xdg-open", []string{rawURL}
	}
}
