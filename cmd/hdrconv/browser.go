package main

import (
	"os/exec"
	"runtime"
)

// startOpener launches a detached helper process; tests replace it.
var startOpener = func(name string, args ...string) error {
	return exec.Command(name, args...).Start()
}

// openInDesktop opens target (a URL or a directory) with the platform's
// default handler.
func openInDesktop(target string) error {
	switch runtime.GOOS {
	case "darwin":
		return startOpener("open", target)
	case "windows":
		return startOpener("rundll32", "url.dll,FileProtocolHandler", target)
	default:
		return startOpener("xdg-open", target)
	}
}
