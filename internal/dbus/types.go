package dbus

// ServerCapabilities lists the capabilities advertised by notifd.
var ServerCapabilities = []string{
	"actions",         // Support notification actions
	"action-icons",    // Action keys may name icons
	"body",            // Support body text
	"body-hyperlinks", // Support hyperlinks in body
	"body-images",     // Support <img> in body
	"body-markup",     // Support Pango markup in body
	"icon-static",     // Support static icons
	"icon-multi",      // Support icon frames
	"persistence",     // Persist notifications to history
	"sound",           // Play sounds
}

// ServerInfo contains the tuple returned by GetServerInformation.
type ServerInfo struct {
	Name        string
	Vendor      string
	Version     string
	SpecVersion string
}

// DefaultServerInfo returns the default server information.
func DefaultServerInfo() ServerInfo {
	return ServerInfo{
		Name:        "notifd",
		Vendor:      "notifd",
		Version:     "0.0.1", // Replaced by build-time version
		SpecVersion: "1.2",
	}
}
