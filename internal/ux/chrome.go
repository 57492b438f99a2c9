package ux

import (
	"strings"

	"github.com/anyspecs/anyspecs/internal/session"
)

const ProjectURL = "https://github.com/anyspecs/anyspecs"

// NavItems lists the top navigation for the session. Users is shown to
// administrators only.
func NavItems(sess *session.Session) []string {
	items := []string{"Home", "Files", "Chat"}
	if sess.IsAdmin() {
		items = append(items, "Users")
	}
	return append(items, "Settings", "About")
}

// Header renders the navigation bar with active highlighted and the
// signed-in user, or login hints when there is no session.
func Header(sess *session.Session, systemName, active string) string {
	if systemName == "" {
		systemName = "AnySpecs"
	}
	nav := NavItems(sess)
	for i, item := range nav {
		if item == active {
			nav[i] = Styles.Active.Render(item)
		} else {
			nav[i] = Styles.Muted.Render(item)
		}
	}
	who := Styles.Muted.Render("anyspecs login · anyspecs register")
	if sess != nil {
		who = Styles.Bold.Render(sess.User.Name())
	}
	line := Styles.Title.Render(systemName) + "  " + strings.Join(nav, "  ") + "  " + who
	return Styles.Header.Render(line)
}

// Footer prefers the server-provided footer text.
func Footer(serverFooter string) string {
	if s := strings.TrimSpace(serverFooter); s != "" {
		return Styles.Muted.Render(s)
	}
	return Styles.Muted.Render("© 2025 AnySpecs · " + ProjectURL)
}
