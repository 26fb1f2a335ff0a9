package views

import (
	"html/template"
	"io"
)

// Link is one navigation entry. Action links submit to Action and then
// land on Href.
type Link struct {
	Label  string `json:"label"`
	Href   string `json:"href"`
	Action string `json:"action,omitempty"`
}

// Navbar lists the navigation links for the session's login state.
func Navbar(isLoggedIn bool) []Link {
	links := []Link{{Label: "Home", Href: "/"}}
	if !isLoggedIn {
		return append(links, Link{Label: "SignIn", Href: "/signin"})
	}
	return append(links,
		Link{Label: "My Order", Href: "/myorder"},
		Link{Label: "Cart", Href: "/cart"},
		Link{Label: "SignOut", Href: "/", Action: "/api/signout"},
	)
}

var navbarTemplate = template.Must(template.New("navbar").Parse(`<nav class="navbar">
  <a class="app-name" href="/">SnapShop</a>
  <div class="nav-links">
{{- range .}}
{{- if .Action}}
    <form method="post" action="{{.Action}}"><input type="hidden" name="redirect" value="{{.Href}}"><button type="submit">{{.Label}}</button></form>
{{- else}}
    <a href="{{.Href}}">{{.Label}}</a>
{{- end}}
{{- end}}
  </div>
</nav>
`))

func RenderNavbar(w io.Writer, isLoggedIn bool) error {
	return navbarTemplate.Execute(w, Navbar(isLoggedIn))
}
