package views

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func labels(links []Link) []string {
	out := make([]string, 0, len(links))
	for _, l := range links {
		out = append(out, l.Label)
	}
	return out
}

func TestNavbar_LoggedOut(t *testing.T) {
	links := Navbar(false)

	assert.Equal(t, []string{"Home", "SignIn"}, labels(links))
	assert.Equal(t, "/signin", links[1].Href)
	assert.Empty(t, links[1].Action)
}

func TestNavbar_LoggedIn(t *testing.T) {
	links := Navbar(true)

	assert.Equal(t, []string{"Home", "My Order", "Cart", "SignOut"}, labels(links))
	signOut := links[3]
	assert.Equal(t, "/", signOut.Href)
	assert.Equal(t, "/api/signout", signOut.Action)
}

func TestRenderNavbar(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderNavbar(&buf, false))
	html := buf.String()
	assert.Contains(t, html, `<a href="/signin">SignIn</a>`)
	assert.NotContains(t, html, "Cart")

	buf.Reset()
	require.NoError(t, RenderNavbar(&buf, true))
	html = buf.String()
	assert.Contains(t, html, `<a href="/cart">Cart</a>`)
	assert.Contains(t, html, `<a href="/myorder">My Order</a>`)
	assert.Contains(t, html, `action="/api/signout"`)
	assert.Contains(t, html, `name="redirect" value="/"`)
	assert.NotContains(t, html, "SignIn")
}
