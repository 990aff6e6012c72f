package outreach

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildLink_Literal(t *testing.T) {
	got := BuildLink("(11) 98765-4321", "Olá!")
	assert.Equal(t, "https://web.whatsapp.com/send?phone=5511987654321&text=Ol%C3%A1%21", got)
}

func TestBuildLink_SpacesAndReservedCharacters(t *testing.T) {
	msg := "Oi Ana, 50% & 2+2=4?\nAté já"
	got := BuildLink("11 9999-0000", msg)

	assert.Contains(t, got, "text=Oi%20Ana%2C%2050%25%20%26%202%2B2%3D4%3F%0AAt%C3%A9%20j%C3%A1")

	parsed, err := url.Parse(got)
	require.NoError(t, err)
	assert.Equal(t, msg, parsed.Query().Get("text"))
	assert.Equal(t, "55119999", parsed.Query().Get("phone")[:8])
}

func TestBuildLink_MalformedPhoneIsNotRejected(t *testing.T) {
	assert.Equal(t, "https://web.whatsapp.com/send?phone=55&text=oi", BuildLink("sem telefone", "oi"))
}

func TestLinkBuilder_Custom(t *testing.T) {
	b := NewLinkBuilder("https://wa.me/send", "+1")
	assert.Equal(t, "https://wa.me/send?phone=15550100&text=hi", b.Build("555-0100", "hi"))
}
