package headless

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"houzz-pro-scraper/internal/scraper"
)

func okResponse(body string) scraper.FetchResponse {
	return scraper.FetchResponse{StatusCode: 200, Body: []byte(body)}
}

func TestShouldPromoteEmptyBody(t *testing.T) {
	d := NewDetector(0)
	require.True(t, d.ShouldPromote(okResponse("")))
}

func TestShouldPromoteBlockMarkers(t *testing.T) {
	d := NewDetector(1)
	require.True(t, d.ShouldPromote(okResponse(`<div id="px-captcha"></div>`)))
	require.True(t, d.ShouldPromote(okResponse("Press & Hold to confirm you are a human")))
	require.True(t, d.ShouldPromote(okResponse("Access to this page has been denied")))
}

func TestShouldPromoteShortBody(t *testing.T) {
	d := NewDetector(2048)
	require.True(t, d.ShouldPromote(okResponse("<html><body>tiny</body></html>")))
}

func TestShouldPromoteRealPagePasses(t *testing.T) {
	d := NewDetector(64)
	body := "<html><body>" + strings.Repeat("<p>profile content</p>", 20) + "</body></html>"
	require.False(t, d.ShouldPromote(okResponse(body)))
}

func TestShouldPromoteIgnoresNon200(t *testing.T) {
	d := NewDetector(0)
	require.False(t, d.ShouldPromote(scraper.FetchResponse{StatusCode: 403}))
	require.False(t, d.ShouldPromote(scraper.FetchResponse{StatusCode: 500, Body: []byte("captcha")}))
}
