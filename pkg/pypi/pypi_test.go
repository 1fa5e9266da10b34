package pypi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dashPage = `<!DOCTYPE html>
<html><body>
<h1>Links for dash</h1>
<a href="/packages/dash-2.0.0.tar.gz#sha256=abc" data-requires-python="&gt;=3.6">dash-2.0.0.tar.gz</a>
<a href="https://files.example.com/dash-1.0.0.tar.gz" data-yanked="">dash-1.0.0.tar.gz</a>
</body></html>`

const yankedPage = `<html><body><a href="old-0.1.tar.gz" data-yanked="broken">old-0.1.tar.gz</a></body></html>`

func newTestIndex(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/simple/dash/":
			_, _ = w.Write([]byte(dashPage))
		case "/simple/old/":
			_, _ = w.Write([]byte(yankedPage))
		case "/simple/broken/":
			w.WriteHeader(http.StatusBadGateway)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFiles(t *testing.T) {
	srv := newTestIndex(t)
	c := New(srv.URL+"/simple", WithHTTPClient(srv.Client()), WithRate(0))

	files, err := c.Files(context.Background(), "Dash")
	require.NoError(t, err)
	require.Len(t, files, 2)

	assert.Equal(t, "dash-2.0.0.tar.gz", files[0].Name)
	assert.Equal(t, srv.URL+"/packages/dash-2.0.0.tar.gz#sha256=abc", files[0].URL)
	assert.Equal(t, ">=3.6", files[0].RequiresPython)
	assert.False(t, files[0].Yanked)

	assert.Equal(t, "https://files.example.com/dash-1.0.0.tar.gz", files[1].URL)
	assert.True(t, files[1].Yanked)
}

func TestFiles_NotFound(t *testing.T) {
	srv := newTestIndex(t)
	c := New(srv.URL+"/simple/", WithHTTPClient(srv.Client()), WithRate(0))

	_, err := c.Files(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.Files(context.Background(), " ")
	assert.Error(t, err)
}

func TestExists(t *testing.T) {
	srv := newTestIndex(t)
	c := New(srv.URL+"/simple/", WithHTTPClient(srv.Client()), WithRate(100))
	ctx := context.Background()

	tests := []struct {
		pkg     string
		want    bool
		wantErr bool
	}{
		{"dash", true, false},
		{"DASH", true, false},
		{"old", false, false},
		{"missing", false, false},
		{"broken", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.pkg, func(t *testing.T) {
			ok, err := c.Exists(ctx, tt.pkg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestExists_Canceled(t *testing.T) {
	c := New("http://127.0.0.1:1/simple/", WithRate(0.001))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Exists(ctx, "dash")
	assert.Error(t, err)
}

func TestProjectURL(t *testing.T) {
	c := New("")
	assert.Equal(t, DefaultURL+"scikit-bio/", c.ProjectURL("Scikit_Bio"))
}
