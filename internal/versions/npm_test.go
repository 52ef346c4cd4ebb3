// SPDX-License-Identifier: MPL-2.0

package versions

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNPM_Entries(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.EscapedPath() != "/@types%2Fnode" {
			t.Errorf("unexpected path %s", r.URL.EscapedPath())
		}
		_, _ = w.Write([]byte(`{
			"name": "@types/node",
			"versions": {
				"20.1.0": {}, "18.0.0": {}, "20.2.0-beta.1": {}, "0.9": {}, "19.0.0": {}
			}
		}`))
	}))
	t.Cleanup(srv.Close)

	client := NewNPMClient(WithBaseURL(srv.URL))
	got, err := collect(t, client.Source("@types/node", []string{"19.0.0"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]string{"18.0.0", "20.1.0"}, names(got)); diff != "" {
		t.Errorf("versions mismatch (-want +got):\n%s", diff)
	}
}

func TestNPM_NotFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	_, err := collect(t, NewNPMClient(WithBaseURL(srv.URL)).Source("nope", nil))
	var ue *UpstreamError
	if !errors.As(err, &ue) || ue.Status != http.StatusNotFound || ue.Source != "npm" {
		t.Fatalf("expected npm 404 UpstreamError, got %v", err)
	}
}
