package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ZebulonRouseFrantzich/grip/internal/errs"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	t.Setenv("GRIP_GITHUB_TOKEN", "")
	t.Setenv("GITHUB_TOKEN", "")
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL, "grip/test")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestGetReleases(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/acme/foo/releases" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("User-Agent") != "grip/test" {
			t.Errorf("unexpected User-Agent %q", r.Header.Get("User-Agent"))
		}
		fmt.Fprint(w, `[
			{"tag_name": "v2.0", "assets": [{"name": "foo-linux.tar.gz", "browser_download_url": "https://example.com/a", "size": 12}]},
			{"tag_name": "v1.0", "assets": []}
		]`)
	})

	got, err := c.GetReleases(context.Background(), "acme/foo")
	if err != nil {
		t.Fatalf("GetReleases: %v", err)
	}

	want := []Release{
		{TagName: "v2.0", Assets: []Asset{{Name: "foo-linux.tar.gz", BrowserDownloadURL: "https://example.com/a", Size: 12}}},
		{TagName: "v1.0", Assets: []Asset{}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("releases mismatch (-want +got):\n%s", diff)
	}
}

func TestGetReleasesFollowsPagination(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, `[{"tag_name": "v1.0", "assets": []}]`)
			return
		}
		w.Header().Set("Link", fmt.Sprintf(`<%s/repos/acme/foo/releases?page=2>; rel="next", <%s/x>; rel="last"`, server.URL, server.URL))
		fmt.Fprint(w, `[{"tag_name": "v2.0", "assets": []}]`)
	}))
	defer server.Close()

	c, err := NewClient(server.URL, "grip/test")
	if err != nil {
		t.Fatal(err)
	}
	got, err := c.GetReleases(context.Background(), "acme/foo")
	if err != nil {
		t.Fatalf("GetReleases: %v", err)
	}
	if len(got) != 2 || got[0].TagName != "v2.0" || got[1].TagName != "v1.0" {
		t.Errorf("unexpected releases: %+v", got)
	}
}

func TestGetReleasesErrors(t *testing.T) {
	tests := []struct {
		name    string
		repo    string
		status  int
		body    string
		wantIs  error
		network bool
	}{
		{name: "empty_list", repo: "acme/foo", status: 200, body: `[]`, wantIs: errs.ErrNoReleases},
		{name: "missing_tag", repo: "acme/foo", status: 200, body: `[{"assets": []}]`, wantIs: errs.ErrInvalidRemoteMetadata},
		{name: "asset_without_url", repo: "acme/foo", status: 200, body: `[{"tag_name": "v1", "assets": [{"name": "x"}]}]`, wantIs: errs.ErrInvalidRemoteMetadata},
		{name: "not_json", repo: "acme/foo", status: 200, body: `<html>`, wantIs: errs.ErrInvalidRemoteMetadata},
		{name: "bad_repository", repo: "not-a-repo", status: 200, body: `[]`, wantIs: errs.ErrInvalidRemoteMetadata},
		{name: "not_found", repo: "acme/foo", status: 404, body: `{"message":"Not Found"}`, network: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})

			_, err := c.GetReleases(context.Background(), tt.repo)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.network {
				if !errs.IsNetwork(err) {
					t.Errorf("expected NetworkError, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantIs) {
				t.Errorf("expected %v, got %v", tt.wantIs, err)
			}
		})
	}
}

func TestAuthorizationHeader(t *testing.T) {
	t.Setenv("GRIP_GITHUB_TOKEN", "secret")
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		fmt.Fprint(w, `[{"tag_name": "v1", "assets": []}]`)
	}))
	defer server.Close()

	c, err := NewClient(server.URL, "grip/test")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.GetReleases(context.Background(), "acme/foo"); err != nil {
		t.Fatal(err)
	}
	if got != "Bearer secret" {
		t.Errorf("Authorization = %q", got)
	}
}

func TestNextLink(t *testing.T) {
	h := `<https://api.github.com/x?page=3>; rel="next", <https://api.github.com/x?page=9>; rel="last"`
	if got := nextLink(h); got != "https://api.github.com/x?page=3" {
		t.Errorf("nextLink = %q", got)
	}
	if got := nextLink(""); got != "" {
		t.Errorf("nextLink(empty) = %q", got)
	}
}
