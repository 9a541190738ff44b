package modio

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient("test-key", "bonelab-mod-manager/test")
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	c.BaseURL = srv.URL
	return c, srv
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient("", "agent"); err == nil {
		t.Error("NewClient() should reject empty api key")
	}
	if _, err := NewClient("key", ""); err == nil {
		t.Error("NewClient() should reject empty user agent")
	}
}

func TestCurrentUser(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/me" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok123" {
			t.Errorf("Authorization = %q", got)
		}
		json.NewEncoder(w).Encode(User{ID: 7, Username: "gordon"})
	}))
	c.SetToken("tok123\n")

	user, err := c.CurrentUser(context.Background())
	if err != nil {
		t.Fatalf("CurrentUser() error: %v", err)
	}
	if user.Username != "gordon" {
		t.Errorf("Username = %q", user.Username)
	}
}

func TestAPIKeyQueryWithoutToken(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("api_key"); got != "test-key" {
			t.Errorf("api_key = %q", got)
		}
		json.NewEncoder(w).Encode(User{ID: 7})
	}))

	if _, err := c.CurrentUser(context.Background()); err != nil {
		t.Fatalf("CurrentUser() error: %v", err)
	}
}

func TestListSubscriptionsPagination(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/me/subscribed" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("game_id"); got != "3809" {
			t.Errorf("game_id = %q", got)
		}
		offset := r.URL.Query().Get("_offset")
		page := modsPage{ResultLimit: 100, ResultTotal: 3}
		switch offset {
		case "0":
			page.Data = []Mod{{ID: 1}, {ID: 2}}
			page.ResultCount = 2
			page.ResultOffset = 0
		case "2":
			page.Data = []Mod{{ID: 3}}
			page.ResultCount = 1
			page.ResultOffset = 2
		default:
			t.Errorf("unexpected offset %q", offset)
		}
		json.NewEncoder(w).Encode(page)
	}))

	mods, err := c.ListSubscriptions(context.Background(), 3809)
	if err != nil {
		t.Fatalf("ListSubscriptions() error: %v", err)
	}
	if len(mods) != 3 {
		t.Fatalf("got %d mods, want 3", len(mods))
	}
	for i, want := range []uint64{1, 2, 3} {
		if mods[i].ID != want {
			t.Errorf("mods[%d].ID = %d, want %d", i, mods[i].ID, want)
		}
	}
}

func TestRateLimitClassification(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"error_ref":11008,"message":"You have been ratelimited"}}`)
	}))

	err := c.Subscribe(context.Background(), 3809, 42)
	if err == nil {
		t.Fatal("Subscribe() should fail")
	}
	if !IsRateLimited(err) {
		t.Errorf("IsRateLimited() = false for 429, err = %v", err)
	}
}

func TestTerminalErrorClassification(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":{"error_ref":15022,"message":"mod not found"}}`)
	}))

	_, err := c.GetMod(context.Background(), 3809, 42)
	if err == nil {
		t.Fatal("GetMod() should fail")
	}
	if IsRateLimited(err) {
		t.Error("404 must not classify as rate limited")
	}
}

func TestExchangeEmailCode(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oauth/emailexchange" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		if got := r.PostForm.Get("security_code"); got != "ABC12" {
			t.Errorf("security_code = %q", got)
		}
		json.NewEncoder(w).Encode(AccessToken{Code: 200, AccessToken: "fresh-token"})
	}))

	token, err := c.ExchangeEmailCode(context.Background(), "ABC12")
	if err != nil {
		t.Fatalf("ExchangeEmailCode() error: %v", err)
	}
	if token.AccessToken != "fresh-token" {
		t.Errorf("AccessToken = %q", token.AccessToken)
	}
	if c.Token != "fresh-token" {
		t.Errorf("client token not attached, got %q", c.Token)
	}
}

func TestExchangeEmailCodeEmptyToken(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(AccessToken{Code: 200})
	}))

	if _, err := c.ExchangeEmailCode(context.Background(), "ABC12"); err == nil {
		t.Error("ExchangeEmailCode() should fail when no token is returned")
	}
}

func TestDownloadFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("zip bytes"))
	}))
	defer srv.Close()

	c, err := NewClient("test-key", "agent")
	if err != nil {
		t.Fatal(err)
	}

	dest := filepath.Join(t.TempDir(), "cache", "Cool Mod.zip")
	file := Modfile{ID: 1, Download: Download{BinaryURL: srv.URL + "/file.zip"}}
	if err := c.DownloadFile(context.Background(), file, dest); err != nil {
		t.Fatalf("DownloadFile() error: %v", err)
	}

	data, err := os.ReadFile(dest)
	if err != nil || string(data) != "zip bytes" {
		t.Errorf("downloaded content = %q, err %v", data, err)
	}
}

func TestDownloadFileNoURL(t *testing.T) {
	c, err := NewClient("test-key", "agent")
	if err != nil {
		t.Fatal(err)
	}
	if err := c.DownloadFile(context.Background(), Modfile{ID: 1}, filepath.Join(t.TempDir(), "x.zip")); err == nil {
		t.Error("DownloadFile() should fail without a binary url")
	}
}

func TestTargetsWindows(t *testing.T) {
	f := Modfile{Platforms: []Platform{{Platform: "android"}}}
	if f.TargetsWindows() {
		t.Error("android-only file must not target windows")
	}
	f.Platforms = append(f.Platforms, Platform{Platform: PlatformWindows})
	if !f.TargetsWindows() {
		t.Error("file with windows platform must target windows")
	}
}
