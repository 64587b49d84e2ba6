package resources

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/safeguard/internal/safety"
)

func read(t *testing.T, h *Handler, uri string) mcp.TextResourceContents {
	t.Helper()
	req := mcp.ReadResourceRequest{}
	req.Params.URI = uri
	contents, err := h.HandleStatus(context.Background(), req)
	if err != nil {
		t.Fatalf("HandleStatus: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("got %d contents, want 1", len(contents))
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("content is %T", contents[0])
	}
	return tc
}

func TestSessionIDFromURI(t *testing.T) {
	tests := []struct {
		uri     string
		want    string
		wantErr bool
	}{
		{"safety://sessions/abc/status", "abc", false},
		{"safety://sessions/a%20b/status", "a b", false},
		{"safety://sessions//status", "", true},
		{"safety://sessions/abc", "", true},
		{"sdd://project/status", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			got, err := sessionIDFromURI(tt.uri)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("id = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHandleStatus(t *testing.T) {
	svc := safety.New(safety.Options{})
	_, err := svc.DefineScope(context.Background(), safety.DefineScopeRequest{SessionID: "s1", UserRequest: "Add a signup form"})
	if err != nil {
		t.Fatalf("DefineScope: %v", err)
	}
	h := NewHandler(svc)

	tc := read(t, h, "safety://sessions/s1/status")
	if tc.MIMEType != "application/json" {
		t.Fatalf("MIMEType = %q, body %s", tc.MIMEType, tc.Text)
	}
	var status safety.StatusResponse
	if err := json.Unmarshal([]byte(tc.Text), &status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !status.Exists || !status.Gates.ScopeLocked {
		t.Errorf("status = %+v", status)
	}

	missing := read(t, h, "safety://sessions/ghost/status")
	if !strings.Contains(missing.Text, `"exists": false`) {
		t.Errorf("missing session should report exists false: %s", missing.Text)
	}
	if _, ok := svc.Sessions().Get("ghost"); ok {
		t.Error("reading a status must not create the session")
	}

	bad := read(t, h, "safety://sessions/s1")
	if bad.MIMEType != "text/plain" || !strings.HasPrefix(bad.Text, "Error:") {
		t.Errorf("bad URI = %+v", bad)
	}
}

func TestStatusTemplate(t *testing.T) {
	tmpl := NewHandler(safety.New(safety.Options{})).StatusTemplate()
	if tmpl.Name != "Safety Session Status" {
		t.Errorf("Name = %q", tmpl.Name)
	}
}
