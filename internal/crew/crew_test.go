package crew

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/crewgate/crewgate/internal/config"
)

func TestExecProviderEchoesInputs(t *testing.T) {
	// cat copies stdin to stdout, so the result is the inputs envelope.
	p, err := NewExecProvider("cat", nil, "")
	if err != nil {
		t.Fatalf("NewExecProvider: %v", err)
	}

	result, err := p.Execute(context.Background(), map[string]any{"topic": "x"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	var envelope struct {
		Inputs map[string]any `json:"inputs"`
	}
	if err := json.Unmarshal([]byte(result), &envelope); err != nil {
		t.Fatalf("result is not the JSON envelope: %v", err)
	}
	if envelope.Inputs["topic"] != "x" {
		t.Errorf("inputs = %v, want topic x", envelope.Inputs)
	}
}

func TestExecProviderCapturesStderr(t *testing.T) {
	p, err := NewExecProvider("sh", []string{"-c", "echo boom >&2; exit 3"}, "")
	if err != nil {
		t.Fatalf("NewExecProvider: %v", err)
	}

	_, err = p.Execute(context.Background(), nil)
	if err == nil {
		t.Fatal("Execute succeeded, want error")
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("error = %q, want stderr content included", err)
	}
}

func TestExecProviderMissingCommand(t *testing.T) {
	if _, err := NewExecProvider("", nil, ""); err == nil {
		t.Error("NewExecProvider with empty command succeeded, want error")
	}
}

func TestHTTPProviderSuccess(t *testing.T) {
	var gotAuth, gotBody string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		io.WriteString(w, "crew report\n")
	}))
	defer ts.Close()

	p, err := NewHTTPProvider(ts.URL, "secret", 0)
	if err != nil {
		t.Fatalf("NewHTTPProvider: %v", err)
	}

	result, err := p.Execute(context.Background(), map[string]any{"topic": "x"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if result != "crew report" {
		t.Errorf("result = %q, want %q", result, "crew report")
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q, want bearer token", gotAuth)
	}
	if !strings.Contains(gotBody, `"topic":"x"`) {
		t.Errorf("request body = %q, want inputs included", gotBody)
	}
}

func TestHTTPProviderErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "agent exploded", http.StatusInternalServerError)
	}))
	defer ts.Close()

	p, err := NewHTTPProvider(ts.URL, "", 0)
	if err != nil {
		t.Fatalf("NewHTTPProvider: %v", err)
	}

	_, err = p.Execute(context.Background(), nil)
	if err == nil {
		t.Fatal("Execute succeeded, want error")
	}
	if !strings.Contains(err.Error(), "500") || !strings.Contains(err.Error(), "agent exploded") {
		t.Errorf("error = %q, want status and body snippet", err)
	}
}

func TestHTTPProviderMissingURL(t *testing.T) {
	if _, err := NewHTTPProvider("", "", 0); err == nil {
		t.Error("NewHTTPProvider with empty url succeeded, want error")
	}
}

func TestLoadResolvesProviders(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.CrewConfig
		wantErr  bool
		wantName string
	}{
		{
			name:     "exec",
			cfg:      config.CrewConfig{Kind: KindExec, Command: "crew-cli"},
			wantName: "exec:crew-cli",
		},
		{
			name:     "http",
			cfg:      config.CrewConfig{Kind: KindHTTP, URL: "http://localhost:9000/run"},
			wantName: "http:http://localhost:9000/run",
		},
		{
			name:    "exec missing command",
			cfg:     config.CrewConfig{Kind: KindExec},
			wantErr: true,
		},
		{
			name:    "http missing url",
			cfg:     config.CrewConfig{Kind: KindHTTP},
			wantErr: true,
		},
		{
			name:    "unknown kind",
			cfg:     config.CrewConfig{Kind: "wasm"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Load(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Load succeeded, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if p.Name() != tt.wantName {
				t.Errorf("Name = %q, want %q", p.Name(), tt.wantName)
			}
		})
	}
}
