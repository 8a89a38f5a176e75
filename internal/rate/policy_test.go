package rate

import (
	"testing"
	"time"
)

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    Policy
		wantErr bool
	}{
		{in: "5/1m", want: Policy{Limit: 5, Window: time.Minute}},
		{in: " 100 / 30s ", want: Policy{Limit: 100, Window: 30 * time.Second}},
		{in: "0/1h", want: Policy{Limit: 0, Window: time.Hour}},
		{in: "5", wantErr: true},
		{in: "x/1m", wantErr: true},
		{in: "-1/1m", wantErr: true},
		{in: "5/soon", wantErr: true},
		{in: "5/0s", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParsePolicy(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("ParsePolicy(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParsePolicy(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParsePolicy(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestParseRoutes(t *testing.T) {
	routes, err := ParseRoutes("auth.login=5/1m, contacts.create=10/1m,")
	if err != nil {
		t.Fatalf("ParseRoutes: %v", err)
	}
	if len(routes) != 2 {
		t.Fatalf("expected 2 routes, got %d", len(routes))
	}
	if p := routes["contacts.create"]; p.Route != "contacts.create" || p.Limit != 10 || p.Window != time.Minute {
		t.Fatalf("unexpected policy %+v", p)
	}

	if _, err := ParseRoutes("auth.login"); err == nil {
		t.Fatal("expected error for missing policy")
	}
}

func TestParseFailurePolicy(t *testing.T) {
	for in, want := range map[string]FailurePolicy{"": FailureError, "OPEN": FailureOpen, "closed": FailureClosed} {
		got, err := ParseFailurePolicy(in)
		if err != nil || got != want {
			t.Fatalf("ParseFailurePolicy(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFailurePolicy("sometimes"); err == nil {
		t.Fatal("expected error")
	}
}
