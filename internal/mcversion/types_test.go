package mcversion

import (
	"encoding/json"
	"testing"
)

func TestLibraryCoord(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"org.lwjgl:lwjgl:3.3.1", "org.lwjgl:lwjgl"},
		{"org.lwjgl:lwjgl:3.3.1:natives-linux", "org.lwjgl:lwjgl"},
		{"com.mojang:brigadier:1.0.18", "com.mojang:brigadier"},
	}

	for _, tt := range tests {
		lib := Library{Name: tt.name}
		if got := lib.Coord(); got != tt.want {
			t.Errorf("Coord(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestDefaultJavaMajorVersion(t *testing.T) {
	tests := []struct {
		mc   string
		want int
	}{
		{"1.16.5", 8},
		{"1.17", 17},
		{"1.18.2", 17},
		{"1.20.4", 17},
		{"1.20.5", 21},
		{"1.21", 21},
	}

	for _, tt := range tests {
		if got := DefaultJavaMajorVersion(tt.mc); got != tt.want {
			t.Errorf("DefaultJavaMajorVersion(%q) = %d, want %d", tt.mc, got, tt.want)
		}
	}
}

func TestRawArgRoundTrip(t *testing.T) {
	var args Arguments
	data := []byte(`{"game":["--username","${auth_player_name}",{"rules":[{"action":"allow"}],"value":["--demo"]}],"jvm":["-Xss1M"]}`)
	if err := json.Unmarshal(data, &args); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(args.Game) != 3 {
		t.Fatalf("expected 3 game args, got %d", len(args.Game))
	}
	if args.Game[0].Value[0] != "--username" {
		t.Errorf("got %v", args.Game[0].Value)
	}
	if len(args.Game[2].Rules) != 1 {
		t.Errorf("expected conditional arg to carry a rule")
	}
}
