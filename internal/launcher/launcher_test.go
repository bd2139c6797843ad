package launcher

import (
	"strings"
	"testing"

	"github.com/quasar/launchercore/internal/mcversion"
)

func TestOfflineUUID_IsDeterministic(t *testing.T) {
	a := offlineUUID("Notch")
	b := offlineUUID("Notch")
	if a != b {
		t.Fatalf("expected deterministic uuid, got %s and %s", a, b)
	}
	if offlineUUID("Notch") == offlineUUID("Herobrine") {
		t.Fatal("expected different names to derive different uuids")
	}
}

func TestOfflineUUID_HasVersion3VariantBits(t *testing.T) {
	id := offlineUUID("jeb_")
	parts := strings.Split(id, "-")
	if parts[2][0] != '3' {
		t.Fatalf("expected version 3 uuid, got %s", id)
	}
	variantNibble := parts[3][0]
	if variantNibble != '8' && variantNibble != '9' && variantNibble != 'a' && variantNibble != 'b' {
		t.Fatalf("expected RFC4122 variant bits, got %s", id)
	}
}

func TestSubstitute_ReplacesKnownVariables(t *testing.T) {
	vars := map[string]string{"auth_player_name": "Steve"}
	got, err := substitute("${auth_player_name}", vars)
	if err != nil {
		t.Fatalf("substitute: %v", err)
	}
	if got != "Steve" {
		t.Fatalf("expected Steve, got %s", got)
	}
}

func TestSubstitute_ErrorsOnMissingVariable(t *testing.T) {
	_, err := substitute("${missing_thing}", map[string]string{})
	if err == nil {
		t.Fatal("expected error for missing variable")
	}
}

func TestSubstitute_LeavesPlainTokensUnchanged(t *testing.T) {
	got, err := substitute("-Xmx2G", map[string]string{})
	if err != nil {
		t.Fatalf("substitute: %v", err)
	}
	if got != "-Xmx2G" {
		t.Fatalf("expected passthrough, got %s", got)
	}
}

func TestArgRuleApplies_NoRulesAlwaysApply(t *testing.T) {
	if !argRuleApplies(nil) {
		t.Fatal("expected no rules to default to applying")
	}
}

func TestArgRuleApplies_ExcludesFeatureGatedRules(t *testing.T) {
	rules := []mcversion.Rule{
		{Action: "allow", Features: &mcversion.Features{IsDemoUser: true}},
	}
	if argRuleApplies(rules) {
		t.Fatal("expected demo-user gated rule to be excluded by default")
	}
}

func TestArgRuleApplies_OSNameGating(t *testing.T) {
	rules := []mcversion.Rule{
		{Action: "allow"},
		{Action: "disallow", OS: &mcversion.OSRule{Name: "does-not-exist"}},
	}
	if !argRuleApplies(rules) {
		t.Fatal("expected disallow rule for a non-matching OS to leave the default allow in place")
	}
}

func TestClassifyCrash_RuleOrder(t *testing.T) {
	cases := []struct {
		name string
		tail string
		want string
	}{
		{"oom", "Exception in thread \"main\" java.lang.OutOfMemoryError: Java heap space", "Memory"},
		{"java version", "java.lang.UnsupportedClassVersionError: net/minecraft/client/Main", "Java version"},
		{"mod conflict", "Incompatible mods found:\n - examplemod", "Mod conflict"},
		{"fabric loader", "at net.fabricmc.loader.impl.FabricLoaderImpl.load", "Loader issue"},
		{"unclassified", "something else entirely went wrong", "Unknown"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := classifyCrash(tc.tail); got != tc.want {
				t.Errorf("classifyCrash(%q) = %s, want %s", tc.name, got, tc.want)
			}
		})
	}
}

func TestBuildArgv_ModernArgumentsSubstituteAndFilterRules(t *testing.T) {
	eff := &mcversion.Details{
		ID:        "1.20.4",
		MainClass: "net.minecraft.client.main.Main",
		Assets:    "1.20",
		Arguments: &mcversion.Arguments{
			JVM: []mcversion.RawArg{
				{Value: []string{"-Djava.library.path=${natives_directory}"}},
			},
			Game: []mcversion.RawArg{
				{Value: []string{"--username", "${auth_player_name}"}},
				{Value: []string{"--demo"}, Rules: []mcversion.Rule{{Action: "allow", Features: &mcversion.Features{IsDemoUser: true}}}},
			},
		},
	}

	argv, err := buildArgv(eff, buildArgvInput{
		javaPath:    "/usr/bin/java",
		nativesDir:  "/tmp/natives",
		classpath:   []string{"/tmp/lib.jar"},
		gameDir:     "/tmp/game",
		assetsRoot:  "/tmp/assets",
		playerName:  "Steve",
		authUUID:    "00000000-0000-0000-0000-000000000000",
		accessToken: "0",
		offline:     true,
		minMemory:   512,
		maxMemory:   2048,
	})
	if err != nil {
		t.Fatalf("buildArgv: %v", err)
	}

	joined := strings.Join(argv, " ")
	if !strings.Contains(joined, "-Djava.library.path=/tmp/natives") {
		t.Errorf("expected natives dir substitution, got %s", joined)
	}
	if !strings.Contains(joined, "--username Steve") {
		t.Errorf("expected username substitution, got %s", joined)
	}
	if strings.Contains(joined, "--demo") {
		t.Errorf("expected demo arg to be filtered out, got %s", joined)
	}
	if !strings.Contains(joined, "net.minecraft.client.main.Main") {
		t.Errorf("expected main class in argv, got %s", joined)
	}
}

func TestBuildArgv_LegacyMinecraftArgumentsFallback(t *testing.T) {
	eff := &mcversion.Details{
		ID:                 "1.7.10",
		MainClass:          "net.minecraft.client.Minecraft",
		Assets:             "legacy",
		MinecraftArguments: "--username ${auth_player_name} --version ${version_name}",
	}

	argv, err := buildArgv(eff, buildArgvInput{
		javaPath:   "/usr/bin/java",
		nativesDir: "/tmp/natives",
		classpath:  []string{"/tmp/lib.jar"},
		gameDir:    "/tmp/game",
		assetsRoot: "/tmp/assets",
		playerName: "Alex",
		authUUID:   "00000000-0000-0000-0000-000000000000",
		offline:    true,
		minMemory:  512,
		maxMemory:  1024,
	})
	if err != nil {
		t.Fatalf("buildArgv: %v", err)
	}

	joined := strings.Join(argv, " ")
	if !strings.Contains(joined, "--username Alex") {
		t.Errorf("expected legacy substitution, got %s", joined)
	}
	if !strings.Contains(joined, "-cp /tmp/lib.jar") {
		t.Errorf("expected classpath flag in legacy path, got %s", joined)
	}
}

func TestLogRing_WrapsAndReturnsChronologicalOrder(t *testing.T) {
	r := newLogRing(3)
	r.Append("one")
	r.Append("two")
	r.Append("three")
	r.Append("four")

	got := r.String()
	if strings.Contains(got, "one") {
		t.Errorf("expected oldest line to be evicted, got %q", got)
	}
	wantOrder := []string{"two", "three", "four"}
	last := -1
	for _, w := range wantOrder {
		idx := strings.Index(got, w)
		if idx < 0 {
			t.Fatalf("expected %q in ring output %q", w, got)
		}
		if idx < last {
			t.Fatalf("expected chronological order, got %q", got)
		}
		last = idx
	}
}
