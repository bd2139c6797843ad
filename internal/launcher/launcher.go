// Package launcher drives the launch pipeline for an instance: resolve
// and materialise its effective version, validate Java, spawn the game
// process, stream its log, and classify how it ended.
package launcher

import (
	"bufio"
	"context"
	"crypto/md5"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quasar/launchercore/internal/assets"
	"github.com/quasar/launchercore/internal/corepath"
	"github.com/quasar/launchercore/internal/corerr"
	"github.com/quasar/launchercore/internal/events"
	"github.com/quasar/launchercore/internal/fetch"
	"github.com/quasar/launchercore/internal/instance"
	"github.com/quasar/launchercore/internal/java"
	"github.com/quasar/launchercore/internal/library"
	"github.com/quasar/launchercore/internal/mcversion"
)

const (
	launcherName    = "launchercore"
	launcherVersion = "1.0.0"
	killGrace       = 5 * time.Second
	logRingCapacity = 10_000
)

// Launcher owns the single synchronised map of running child processes and
// drives every instance's launch pipeline.
type Launcher struct {
	root     corepath.Root
	resolver *mcversion.Resolver
	fetcher  *fetch.Fetcher
	bus      *events.Bus
	store    *instance.Store
	detector *java.Detector

	mu      sync.Mutex
	running map[string]*runningProcess
}

type runningProcess struct {
	cmd          *exec.Cmd
	startedAt    time.Time
	killedByUser bool
	tail         *logRing
}

func New(root corepath.Root, resolver *mcversion.Resolver, fetcher *fetch.Fetcher, bus *events.Bus, store *instance.Store) *Launcher {
	return &Launcher{
		root:     root,
		resolver: resolver,
		fetcher:  fetcher,
		bus:      bus,
		store:    store,
		detector: java.NewDetector(),
		running:  make(map[string]*runningProcess),
	}
}

// Options carries the per-launch choices the command surface gathers from
// the user and from settings before calling Launch.
type Options struct {
	PlayerName    string
	Offline       bool
	UUID          string
	AccessToken   string
	JavaPath      string
	SkipJavaCheck bool
	MinMemory     int
	MaxMemory     int
}

// IsRunning reports whether instanceID currently has a live child process.
func (l *Launcher) IsRunning(instanceID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.running[instanceID]
	return ok
}

// Launch resolves, materialises, and spawns instanceID's game process. It
// returns once the process has been started (or once a failure occurs
// before spawn); the game's own lifetime is tracked asynchronously and
// reported through the event bus.
func (l *Launcher) Launch(ctx context.Context, instanceID string, opts Options) error {
	if l.IsRunning(instanceID) {
		return corerr.New(corerr.Busy, "instance already running: "+instanceID)
	}

	inst, err := l.store.Get(instanceID)
	if err != nil {
		return err
	}

	if err := l.store.BeginInstall(instanceID); err != nil {
		return err
	}
	releaseInstallLock := true
	defer func() {
		if releaseInstallLock {
			l.store.EndInstall(instanceID)
		}
	}()

	inst.State = instance.StateInstalling
	if err := l.store.Save(inst); err != nil {
		return err
	}
	l.bus.Emit(events.InstanceStateChanged, inst)

	eff, err := l.resolver.Resolve(ctx, inst.Version)
	if err != nil {
		return l.launchFailed(inst, err)
	}

	if err := mcversion.EnsureClientJar(ctx, l.root, l.fetcher, inst.Version, eff); err != nil {
		return l.launchFailed(inst, err)
	}

	classpathLibs, err := library.Install(ctx, l.root, l.fetcher, l.bus, instanceID, eff)
	if err != nil {
		return l.launchFailed(inst, err)
	}

	if err := assets.EnsureAssets(ctx, l.root, l.fetcher, l.bus, eff); err != nil {
		return l.launchFailed(inst, err)
	}

	javaPath, err := l.resolveJava(inst, eff, opts)
	if err != nil {
		return l.launchFailed(inst, err)
	}

	// Materialisation succeeded: the instance is ready again before it
	// becomes running, per the state machine's legal transitions.
	inst.State = instance.StateReady
	if err := l.store.Save(inst); err != nil {
		return err
	}
	l.bus.Emit(events.InstanceStateChanged, inst)

	l.store.EndInstall(instanceID)
	releaseInstallLock = false

	classpath := append(append([]string{}, classpathLibs...), l.root.VersionJar(inst.Version))

	minMemory := opts.MinMemory
	if minMemory == 0 {
		minMemory = inst.MinMemory
	}
	if minMemory == 0 {
		minMemory = 512
	}
	maxMemory := opts.MaxMemory
	if maxMemory == 0 {
		maxMemory = inst.MaxMemory
	}
	if maxMemory == 0 {
		maxMemory = 2048
	}

	nativesDir := l.root.InstanceNatives(instanceID)
	gameDir := l.root.InstanceMinecraftDir(instanceID)

	argv, err := buildArgv(eff, buildArgvInput{
		javaPath:    javaPath,
		nativesDir:  nativesDir,
		classpath:   classpath,
		gameDir:     gameDir,
		assetsRoot:  l.root.AssetsDir(),
		playerName:  effectivePlayerName(opts.PlayerName),
		authUUID:    effectiveUUID(opts),
		accessToken: effectiveAccessToken(opts.AccessToken),
		offline:     opts.Offline,
		minMemory:   minMemory,
		maxMemory:   maxMemory,
	})
	if err != nil {
		return l.launchFailed(inst, err)
	}

	if err := os.MkdirAll(gameDir, 0o755); err != nil {
		return l.launchFailed(inst, corerr.Wrap(corerr.Filesystem, "creating game directory", err))
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = gameDir

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return l.launchFailed(inst, corerr.Wrap(corerr.Internal, "opening stdout pipe", err))
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return l.launchFailed(inst, corerr.Wrap(corerr.Internal, "opening stderr pipe", err))
	}

	if err := cmd.Start(); err != nil {
		return l.launchFailed(inst, corerr.Wrap(corerr.Internal, "starting game process", err))
	}

	rp := &runningProcess{cmd: cmd, startedAt: time.Now(), tail: newLogRing(logRingCapacity)}
	l.mu.Lock()
	l.running[instanceID] = rp
	l.mu.Unlock()

	inst.State = instance.StateRunning
	inst.LastPlayed = rp.startedAt
	if err := l.store.Save(inst); err != nil {
		return err
	}
	l.bus.Emit(events.InstanceStateChanged, inst)

	go l.supervise(instanceID, inst, rp, stdout, stderr)

	return nil
}

// launchFailed marks inst StateError and persists the transition. Every
// failure inside Launch, whether during materialisation or during process
// spawn, is a failed launch attempt, not an idle instance, so it is
// reported distinctly from both a successful ready state and a runtime
// crash classified by supervise.
func (l *Launcher) launchFailed(inst *instance.Instance, launchErr error) error {
	inst.State = instance.StateError
	_ = l.store.Save(inst)
	l.bus.Emit(events.InstanceStateChanged, inst)
	return launchErr
}

func (l *Launcher) resolveJava(inst *instance.Instance, eff *mcversion.Details, opts Options) (string, error) {
	required := mcversion.RequiredJavaMajor(eff, inst.MCVersion)

	javaPath := opts.JavaPath
	if javaPath == "" {
		javaPath = inst.JavaPathOverride
	}

	if javaPath == "" {
		best := l.detector.FindBest(required)
		if best == nil {
			return "", corerr.New(corerr.NotFound, "no compatible java installation found")
		}
		return best.Path, nil
	}

	found := l.detector.Probe(javaPath)
	if found == nil {
		return "", corerr.New(corerr.NotFound, "java executable not usable: "+javaPath)
	}

	skip := opts.SkipJavaCheck || inst.JavaWarningIgnored
	if !skip && found.MajorVersion != required {
		return "", corerr.WithContext(corerr.JavaIncompat, "installed java major version does not match requirement", nil, map[string]any{
			"actual":   found.MajorVersion,
			"required": required,
			"path":     javaPath,
		})
	}

	return javaPath, nil
}

// supervise streams the child's stdout/stderr to the ring buffer, the
// per-launch log file, and the event bus, then classifies and persists how
// the launch ended once the process exits.
func (l *Launcher) supervise(instanceID string, inst *instance.Instance, rp *runningProcess, stdout, stderr io.Reader) {
	logPath := filepath.Join(l.root.InstanceLogsDir(instanceID), "last-launch.log")
	_ = os.MkdirAll(filepath.Dir(logPath), 0o755)
	logFile, _ := os.Create(logPath)

	var wg sync.WaitGroup
	wg.Add(2)
	go l.streamPipe(stdout, instanceID, rp, logFile, &wg)
	go l.streamPipe(stderr, instanceID, rp, logFile, &wg)
	wg.Wait()

	if logFile != nil {
		logFile.Close()
	}

	waitErr := rp.cmd.Wait()

	l.mu.Lock()
	killedByUser := rp.killedByUser
	delete(l.running, instanceID)
	l.mu.Unlock()

	inst.PlaytimeMinutes += int64(time.Since(rp.startedAt).Round(time.Minute) / time.Minute)

	cleanExit := waitErr == nil || killedByUser
	if cleanExit {
		inst.State = instance.StateReady
	} else {
		inst.State = instance.StateCrashed
		tail := rp.tail.String()
		classification := classifyCrash(tail)
		inst.LastCrash = classification

		crashPath := filepath.Join(l.root.InstanceCrashesDir(instanceID), fmt.Sprintf("%d.txt", time.Now().Unix()))
		_ = os.MkdirAll(filepath.Dir(crashPath), 0o755)
		header := fmt.Sprintf("classification: %s\nexit error: %v\n\n", classification, waitErr)
		_ = os.WriteFile(crashPath, []byte(header+tail), 0o644)
	}

	_ = l.store.Save(inst)
	l.bus.Emit(events.InstanceStateChanged, inst)
}

func (l *Launcher) streamPipe(r io.Reader, instanceID string, rp *runningProcess, logFile *os.File, wg *sync.WaitGroup) {
	defer wg.Done()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.ToValidUTF8(scanner.Text(), "")
		rp.tail.Append(line)
		if logFile != nil {
			fmt.Fprintln(logFile, line)
		}
		l.bus.Emit(events.InstanceLog, events.InstanceLogPayload{InstanceID: instanceID, Message: line})
	}
}

// Kill sends a termination signal to instanceID's running process and
// escalates to a forceful kill after the grace period. The eventual exit
// is treated by supervise as a clean stop, not a crash.
func (l *Launcher) Kill(instanceID string) error {
	l.mu.Lock()
	rp, ok := l.running[instanceID]
	if ok {
		rp.killedByUser = true
	}
	l.mu.Unlock()

	if !ok {
		return corerr.New(corerr.NotFound, "instance not running: "+instanceID)
	}

	if err := terminate(rp.cmd.Process); err != nil {
		return corerr.Wrap(corerr.Internal, "sending terminate signal", err)
	}

	go func() {
		time.Sleep(killGrace)
		l.mu.Lock()
		_, stillRunning := l.running[instanceID]
		l.mu.Unlock()
		if stillRunning {
			_ = rp.cmd.Process.Kill()
		}
	}()

	return nil
}

// classifyCrash inspects a launch's log tail in rule order per the
// classification table: memory exhaustion, Java version mismatch, mod
// conflicts, loader-internal failures, and finally an unclassified bucket.
func classifyCrash(tail string) string {
	switch {
	case strings.Contains(tail, "OutOfMemoryError"):
		return "Memory"
	case strings.Contains(tail, "java.lang.UnsupportedClassVersionError"),
		strings.Contains(tail, "has been compiled by a more recent version"):
		return "Java version"
	case strings.Contains(tail, "Incompatible mods found"):
		return "Mod conflict"
	case strings.Contains(tail, "net.fabricmc.loader"):
		return "Loader issue"
	default:
		return "Unknown"
	}
}

// offlineUUID derives the deterministic offline-mode player UUID: an MD5
// digest of "OfflinePlayer:<name>" with the version/variant bits of a v3
// UUID stamped over the digest directly (no namespace prefix), matching
// vanilla's own offline UUID derivation.
func offlineUUID(name string) string {
	sum := md5.Sum([]byte("OfflinePlayer:" + name))
	sum[6] = (sum[6] & 0x0f) | 0x30
	sum[8] = (sum[8] & 0x3f) | 0x80
	return uuid.UUID(sum).String()
}

func effectivePlayerName(name string) string {
	if name == "" {
		return "Player"
	}
	return name
}

func effectiveUUID(opts Options) string {
	if !opts.Offline && opts.UUID != "" {
		return opts.UUID
	}
	return offlineUUID(effectivePlayerName(opts.PlayerName))
}

func effectiveAccessToken(token string) string {
	if token == "" {
		return "0"
	}
	return token
}

type buildArgvInput struct {
	javaPath    string
	nativesDir  string
	classpath   []string
	gameDir     string
	assetsRoot  string
	playerName  string
	authUUID    string
	accessToken string
	offline     bool
	minMemory   int
	maxMemory   int
}

var argVarPattern = regexp.MustCompile(`\$\{([a-zA-Z_]+)\}`)

func substitute(token string, vars map[string]string) (string, error) {
	var missing string
	result := argVarPattern.ReplaceAllStringFunc(token, func(match string) string {
		name := match[2 : len(match)-1]
		if v, ok := vars[name]; ok {
			return v
		}
		missing = name
		return match
	})
	if missing != "" {
		return "", corerr.New(corerr.Internal, "missing launch argument variable: "+missing)
	}
	return result, nil
}

func classpathSeparator() string {
	if runtime.GOOS == "windows" {
		return ";"
	}
	return ":"
}

// buildArgv assembles the full argv for the game process: java binary, JVM
// args (substituted), -Xms/-Xmx, main class, then game args (substituted).
// Missing referenced variables are a hard error, never silently empty.
func buildArgv(eff *mcversion.Details, in buildArgvInput) ([]string, error) {
	classpathStr := strings.Join(in.classpath, classpathSeparator())

	jvmVars := map[string]string{
		"natives_directory": in.nativesDir,
		"launcher_name":     launcherName,
		"launcher_version":  launcherVersion,
		"classpath":         classpathStr,
	}

	assetsIndexName := eff.Assets
	if eff.AssetIndex != nil && eff.AssetIndex.ID != "" {
		assetsIndexName = eff.AssetIndex.ID
	}

	userType := "legacy"
	if !in.offline {
		userType = "msa"
	}

	gameVars := map[string]string{
		"auth_player_name":  in.playerName,
		"version_name":      eff.ID,
		"game_directory":    in.gameDir,
		"assets_root":       in.assetsRoot,
		"assets_index_name": assetsIndexName,
		"auth_uuid":         in.authUUID,
		"auth_access_token": in.accessToken,
		"user_type":         userType,
		"version_type":      string(eff.Type),
	}

	argv := []string{in.javaPath}

	if eff.Arguments != nil && len(eff.Arguments.JVM) > 0 {
		for _, arg := range eff.Arguments.JVM {
			if !argRuleApplies(arg.Rules) {
				continue
			}
			for _, token := range arg.Value {
				sub, err := substitute(token, jvmVars)
				if err != nil {
					return nil, err
				}
				argv = append(argv, sub)
			}
		}
	} else {
		argv = append(argv, fmt.Sprintf("-Djava.library.path=%s", in.nativesDir))
		if runtime.GOOS == "darwin" {
			argv = append(argv, "-XstartOnFirstThread")
		}
		argv = append(argv, "-cp", classpathStr)
	}

	argv = append(argv, fmt.Sprintf("-Xms%dm", in.minMemory), fmt.Sprintf("-Xmx%dm", in.maxMemory))
	argv = append(argv, eff.MainClass)

	if eff.Arguments != nil && len(eff.Arguments.Game) > 0 {
		for _, arg := range eff.Arguments.Game {
			if !argRuleApplies(arg.Rules) {
				continue
			}
			for _, token := range arg.Value {
				sub, err := substitute(token, gameVars)
				if err != nil {
					return nil, err
				}
				argv = append(argv, sub)
			}
		}
	} else if eff.MinecraftArguments != "" {
		for _, token := range strings.Fields(eff.MinecraftArguments) {
			sub, err := substitute(token, gameVars)
			if err != nil {
				return nil, err
			}
			argv = append(argv, sub)
		}
	}

	return argv, nil
}

// argRuleApplies evaluates a modern argument's rule list against the
// current platform with every optional feature left unset, so any rule
// gated on a feature (demo mode, quick-play) is excluded by default.
func argRuleApplies(rules []mcversion.Rule) bool {
	if len(rules) == 0 {
		return true
	}

	allowed := false
	osName := argRuleOSName()
	arch := runtime.GOARCH

	for _, rule := range rules {
		matches := true
		if rule.OS != nil {
			if rule.OS.Name != "" && rule.OS.Name != osName {
				matches = false
			}
			if rule.OS.Arch != "" && rule.OS.Arch != arch {
				matches = false
			}
		}
		if f := rule.Features; f != nil {
			if f.IsDemoUser || f.HasCustomResolution || f.IsQuickPlaySingle || f.IsQuickPlayMulti || f.IsQuickPlayRealms {
				matches = false
			}
		}
		if matches {
			allowed = rule.Action == "allow"
		}
	}

	return allowed
}

func argRuleOSName() string {
	switch runtime.GOOS {
	case "windows":
		return "windows"
	case "darwin":
		return "osx"
	default:
		return "linux"
	}
}
