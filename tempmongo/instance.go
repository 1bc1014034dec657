package tempmongo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/lmorchard/tempmongo-go/internal/config"
	"github.com/lmorchard/tempmongo-go/internal/portfinder"
	"github.com/lmorchard/tempmongo-go/internal/procutil"
	"github.com/lmorchard/tempmongo-go/internal/registry"
	"github.com/lmorchard/tempmongo-go/internal/tempdir"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	dirPattern = "tempmongo-*"
	dataDir    = "db"
	logFile    = "mongod.log"
	socketFile = "mongod.sock"
)

// Instance is one running temporary mongod and the resources it owns.
type Instance struct {
	cfg *Config
	log logrus.FieldLogger

	dir        *tempdir.Dir
	dataPath   string
	logPath    string
	socketPath string
	port       int
	network    string
	endpoint   string
	uri        string

	proc     *procutil.Process
	client   *mongo.Client
	registry *registry.DB

	mu           sync.Mutex
	state        State
	disowned     bool
	teardownOnce sync.Once
}

// New starts an instance with the default configuration.
func New(ctx context.Context) (*Instance, error) {
	return Start(ctx, nil)
}

// Start creates a working directory, spawns mongod, waits until it accepts
// connections and connects a client. On failure every completed step is
// undone before the error is returned. The returned instance must be
// released with Close, KillAndClean or KillNoClean.
func Start(ctx context.Context, cfg *Config) (*Instance, error) {
	cfg = cfg.withDefaults()

	inst := &Instance{
		cfg:      cfg,
		log:      cfg.Logger,
		state:    StateStarting,
		disowned: cfg.KeepDirectory,
	}

	if err := inst.start(ctx); err != nil {
		inst.log.WithError(err).Debug("Start failed, unwinding")
		inst.abort()
		return nil, err
	}

	inst.setState(StateReady)
	inst.log.Info("Temporary mongod ready")
	return inst, nil
}

func (i *Instance) start(ctx context.Context) error {
	// Settle the endpoint kind before anything touches the filesystem.
	mode, err := ParseListenMode(string(i.cfg.Listen))
	if err != nil {
		return &Error{Kind: ErrProcessSpawn, Op: "select endpoint", Err: err}
	}
	useSocket, err := mode.useSocket()
	if err != nil {
		return &Error{Kind: ErrProcessSpawn, Op: "select endpoint", Err: err}
	}

	dir, err := tempdir.New(i.cfg.ParentDir, dirPattern, true)
	if err != nil {
		return &Error{Kind: ErrIO, Op: "create working directory", Path: i.cfg.ParentDir, Err: err}
	}
	i.dir = dir
	i.log = i.log.WithField("dir", dir.Path())

	i.dataPath = filepath.Join(dir.Path(), dataDir)
	i.logPath = filepath.Join(dir.Path(), logFile)
	if err := os.Mkdir(i.dataPath, config.DefaultDirPerm); err != nil {
		return &Error{Kind: ErrIO, Op: "create data directory", Path: i.dataPath, Err: err}
	}

	// mongod always binds a port, even when only the socket is used.
	port, err := portfinder.Find(i.cfg.PortMin, i.cfg.PortMax)
	if err != nil {
		return &Error{Kind: ErrIO, Op: "select port", Err: err}
	}
	i.port = port

	bindIP := "127.0.0.1"
	if useSocket {
		i.socketPath = filepath.Join(dir.Path(), socketFile)
		i.network = "unix"
		i.endpoint = i.socketPath
		bindIP = i.socketPath
	} else {
		i.network = "tcp"
		i.endpoint = portfinder.Addr(port)
	}
	i.uri = buildURI(i.network, i.endpoint)
	i.log = i.log.WithField("endpoint", i.endpoint)

	proc, err := procutil.Start(i.cfg.MongodPath, i.serverArgs(bindIP), dir.Path())
	if err != nil {
		return &Error{Kind: ErrProcessSpawn, Op: "run", Path: i.cfg.MongodPath, Err: err}
	}
	i.proc = proc
	i.log = i.log.WithField("pid", proc.Pid())
	i.log.Debug("Spawned mongod")

	i.openRegistry()

	if err := i.waitReady(ctx); err != nil {
		return err
	}

	client, err := i.connect(ctx)
	if err != nil {
		if i.proc.Exited() {
			return i.exitedEarly()
		}
		return &Error{Kind: ErrClientInit, Op: "connect to", Path: i.endpoint, Err: err}
	}
	i.client = client

	// A handshake with some other listener on a reused port does not count.
	if i.proc.Exited() {
		return i.exitedEarly()
	}

	return nil
}

func (i *Instance) serverArgs(bindIP string) []string {
	args := []string{
		"--bind_ip", bindIP,
		"--port", strconv.Itoa(i.port),
		"--dbpath", i.dataPath,
		"--logpath", i.logPath,
		"--noauth",
	}
	if socketsSupported {
		// Keeps the default mongodb-<port>.sock out of /tmp.
		args = append(args, "--unixSocketPrefix", i.dir.Path())
	}
	return append(args, i.cfg.ExtraArgs...)
}

func (i *Instance) openRegistry() {
	if i.cfg.RegistryPath == "" {
		return
	}

	db, err := registry.New(i.cfg.RegistryPath)
	if err != nil {
		i.log.WithError(err).Warn("Registry unavailable, instance will not be recorded")
		return
	}

	rec := &registry.Instance{
		Directory:  i.dir.Path(),
		PID:        i.proc.Pid(),
		Endpoint:   i.endpoint,
		MongodPath: i.cfg.MongodPath,
		Disowned:   i.disowned,
		State:      StateStarting.String(),
	}
	if err := db.RecordStart(rec); err != nil {
		i.log.WithError(err).Warn("Failed to record instance")
		db.Close()
		return
	}
	i.registry = db
}

func (i *Instance) setState(s State) {
	i.mu.Lock()
	i.state = s
	i.mu.Unlock()

	if i.registry != nil && s != StateClosed {
		if err := i.registry.UpdateState(i.dir.Path(), s.String()); err != nil {
			i.log.WithError(err).Debug("Failed to record state")
		}
	}
}

// State reports the current lifecycle state.
func (i *Instance) State() State {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state
}

// Client returns the connected client. It is the same pool on every call.
func (i *Instance) Client() *mongo.Client {
	return i.client
}

// Directory is the working directory holding all server state.
func (i *Instance) Directory() string {
	return i.dir.Path()
}

// DataPath is the --dbpath directory.
func (i *Instance) DataPath() string {
	return i.dataPath
}

// LogPath is the server log file.
func (i *Instance) LogPath() string {
	return i.logPath
}

// SocketPath is the listening Unix socket, or "" when listening on TCP.
func (i *Instance) SocketPath() string {
	return i.socketPath
}

// Port is the --port value given to mongod.
func (i *Instance) Port() int {
	return i.port
}

// Endpoint is the socket path or host:port that clients dial.
func (i *Instance) Endpoint() string {
	return i.endpoint
}

// URI is a connection string for the instance, usable by independent clients.
func (i *Instance) URI() string {
	return i.uri
}

// ProcessID is the pid of the mongod process.
func (i *Instance) ProcessID() int {
	return i.proc.Pid()
}

// Disown keeps the working directory after teardown. The server is still
// stopped. Calling it more than once, or once teardown has begun, has no
// effect.
func (i *Instance) Disown() {
	i.mu.Lock()
	if i.disowned || i.state >= StateTearingDown {
		i.mu.Unlock()
		return
	}
	i.disowned = true
	i.mu.Unlock()

	i.log.Info("Working directory will be kept after teardown")
	if i.registry != nil {
		if err := i.registry.MarkDisowned(i.dir.Path()); err != nil {
			i.log.WithError(err).Debug("Failed to record disown")
		}
	}
}

// Disowned reports whether Disown was called or the instance started with KeepDirectory.
func (i *Instance) Disowned() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.disowned
}

func (i *Instance) String() string {
	pid := 0
	if i.proc != nil {
		pid = i.proc.Pid()
	}
	return fmt.Sprintf("tempmongo(dir=%s endpoint=%s pid=%d state=%s)",
		i.dir.Path(), i.endpoint, pid, i.State())
}
