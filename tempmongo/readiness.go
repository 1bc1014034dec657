package tempmongo

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// outputTail bounds how much server output is quoted in errors.
const outputTail = 2048

// waitReady polls the endpoint with a raw connect until it is accepted, the
// process exits, the startup budget runs out or ctx is done.
func (i *Instance) waitReady(ctx context.Context) error {
	deadline := time.NewTimer(i.cfg.StartupTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(i.cfg.PollInterval)
	defer ticker.Stop()

	attempts := 0
	for {
		attempts++
		accepted := i.probe()

		// Checked after the probe: on TCP a foreign listener can hold the
		// port while mongod fails to bind it.
		if i.proc.Exited() {
			return i.exitedEarly()
		}
		if accepted {
			i.log.Debugf("Endpoint accepted connection after %d attempt(s)", attempts)
			return nil
		}

		select {
		case <-ctx.Done():
			return &Error{Kind: ErrReadinessTimeout, Op: "wait for", Path: i.endpoint,
				Err: fmt.Errorf("abandoned: %w", ctx.Err())}
		case <-deadline.C:
			return &Error{Kind: ErrReadinessTimeout, Op: "wait for", Path: i.endpoint,
				Err: fmt.Errorf("not accepting connections after %s (%d attempts)", i.cfg.StartupTimeout, attempts)}
		case <-i.proc.Done():
		case <-ticker.C:
		}
	}
}

func (i *Instance) probe() bool {
	conn, err := net.DialTimeout(i.network, i.endpoint, i.cfg.PollInterval)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

func (i *Instance) exitedEarly() error {
	cause := i.proc.ExitErr()
	if cause == nil {
		cause = errors.New("exit status 0")
	}

	if out := strings.TrimSpace(i.proc.Output()); out != "" {
		if len(out) > outputTail {
			out = "..." + out[len(out)-outputTail:]
		}
		cause = fmt.Errorf("%w; output: %s", cause, out)
	}

	return &Error{Kind: ErrProcessSpawn, Op: "server exited before accepting connections:", Path: i.cfg.MongodPath, Err: cause}
}
