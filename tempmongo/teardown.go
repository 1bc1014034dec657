package tempmongo

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
)

type cleanMode int

const (
	cleanUnlessDisowned cleanMode = iota
	cleanAlways
	cleanNever
)

// Close stops the server and removes the working directory unless the
// instance was disowned. Problems are logged as warnings rather than
// returned, so Close is safe in defers and test cleanups. Only the first
// Close, KillAndClean or KillNoClean has an effect.
func (i *Instance) Close() {
	err := i.teardown(context.Background(), cleanUnlessDisowned)
	for _, e := range multierr.Errors(err) {
		i.log.WithError(e).Warn("Teardown problem")
	}
}

// KillAndClean stops the server and removes the working directory even if
// the instance was disowned, reporting any failure.
func (i *Instance) KillAndClean(ctx context.Context) error {
	return i.teardown(ctx, cleanAlways)
}

// KillNoClean stops the server and keeps the working directory, reporting
// any failure.
func (i *Instance) KillNoClean(ctx context.Context) error {
	return i.teardown(ctx, cleanNever)
}

// abort unwinds a failed start; the directory always goes.
func (i *Instance) abort() {
	err := i.teardown(context.Background(), cleanAlways)
	for _, e := range multierr.Errors(err) {
		i.log.WithError(e).Warn("Cleanup after failed start")
	}
}

func (i *Instance) teardown(ctx context.Context, mode cleanMode) error {
	var err error
	i.teardownOnce.Do(func() {
		err = i.runTeardown(ctx, mode)
	})
	return err
}

func (i *Instance) runTeardown(ctx context.Context, mode cleanMode) error {
	i.setState(StateTearingDown)

	var errs error

	if i.client != nil {
		dctx, cancel := context.WithTimeout(ctx, i.cfg.GracePeriod)
		if err := i.client.Disconnect(dctx); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("failed to disconnect client: %w", err))
		}
		cancel()
	}

	if i.proc != nil {
		if err := i.proc.Terminate(i.cfg.GracePeriod); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("failed to terminate server: %w", err))
		} else {
			i.log.Debug("Stopped mongod")
		}
	}

	disowned := i.Disowned()
	if i.dir != nil {
		remove := mode == cleanAlways || (mode == cleanUnlessDisowned && !disowned)
		if remove {
			if err := i.dir.Remove(); err != nil {
				errs = multierr.Append(errs, &Error{Kind: ErrIO, Op: "remove working directory", Path: i.dir.Path(), Err: err})
			} else {
				disowned = false
			}
		} else {
			i.log.Infof("Kept working directory %s", i.dir.Persist())
			disowned = true
		}
	}

	i.mu.Lock()
	i.state = StateClosed
	i.mu.Unlock()

	if i.registry != nil {
		errText := ""
		if errs != nil {
			errText = errs.Error()
		}
		if err := i.registry.MarkClosed(i.dir.Path(), StateClosed.String(), disowned, errText); err != nil {
			i.log.WithError(err).Debug("Failed to record teardown")
		}
		if err := i.registry.Close(); err != nil {
			i.log.WithError(err).Debug("Failed to close registry")
		}
	}

	return errs
}
