package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dshills/lazyrc/internal/event"
	"github.com/dshills/lazyrc/internal/trigger"
)

// LineError is a trigger line that could not be parsed or queued.
type LineError struct {
	Line int
	Text string
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %q: %v", e.Line, e.Text, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// Run reads one trigger per line from r and processes them until r is
// exhausted or ctx is done. Blank lines and lines starting with # are
// skipped. Triggers posted by the file watcher are processed as they
// arrive.
//
// Input lines wait for room when the queue is full, so no trigger is
// dropped. Once input is exhausted, Run keeps handling messages until the
// queue is empty, including triggers queued by setup callbacks, and then
// closes the queue.
//
// Errors are logged as they happen and returned joined. The application
// can only be shut down afterwards.
func (app *Application) Run(ctx context.Context, r io.Reader) error {
	var (
		lineErrs []error
		readDone = make(chan struct{})
	)
	go func() {
		defer close(readDone)
		lineErrs = app.readTriggers(ctx, r)
	}()

	var loopErrs []error
	onErr := func(err error) {
		app.logger.Error().Err(err).Msg("trigger failed")
		loopErrs = append(loopErrs, err)
	}
	if err := app.queue.RunUntil(ctx, app.handle, onErr, readDone); err != nil {
		return errors.Join(append(loopErrs, err)...)
	}

	app.queue.Close()
	// Messages posted between the last drain and Close.
	if err := app.queue.Drain(ctx, app.handle); err != nil {
		onErr(err)
	}

	<-readDone
	return errors.Join(append(lineErrs, loopErrs...)...)
}

// readTriggers posts every trigger line in r.
func (app *Application) readTriggers(ctx context.Context, r io.Reader) []error {
	var errs []error
	scanner := bufio.NewScanner(r)
	n := 0
	for scanner.Scan() {
		if ctx.Err() != nil {
			return errs
		}
		n++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		t, err := trigger.Parse(text, app.config.Manifest.Leader)
		if err == nil {
			err = app.queue.PostWait(ctx, event.NewFire(t, "input"))
		}
		if ctx.Err() != nil {
			return errs
		}
		if err != nil {
			lineErr := &LineError{Line: n, Text: text, Err: err}
			app.logger.Warn().Err(err).Int("line", n).Msg("trigger ignored")
			errs = append(errs, lineErr)
		}
	}
	if err := scanner.Err(); err != nil {
		errs = append(errs, fmt.Errorf("read triggers: %w", err))
	}
	return errs
}
