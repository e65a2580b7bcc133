/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */

package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/creack/pty"

	"gopanelize/internal/command"
	applog "gopanelize/internal/log"
	"gopanelize/internal/preset"
)

// Exec runs the external kikit executable.
type Exec struct {
	// Command is the executable; "kikit" when empty.
	Command string
	// Env is appended to the process environment.
	Env []string
	// NoPTY forces plain pipes even where a pseudo terminal is available.
	NoPTY bool
}

// ErrFailed wraps non-zero exits of the external command.
var ErrFailed = errors.New("panelization engine failed")

const tailLines = 20

func (e *Exec) program() string {
	if e.Command == "" {
		return "kikit"
	}
	return e.Command
}

// Panelize runs "kikit panelize" with the flags for the non-default part of cfg.
func (e *Exec) Panelize(ctx context.Context, input, output string, cfg preset.Preset, onOutput func(string)) error {
	args := append([]string{"panelize"}, command.Args(EngineDiff(cfg), input, output)...)
	return e.run(ctx, args, onOutput)
}

// FabRequest describes a "kikit fab" invocation.
type FabRequest struct {
	House     string
	Board     string
	OutputDir string
	// Flags are passed verbatim before the positional arguments.
	Flags []string
}

// Houses lists the supported fabrication targets.
var Houses = []string{"jlcpcb", "pcbway", "oshpark", "neodenyy1", "openpnp"}

// Fab runs "kikit fab <house>".
func (e *Exec) Fab(ctx context.Context, req FabRequest, onOutput func(string)) error {
	known := false
	for _, h := range Houses {
		if h == req.House {
			known = true
		}
	}
	if !known {
		return fmt.Errorf("unknown fab house %q (want one of %s)", req.House, strings.Join(Houses, ", "))
	}
	args := []string{"fab", req.House}
	args = append(args, req.Flags...)
	args = append(args, req.Board, req.OutputDir)
	return e.run(ctx, args, onOutput)
}

func (e *Exec) run(ctx context.Context, args []string, onOutput func(string)) error {
	l := applog.WithOperation(applog.WithComponent("engine"), args[0])
	cmd := e.command(ctx, args)
	l.InfoContext(ctx, "starting engine", slog.String("cmd", e.program()), slog.Any("args", args))

	t := &tail{n: tailLines}
	emit := func(line string) {
		line = strings.TrimRight(line, "\r")
		t.add(line)
		if onOutput != nil && strings.TrimSpace(line) != "" {
			onOutput(line)
		}
	}

	var err error
	if e.NoPTY {
		err = runPipes(cmd, emit)
	} else {
		err = runPTY(cmd, emit)
		if errors.Is(err, errNoPTY) {
			l.DebugContext(ctx, "pty unavailable, using pipes")
			err = runPipes(e.command(ctx, args), emit)
		}
	}
	if err != nil {
		l.ErrorContext(ctx, "engine failed", slog.Any("err", err))
		if out := t.String(); out != "" {
			return fmt.Errorf("%w: %v\n%s", ErrFailed, err, out)
		}
		return fmt.Errorf("%w: %v", ErrFailed, err)
	}
	return nil
}

func (e *Exec) command(ctx context.Context, args []string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, e.program(), args...)
	if len(e.Env) > 0 {
		cmd.Env = append(os.Environ(), e.Env...)
	}
	return cmd
}

var errNoPTY = errors.New("pty unavailable")

func runPTY(cmd *exec.Cmd, emit func(string)) error {
	ptmx, err := pty.Start(cmd)
	if err != nil {
		if errors.Is(err, pty.ErrUnsupported) {
			return errNoPTY
		}
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			return err
		}
		return errNoPTY
	}
	defer func() { _ = ptmx.Close() }()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		scan(ptmx, emit)
	}()
	wg.Wait()
	return cmd.Wait()
}

func runPipes(cmd *exec.Cmd, emit func(string)) error {
	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw
	if err := cmd.Start(); err != nil {
		_ = pw.Close()
		return err
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		scan(pr, emit)
	}()
	err := cmd.Wait()
	_ = pw.Close()
	<-done
	return err
}

// scan reads lines until EOF. On Linux a closed pty reports EIO instead of EOF;
// both end the stream.
func scan(r io.Reader, emit func(string)) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		emit(sc.Text())
	}
	_, _ = io.Copy(io.Discard, r)
}
