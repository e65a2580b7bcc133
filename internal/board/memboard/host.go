/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */

package memboard

import (
	"sync/atomic"

	"gopanelize/internal/board"
)

// DefaultMajorVersion is the host version reported by sessions that do not set one.
const DefaultMajorVersion = 8

// Session is a headless host holding one live board.
type Session struct {
	live      *Board
	major     int
	refreshes atomic.Int64
	// OnRefresh, when set, is invoked on every Refresh.
	OnRefresh func()
}

var _ board.Host = (*Session)(nil)

// NewSession wraps live as the session's board. A nil live board starts an empty session.
func NewSession(live *Board, major int) *Session {
	if live == nil {
		live = New()
	}
	if major <= 0 {
		major = DefaultMajorVersion
	}
	return &Session{live: live, major: major}
}

func (s *Session) Board() board.Document { return s.live }

// Live returns the concrete live board.
func (s *Session) Live() *Board { return s.live }

// LoadBoard loads a fresh board from disk; it never touches the live board.
func (s *Session) LoadBoard(path string) (board.Document, error) {
	b, err := Load(path)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Session) Refresh() {
	s.refreshes.Add(1)
	if s.OnRefresh != nil {
		s.OnRefresh()
	}
}

// Refreshes reports how many times Refresh was called.
func (s *Session) Refreshes() int { return int(s.refreshes.Load()) }

func (s *Session) MajorVersion() int { return s.major }
