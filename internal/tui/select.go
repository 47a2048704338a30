// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

// Package tui implements the interactive terminal UI for cache deletion:
// a multi-select picker over the cached revisions, grouped by repo.
package tui

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/huggingface/hfcache/pkg/hfcache"
)

// row is one line of the picker: either a repo header (not selectable)
// or a revision.
type row struct {
	repo *hfcache.CachedRepoInfo
	rev  *hfcache.CachedRevisionInfo // nil for a header row
}

// SelectRevisions opens a full-screen multi-select picker over every
// cached revision and returns the chosen commit hashes. Returning an
// empty slice means the user selected nothing or aborted.
//
// Keys: up/down or k/j move, space toggles a revision, a toggles the
// whole repo under the cursor, enter confirms, q or esc aborts.
func SelectRevisions(info *hfcache.CacheInfo) ([]string, error) {
	if len(info.Repos) == 0 {
		return nil, nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("interactive selection requires a terminal")
	}

	p := newPicker(info)
	if len(p.rows) == 0 {
		return nil, nil
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}
	defer term.Restore(fd, oldState)

	fmt.Print("\x1b[?25l")       // hide cursor
	defer fmt.Print("\x1b[?25h") // show cursor

	p.draw(fd)
	buf := make([]byte, 8)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil {
			return nil, err
		}
		switch key(buf[:n]) {
		case keyUp:
			p.move(-1)
		case keyDown:
			p.move(1)
		case keySpace:
			p.toggle()
		case keyAll:
			p.toggleRepo()
		case keyEnter:
			p.clear()
			return p.selection(), nil
		case keyAbort:
			p.clear()
			return nil, nil
		}
		p.draw(fd)
	}
}

type keyCode int

const (
	keyNone keyCode = iota
	keyUp
	keyDown
	keySpace
	keyAll
	keyEnter
	keyAbort
)

func key(b []byte) keyCode {
	switch {
	case len(b) == 3 && b[0] == 0x1b && b[1] == '[' && b[2] == 'A':
		return keyUp
	case len(b) == 3 && b[0] == 0x1b && b[1] == '[' && b[2] == 'B':
		return keyDown
	case len(b) == 1:
		switch b[0] {
		case 'k':
			return keyUp
		case 'j':
			return keyDown
		case ' ':
			return keySpace
		case 'a':
			return keyAll
		case '\r', '\n':
			return keyEnter
		case 'q', 0x03, 0x1b: // q, ctrl-c, bare esc
			return keyAbort
		}
	}
	return keyNone
}

type picker struct {
	info     *hfcache.CacheInfo
	rows     []row
	cursor   int // index into rows, always on a revision row
	selected map[string]bool
	drawn    int // lines rendered by the previous draw
}

func newPicker(info *hfcache.CacheInfo) *picker {
	p := &picker{info: info, selected: make(map[string]bool)}
	for i := range info.Repos {
		repo := &info.Repos[i]
		if len(repo.Revisions) == 0 {
			continue
		}
		p.rows = append(p.rows, row{repo: repo})
		for j := range repo.Revisions {
			p.rows = append(p.rows, row{repo: repo, rev: &repo.Revisions[j]})
		}
	}
	p.cursor = p.nextRevision(0, 1)
	return p
}

// nextRevision finds the closest revision row starting at i, moving in
// direction dir. Header rows are skipped.
func (p *picker) nextRevision(i, dir int) int {
	for ; i >= 0 && i < len(p.rows); i += dir {
		if p.rows[i].rev != nil {
			return i
		}
	}
	return p.cursor
}

func (p *picker) move(dir int) {
	next := p.nextRevision(p.cursor+dir, dir)
	if p.rows[next].rev != nil {
		p.cursor = next
	}
}

func (p *picker) toggle() {
	if rev := p.rows[p.cursor].rev; rev != nil {
		p.selected[rev.CommitHash] = !p.selected[rev.CommitHash]
	}
}

// toggleRepo selects every revision of the repo under the cursor, or
// clears them all when they were already all selected.
func (p *picker) toggleRepo() {
	repo := p.rows[p.cursor].repo
	all := true
	for _, rev := range repo.Revisions {
		if !p.selected[rev.CommitHash] {
			all = false
			break
		}
	}
	for _, rev := range repo.Revisions {
		p.selected[rev.CommitHash] = !all
	}
}

func (p *picker) selection() []string {
	var out []string
	for _, r := range p.rows {
		if r.rev != nil && p.selected[r.rev.CommitHash] {
			out = append(out, r.rev.CommitHash)
		}
	}
	return out
}

// clear erases the previously drawn block.
func (p *picker) clear() {
	if p.drawn > 0 {
		fmt.Printf("\x1b[%dA\x1b[J", p.drawn)
		p.drawn = 0
	}
}

// draw renders the picker in place. The terminal is in raw mode, so
// every line ends with \r\n.
func (p *picker) draw(fd int) {
	_, height, err := term.GetSize(fd)
	if err != nil || height <= 0 {
		height = 24
	}
	visible := height - 3 // reserve header + footer + prompt line
	if visible < 4 {
		visible = 4
	}

	// Scroll the viewport so the cursor stays on screen.
	offset := 0
	if p.cursor >= visible {
		offset = p.cursor - visible + 1
	}

	bold := color.New(color.Bold)
	cyan := color.New(color.FgCyan)
	green := color.New(color.FgGreen)
	faint := color.New(color.Faint)

	var b strings.Builder
	lines := 0
	b.WriteString(bold.Sprint("Select revisions to delete") +
		faint.Sprint("  (space toggle, a repo, enter confirm, q quit)") + "\r\n")
	lines++

	end := offset + visible
	if end > len(p.rows) {
		end = len(p.rows)
	}
	for i := offset; i < end; i++ {
		r := p.rows[i]
		if r.rev == nil {
			b.WriteString(cyan.Sprintf("%s (%s, %s)", r.repo.RepoID, r.repo.RepoType,
				hfcache.FormatSize(r.repo.SizeOnDisk)) + "\r\n")
			lines++
			continue
		}
		mark := "[ ]"
		if p.selected[r.rev.CommitHash] {
			mark = green.Sprint("[x]")
		}
		prefix := "  "
		if i == p.cursor {
			prefix = bold.Sprint("> ")
		}
		refs := strings.Join(r.rev.Refs, ", ")
		if refs == "" {
			refs = "(detached)"
		}
		b.WriteString(fmt.Sprintf("%s%s %.12s  %8s  %s", prefix, mark, r.rev.CommitHash,
			hfcache.FormatSize(r.rev.SizeOnDisk), refs) + "\r\n")
		lines++
	}

	// Footer: recompute the plan on every toggle so the freed size shown
	// is exactly what deletion would free, shared blobs excluded.
	strategy := p.info.DeleteRevisions(p.selection()...)
	b.WriteString(fmt.Sprintf("%d revision(s) selected, %s to be freed\r\n",
		len(p.selection()), hfcache.FormatSize(strategy.ExpectedFreedSize)))
	lines++

	p.clear()
	fmt.Print(b.String())
	p.drawn = lines
}
