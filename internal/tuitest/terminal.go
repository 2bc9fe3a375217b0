package tuitest

import (
	"bytes"
	"io"
)

// queryReplies answers the terminal queries bubbletea and lipgloss send at
// startup so the program under test does not stall waiting for a real
// terminal.
var queryReplies = []struct {
	query, reply []byte
}{
	{[]byte("\x1b[6n"), []byte("\x1b[1;1R")},
	{[]byte("\x1b]10;?\x07"), []byte("\x1b]10;rgb:cccc/cccc/cccc\x07")},
	{[]byte("\x1b]10;?\x1b\\"), []byte("\x1b]10;rgb:cccc/cccc/cccc\x1b\\")},
	{[]byte("\x1b]11;?\x07"), []byte("\x1b]11;rgb:0000/0000/0000\x07")},
	{[]byte("\x1b]11;?\x1b\\"), []byte("\x1b]11;rgb:0000/0000/0000\x1b\\")},
}

const (
	pendingLimit = 256
	pendingKeep  = 64
)

type responder struct {
	w       io.Writer
	pending []byte
}

func newResponder(w io.Writer) *responder {
	return &responder{w: w, pending: make([]byte, 0, pendingLimit)}
}

// Observe scans program output for queries, replying to each one found.
// A short tail is retained so queries split across reads are still seen.
func (r *responder) Observe(chunk []byte) {
	r.pending = append(r.pending, chunk...)
	for r.answerOne() {
	}
	if len(r.pending) > pendingLimit {
		r.pending = r.pending[len(r.pending)-pendingKeep:]
	}
}

func (r *responder) answerOne() bool {
	for _, q := range queryReplies {
		idx := bytes.Index(r.pending, q.query)
		if idx < 0 {
			continue
		}
		r.pending = r.pending[idx+len(q.query):]
		_, _ = r.w.Write(q.reply)
		return true
	}
	return false
}
