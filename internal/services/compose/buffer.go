// Package compose holds the text a user is typing before it is submitted.
package compose

import (
	"strings"
	"sync"
)

type Buffer struct {
	mu   sync.Mutex
	text string
}

func NewBuffer() *Buffer {
	return &Buffer{}
}

// Append adds dictated text, separated by a single space from what is already there
func (b *Buffer) Append(text string) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if text == "" {
		return b.text
	}
	if b.text != "" && !strings.HasSuffix(b.text, " ") {
		b.text += " "
	}
	b.text += text
	return b.text
}

// Set replaces the buffer with literally typed text
func (b *Buffer) Set(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.text = text
}

func (b *Buffer) Text() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.text
}

// ClearIf empties the buffer only if it still holds text. It reports whether
// the buffer was cleared.
func (b *Buffer) ClearIf(text string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.text != text {
		return false
	}
	b.text = ""
	return true
}

func (b *Buffer) Clear() {
	b.Set("")
}
