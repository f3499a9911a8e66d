package main

import (
	"fmt"
	"io"
	"sync"
)

// consoleSink prints display lines on a writer, one per line.
type consoleSink struct {
	mu sync.Mutex
	w  io.Writer
}

func newConsoleSink(w io.Writer) *consoleSink {
	return &consoleSink{w: w}
}

func (s *consoleSink) Append(line string) {
	s.mu.Lock()
	fmt.Fprintln(s.w, line)
	s.mu.Unlock()
}

// channelSink queues display lines for the terminal UI.  Append only waits
// while the queue is full and gives up once the UI has stopped.
type channelSink struct {
	lines chan string
	quit  chan struct{}
	once  sync.Once
}

func newChannelSink(size int) *channelSink {
	return &channelSink{
		lines: make(chan string, size),
		quit:  make(chan struct{}),
	}
}

func (s *channelSink) Append(line string) {
	select {
	case s.lines <- line:
	case <-s.quit:
	}
}

// Lines returns the queue the UI drains.
func (s *channelSink) Lines() <-chan string {
	return s.lines
}

// Stop releases any writer blocked on a full queue.
func (s *channelSink) Stop() {
	s.once.Do(func() { close(s.quit) })
}
