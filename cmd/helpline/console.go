package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"
)

// consoleSpeaker prints assistant lines to stdout in place of TTS.
type consoleSpeaker struct{}

func (consoleSpeaker) Speak(ctx context.Context, text string) error {
	_, err := fmt.Printf("assistant> %s\n", text)
	return err
}

// consoleTranscriber reads caller lines from an input stream in place of a
// speech-to-text feed. Closing the stream (Ctrl-D) hangs up.
type consoleTranscriber struct {
	reader io.Reader
	ch     chan string
	once   sync.Once
}

func newConsoleTranscriber(reader io.Reader) *consoleTranscriber {
	return &consoleTranscriber{reader: reader, ch: make(chan string)}
}

func (t *consoleTranscriber) Start(ctx context.Context) error {
	go func() {
		defer t.close()
		scanner := bufio.NewScanner(t.reader)
		for scanner.Scan() {
			select {
			case t.ch <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

func (t *consoleTranscriber) Transcripts() <-chan string { return t.ch }

func (t *consoleTranscriber) Stop() error {
	return nil
}

func (t *consoleTranscriber) close() {
	t.once.Do(func() { close(t.ch) })
}
