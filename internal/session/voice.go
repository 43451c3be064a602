package session

import (
	"context"
	"errors"
	"iter"
	"sync"
)

// Transcript is one speech-recognition update. Interim updates may be
// superseded; a Final one ends the utterance.
type Transcript struct {
	Text  string
	Final bool
}

// TranscriptSource produces transcript updates. Each call to Listen starts a
// fresh capture; nothing is recorded until the sequence is iterated.
type TranscriptSource interface {
	Listen(ctx context.Context) iter.Seq2[Transcript, error]
}

// SpeechPlayer reads text aloud. Play starts playback and returns a channel
// closed when playback ends, whether it finished or was stopped.
type SpeechPlayer interface {
	Play(ctx context.Context, text string) (<-chan struct{}, error)
	Stop() error
}

// Listen drives one capture from src into the draft input, stopping at the
// first final transcript, the first error, or when the sequence ends.
func (c *Conversation) Listen(ctx context.Context, src TranscriptSource) error {
	if src == nil {
		return errors.New("session: transcript source must not be nil")
	}
	c.StartListening()
	defer c.StopListening()
	for t, err := range src.Listen(ctx) {
		if err != nil {
			return err
		}
		c.ApplyTranscript(t)
		if t.Final {
			break
		}
	}
	return nil
}

// Speaker tracks which reply is being read aloud so each one can be toggled
// between play and stop.
type Speaker struct {
	player SpeechPlayer

	mu      sync.Mutex
	playing int
	gen     uint64
}

func NewSpeaker(p SpeechPlayer) (*Speaker, error) {
	if p == nil {
		return nil, errors.New("session: speech player must not be nil")
	}
	return &Speaker{player: p, playing: -1}, nil
}

// Playing returns the index of the reply being read, or -1.
func (s *Speaker) Playing() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

// Toggle stops reply idx if it is playing; otherwise it stops whatever is
// playing and starts idx.
func (s *Speaker) Toggle(ctx context.Context, idx int, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.playing >= 0 {
		stopped := s.playing
		if err := s.player.Stop(); err != nil {
			return err
		}
		s.playing = -1
		s.gen++
		if stopped == idx {
			return nil
		}
	}

	done, err := s.player.Play(ctx, text)
	if err != nil {
		return err
	}
	s.gen++
	gen := s.gen
	s.playing = idx
	go s.clearWhenDone(done, gen)
	return nil
}

func (s *Speaker) clearWhenDone(done <-chan struct{}, gen uint64) {
	<-done
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen == gen {
		s.playing = -1
	}
}
