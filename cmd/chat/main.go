// Command chat is a terminal front end for the relay. Each input line is
// treated as a final transcript; replies can be read aloud with /say N and
// the conversation can be written out as an HTML page.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"

	"chat-relay/internal/client"
	"chat-relay/internal/session"
)

func main() {
	_ = godotenv.Load(".env")

	endpoint := flag.String("endpoint", envOr("CHAT_ENDPOINT", "http://localhost:8080/api/chat"), "chat endpoint URL")
	htmlOut := flag.String("html", "", "write the conversation to this HTML file after every reply")
	speakCmd := flag.String("speak", "", "text-to-speech command used by /say, e.g. espeak")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cl, err := client.New(*endpoint)
	if err != nil {
		slog.Error("failed to create client", "err", err)
		os.Exit(1)
	}

	var speaker *session.Speaker
	if *speakCmd != "" {
		speaker, err = session.NewSpeaker(&execPlayer{command: *speakCmd})
		if err != nil {
			slog.Error("failed to create speaker", "err", err)
			os.Exit(1)
		}
	}

	if err := run(ctx, cl, newLineSource(os.Stdin), speaker, os.Stdout, *htmlOut); err != nil {
		slog.Error("chat ended with error", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cl *client.Client, src session.TranscriptSource, speaker *session.Speaker, out io.Writer, htmlOut string) error {
	conv := session.New()
	for {
		fmt.Fprint(out, "> ")
		if err := conv.Listen(ctx, src); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		input := strings.TrimSpace(conv.Input())
		switch {
		case input == "/quit":
			return nil
		case strings.HasPrefix(input, "/say "):
			conv.SetInput("")
			say(ctx, conv, speaker, strings.TrimPrefix(input, "/say "), out)
			continue
		}

		text, err := conv.Submit()
		if errors.Is(err, session.ErrEmptyInput) {
			continue
		}
		if err != nil {
			return err
		}

		reply, err := cl.Send(ctx, text)
		if err != nil {
			conv.Fail(err)
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		if _, err := conv.Receive(reply.Text); err != nil {
			return err
		}
		fmt.Fprintln(out, reply.Text)

		if htmlOut != "" {
			if err := writeHTML(htmlOut, conv); err != nil {
				slog.Warn("failed to write transcript", "path", htmlOut, "err", err)
			}
		}
	}
}

// say toggles playback of the n-th reply, counting from 1.
func say(ctx context.Context, conv *session.Conversation, speaker *session.Speaker, arg string, out io.Writer) {
	if speaker == nil {
		fmt.Fprintln(out, "speech is disabled; start with -speak <command>")
		return
	}
	replies := conv.Replies()
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || n < 1 || n > len(replies) {
		fmt.Fprintf(out, "no reply %q\n", arg)
		return
	}
	if err := speaker.Toggle(ctx, n-1, replies[n-1].RawText); err != nil {
		fmt.Fprintf(out, "speech error: %v\n", err)
	}
}

func writeHTML(path string, conv *session.Conversation) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := session.WriteHTML(f, "AI Chatbot", conv.Messages()); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// lineSource yields each line of r as one final transcript. Successive
// Listen calls continue from where the previous one stopped. Lines are read
// on a separate goroutine so a canceled context ends a pending Listen.
type lineSource struct {
	r     io.Reader
	once  sync.Once
	lines chan scannedLine
}

type scannedLine struct {
	text string
	err  error
}

func newLineSource(r io.Reader) *lineSource {
	return &lineSource{r: r, lines: make(chan scannedLine)}
}

func (s *lineSource) scan() {
	defer close(s.lines)
	sc := bufio.NewScanner(s.r)
	for sc.Scan() {
		s.lines <- scannedLine{text: sc.Text()}
	}
	if err := sc.Err(); err != nil {
		s.lines <- scannedLine{err: err}
	}
}

func (s *lineSource) Listen(ctx context.Context) iter.Seq2[session.Transcript, error] {
	return func(yield func(session.Transcript, error) bool) {
		if err := ctx.Err(); err != nil {
			yield(session.Transcript{}, err)
			return
		}
		s.once.Do(func() { go s.scan() })

		select {
		case <-ctx.Done():
			yield(session.Transcript{}, ctx.Err())
		case line, ok := <-s.lines:
			switch {
			case !ok:
				yield(session.Transcript{}, io.EOF)
			case line.err != nil:
				yield(session.Transcript{}, line.err)
			default:
				yield(session.Transcript{Text: line.text, Final: true}, nil)
			}
		}
	}
}
