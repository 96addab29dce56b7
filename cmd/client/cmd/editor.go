package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"sync"

	"polyform-sync/internal/domain"
	"polyform-sync/internal/room"

	"github.com/fatih/color"
)

// roomView is the part of room.Controller the editor drives.
type roomView interface {
	Blocks() []*domain.Block
	Display(blockID string) (domain.Content, error)
	Status(blockID string) (room.Status, error)
	Edit(blockID string, content domain.Content) (int64, error)
	Undo(blockID string) (bool, error)
	Redo(blockID string) (bool, error)
	SetLanguage(lang string)
	Language() string
	SetUniversal(blockID string, universal bool) error
	Peers() []domain.Presence
	CanEdit() bool
}

var errQuit = errors.New("quit")

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	noticeColor = color.New(color.FgYellow)
	errorColor  = color.New(color.FgRed)
	dimColor    = color.New(color.Faint)
)

// editor is a line-oriented view of one block. Remote changes are printed
// as they arrive.
type editor struct {
	room    roomView
	blockID string

	mu   sync.Mutex
	out  io.Writer
	last rendered
}

// rendered is what was printed last.
type rendered struct {
	lang    string
	version int64
	content domain.Content
}

func newEditor(r roomView) *editor {
	e := &editor{room: r}
	if blocks := r.Blocks(); len(blocks) > 0 {
		e.blockID = blocks[0].ID
	}
	return e
}

// Run reads commands until :quit, EOF or ctx is done.
func (e *editor) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	e.mu.Lock()
	e.out = out
	e.mu.Unlock()

	if e.blockID == "" {
		return fmt.Errorf("space has no blocks")
	}

	e.show()
	e.printf(dimColor, "Type :help for commands.\n")

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			return err
		case line := <-lines:
			if err := e.exec(line); err != nil {
				if errors.Is(err, errQuit) {
					return nil
				}
				e.printf(errorColor, "error: %v\n", err)
			}
		}
	}
}

// Notify is wired to the controller's change callback.
func (e *editor) Notify(blockID string) {
	if blockID != "" && blockID != e.blockID {
		return
	}
	e.mu.Lock()
	ready := e.out != nil
	e.mu.Unlock()
	if ready {
		e.refresh()
	}
}

// refresh prints the block unless it looks exactly as last printed.
func (e *editor) refresh() {
	e.render(false)
}

func (e *editor) show() {
	e.render(true)
}

func (e *editor) exec(line string) error {
	line = strings.TrimRight(line, "\r")
	if strings.TrimSpace(line) == "" {
		return nil
	}
	if !strings.HasPrefix(line, ":") {
		return e.appendParagraph(line)
	}

	name, arg, _ := strings.Cut(strings.TrimPrefix(line, ":"), " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "q", "quit":
		return errQuit
	case "h", "help":
		e.help()
	case "show":
		e.show()
	case "append":
		return e.appendParagraph(arg)
	case "set":
		return e.setParagraph(arg)
	case "del":
		return e.deleteParagraph(arg)
	case "lang":
		if arg == "" {
			e.printf(nil, "reading in %s\n", e.room.Language())
			return nil
		}
		e.room.SetLanguage(arg)
		e.refresh()
	case "undo":
		return e.replay("undo", e.room.Undo)
	case "redo":
		return e.replay("redo", e.room.Redo)
	case "universal":
		on, err := parseSwitch(arg)
		if err != nil {
			return err
		}
		if err := e.room.SetUniversal(e.blockID, on); err != nil {
			return err
		}
		e.refresh()
	case "status":
		st, err := e.room.Status(e.blockID)
		if err != nil {
			return err
		}
		e.printf(nil, "block %s v%d [%s] %s\n", st.BlockID, st.Version, st.Language, st)
	case "who":
		e.who()
	default:
		return fmt.Errorf("unknown command :%s", name)
	}
	return nil
}

func (e *editor) source() (domain.Content, error) {
	for _, b := range e.room.Blocks() {
		if b.ID == e.blockID {
			return b.SourceContent.Clone(), nil
		}
	}
	return domain.Content{}, room.ErrUnknownBlock
}

func (e *editor) modify(change func(*domain.Content) error) error {
	if !e.room.CanEdit() {
		return room.ErrReadOnly
	}
	content, err := e.source()
	if err != nil {
		return err
	}
	if err := change(&content); err != nil {
		return err
	}
	if _, err := e.room.Edit(e.blockID, content); err != nil {
		return err
	}
	e.refresh()
	return nil
}

func (e *editor) appendParagraph(text string) error {
	return e.modify(func(c *domain.Content) error {
		c.Paragraphs = append(c.Paragraphs, text)
		return nil
	})
}

// setParagraph handles ":set <n> <text>" with n counted from 1.
func (e *editor) setParagraph(arg string) error {
	num, text, _ := strings.Cut(arg, " ")
	n, err := strconv.Atoi(num)
	if err != nil {
		return fmt.Errorf("usage: :set <n> <text>")
	}
	return e.modify(func(c *domain.Content) error {
		if n < 1 || n > len(c.Paragraphs)+1 {
			return fmt.Errorf("paragraph %d out of range 1..%d", n, len(c.Paragraphs)+1)
		}
		if n == len(c.Paragraphs)+1 {
			c.Paragraphs = append(c.Paragraphs, text)
			return nil
		}
		c.Paragraphs[n-1] = text
		return nil
	})
}

func (e *editor) deleteParagraph(arg string) error {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return fmt.Errorf("usage: :del <n>")
	}
	return e.modify(func(c *domain.Content) error {
		if n < 1 || n > len(c.Paragraphs) {
			return fmt.Errorf("paragraph %d out of range 1..%d", n, len(c.Paragraphs))
		}
		c.Paragraphs = slices.Delete(c.Paragraphs, n-1, n)
		return nil
	})
}

func (e *editor) replay(verb string, op func(string) (bool, error)) error {
	ok, err := op(e.blockID)
	if err != nil {
		return err
	}
	if !ok {
		e.printf(noticeColor, "nothing to %s\n", verb)
		return nil
	}
	e.refresh()
	return nil
}

func (e *editor) render(force bool) {
	content, err := e.room.Display(e.blockID)
	if err != nil {
		e.printf(errorColor, "error: %v\n", err)
		return
	}
	st, _ := e.room.Status(e.blockID)
	view := rendered{lang: e.room.Language(), version: st.Version, content: content}

	e.mu.Lock()
	defer e.mu.Unlock()
	if !force && view.lang == e.last.lang && view.version == e.last.version && view.content.Equal(e.last.content) {
		return
	}
	e.last = view

	headerColor.Fprintf(e.out, "── %s · v%d · %s ──\n", view.lang, st.Version, st)
	for i, p := range content.Paragraphs {
		fmt.Fprintf(e.out, "%3d  %s\n", i+1, p)
	}
}

func (e *editor) who() {
	peers := e.room.Peers()
	if len(peers) == 0 {
		e.printf(dimColor, "nobody else is here\n")
		return
	}
	for _, p := range peers {
		e.printf(nil, "%s (%s) %s\n", p.DisplayName, p.Language, dimColor.Sprint(p.SessionID))
	}
}

func (e *editor) help() {
	e.printf(nil, `  <text>             append a paragraph
  :set <n> <text>    replace paragraph n
  :append <text>     append a paragraph
  :del <n>           delete paragraph n
  :lang [code]       show or switch your reading language
  :undo / :redo      step through your edit history
  :universal on|off  show the source to every language
  :status            sync state of the block
  :who               people in the room
  :show              print the block
  :quit              leave the room
`)
}

func (e *editor) printf(c *color.Color, format string, args ...interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if c == nil {
		fmt.Fprintf(e.out, format, args...)
		return
	}
	c.Fprintf(e.out, format, args...)
}

func parseSwitch(arg string) (bool, error) {
	switch strings.ToLower(arg) {
	case "on", "true", "yes":
		return true, nil
	case "off", "false", "no":
		return false, nil
	}
	return false, fmt.Errorf("usage: :universal on|off")
}
