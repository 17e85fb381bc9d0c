// Package shell implements the interactive inspection shell: it parses
// "verb noun" commands, resolves the target model session and drives the
// inspect package's navigator and hooks, rendering results through a
// plots.Plotter.
//
// Dispatch is an explicit command table -- each command is a named entry with
// aliases and a handler; there is no reflection from command text to methods.
package shell

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/gomlx/exceptions"
	"github.com/layerscope/layerscope/inspect"
	"github.com/layerscope/layerscope/ml/data"
	"github.com/layerscope/layerscope/ml/train"
	"github.com/layerscope/layerscope/models"
	"github.com/layerscope/layerscope/types/tensors"
	"github.com/layerscope/layerscope/ui/plots"
	"github.com/muesli/termenv"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

const (
	// RCFileName is executed line by line at startup, if present in the
	// working directory.
	RCFileName = ".layerscoperc"

	// HistoryFileName records the commands of a session.
	HistoryFileName = ".layerscope_history"

	// Prompt printed before each command line.
	Prompt = ">> "
)

// Shell is one interactive inspection session over a set of named models.
type Shell struct {
	config  *train.Config
	plotter plots.Plotter
	dataset *data.Dataset

	// registry of models the user can `set model` into context.
	registry map[string]models.Layer

	// sessions in context, one per distinct name; cur points at the active
	// one (nil until the first `set model`).
	sessions map[string]*inspect.Session
	cur      *inspect.Session

	// image is the current input, [1, C, H, W].
	image *tensors.Tensor

	// post-process transform selected with `set post process`.
	postName string
	postFn   inspect.PostProcessFn

	commands *commandTable

	in      io.Reader
	out     io.Writer
	history []string

	errStyle  lipgloss.Style
	infoStyle lipgloss.Style

	quit bool
}

// New creates a shell reading commands from in and writing to out.
func New(config *train.Config, plotter plots.Plotter, in io.Reader, out io.Writer) *Shell {
	s := &Shell{
		config:   config,
		plotter:  plotter,
		registry: make(map[string]models.Layer),
		sessions: make(map[string]*inspect.Session),
		in:       in,
		out:      out,
	}
	s.commands = newCommandTable()
	if termenv.ColorProfile() != termenv.Ascii {
		s.errStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
		s.infoStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	}
	return s
}

// RegisterModel makes a model available to `set model` and `resync` under
// the given name.
func (s *Shell) RegisterModel(name string, model models.Layer) {
	s.registry[name] = model
}

// SetDataset attaches the labeled dataset the `image next`, `set class` and
// `heatmap next` commands walk.
func (s *Shell) SetDataset(ds *data.Dataset) {
	s.dataset = ds
}

// Image returns the current input image tensor, or nil.
func (s *Shell) Image() *tensors.Tensor { return s.image }

// CurrentSession returns the active session, or nil before `set model`.
func (s *Shell) CurrentSession() *inspect.Session { return s.cur }

// Run executes the rc file and then the interactive loop, until `quit` or
// EOF. Command panics are caught and reported; the loop continues.
func (s *Shell) Run(intro string) error {
	if intro != "" {
		s.message(intro)
	}
	s.loadHistory()
	s.execRCFile()

	scanner := bufio.NewScanner(s.in)
	for !s.quit {
		fmt.Fprint(s.out, Prompt)
		if !scanner.Scan() {
			break
		}
		s.execLine(scanner.Text())
	}
	s.saveHistory()
	for _, session := range s.sessions {
		session.Close()
	}
	return scanner.Err()
}

// execLine dispatches one command line, reporting errors and recovering from
// panics -- a bad command must never take the whole shell down.
func (s *Shell) execLine(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	s.history = append(s.history, line)

	var err error
	exception := exceptions.Try(func() {
		err = s.Dispatch(line)
	})
	if exception != nil {
		s.errorf("command panicked: %v", exception)
		return
	}
	if err != nil {
		s.errorf("%v", err)
	}
}

// Dispatch resolves the command of a line in the command table and runs it.
// Multi-word command names are matched longest first, so "show first layer
// weights" wins over a hypothetical "show" command.
func (s *Shell) Dispatch(line string) error {
	tokens := strings.Fields(line)
	if len(tokens) == 0 {
		return nil
	}
	for n := min(len(tokens), maxCommandWords); n >= 1; n-- {
		key := strings.Join(tokens[:n], " ")
		if cmd, ok := s.commands.lookup(key); ok {
			return cmd.run(s, strings.Join(tokens[n:], " "))
		}
	}
	return errors.Errorf("unknown command %q, try `help`", tokens[0])
}

func (s *Shell) message(format string, args ...any) {
	fmt.Fprintf(s.out, format+"\n", args...)
}

func (s *Shell) errorf(format string, args ...any) {
	msg := fmt.Sprintf("***"+format, args...)
	fmt.Fprintln(s.out, s.errStyle.Render(msg))
}

func (s *Shell) info(format string, args ...any) {
	fmt.Fprintln(s.out, s.infoStyle.Render(fmt.Sprintf(format, args...)))
}

func (s *Shell) execRCFile() {
	f, err := os.Open(RCFileName)
	if err != nil {
		return
	}
	defer func() { _ = f.Close() }()

	s.message("\nExecuting rc file")
	scanner := bufio.NewScanner(f)
	num := 1
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		s.message("%d: %s", num, line)
		num++
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		s.execLine(line)
	}
	s.message("")
}

func (s *Shell) loadHistory() {
	content, err := os.ReadFile(HistoryFileName)
	if err != nil {
		return
	}
	for _, line := range strings.Split(string(content), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			s.history = append(s.history, line)
		}
	}
}

// historyLimit bounds the saved history file.
const historyLimit = 2000

func (s *Shell) saveHistory() {
	history := s.history
	if len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}
	content := strings.Join(history, "\n")
	if len(content) > 0 {
		content += "\n"
	}
	if err := os.WriteFile(HistoryFileName, []byte(content), 0660); err != nil {
		klog.Warningf("failed to save history to %s: %v", HistoryFileName, err)
	}
}

// currentSession returns the active session, as an error when none is set.
func (s *Shell) currentSession() (*inspect.Session, error) {
	if s.cur == nil {
		return nil, errors.Errorf("no model in context, `set model <name>` first")
	}
	return s.cur, nil
}

// sessionFor resolves an optional model-name argument: empty means the
// active session.
func (s *Shell) sessionFor(args string) (*inspect.Session, error) {
	name := strings.TrimSpace(args)
	if name == "" {
		return s.currentSession()
	}
	session, ok := s.sessions[name]
	if !ok {
		return nil, errors.Errorf("model %q not in context, `set model %s` first", name, name)
	}
	return session, nil
}
