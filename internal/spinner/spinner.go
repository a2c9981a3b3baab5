// Package spinner keeps a captured run from looking hung. While the
// child's output is being captured instead of streamed, a single
// terminal line shows a spinner, the command name, and the child's
// latest output line, redrawn in place.
package spinner

import (
	"bufio"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Spinner renders the progress line. Feed it child output through
// Writer(); the most recent line becomes the status text.
type Spinner struct {
	program *tea.Program
	reader  *io.PipeReader
	writer  *io.PipeWriter
	lineCh  chan string
	done    chan struct{}
	wg      sync.WaitGroup
	output  io.Writer
	title   string
}

// New builds a Spinner writing to output (os.Stderr when nil, so the
// display never mixes into captured stdout). title is shown before the
// status line, usually the running command's name.
func New(output io.Writer, title string) *Spinner {
	if output == nil {
		output = os.Stderr
	}

	reader, writer := io.Pipe()
	return &Spinner{
		reader: reader,
		writer: writer,
		lineCh: make(chan string, 100), // keeps the pipe reader from blocking on redraws
		done:   make(chan struct{}),
		output: output,
		title:  title,
	}
}

// Writer returns the sink for child output lines.
func (s *Spinner) Writer() io.Writer {
	return s.writer
}

// Start runs the display until Stop is called. It blocks; run it in a
// goroutine alongside the supervised child.
func (s *Spinner) Start() error {
	s.wg.Add(1)
	go s.readLines()

	width := 80
	if fd := int(os.Stderr.Fd()); term.IsTerminal(fd) {
		if w, _, err := term.GetSize(fd); err == nil && w > 0 {
			width = w
		}
	}

	m := newModel(s.lineCh, width, s.title)

	// The executor owns interrupt handling for the run.
	s.program = tea.NewProgram(m,
		tea.WithOutput(s.output),
		tea.WithoutSignalHandler(),
	)

	_, err := s.program.Run()

	s.wg.Wait()

	return err
}

// Stop tears the display down and clears the progress line.
func (s *Spinner) Stop() {
	// EOF for the line reader.
	_ = s.writer.Close()

	close(s.done)

	if s.program != nil {
		s.program.Quit()
	}
}

// readLines forwards non-empty lines from the pipe to the model.
func (s *Spinner) readLines() {
	defer s.wg.Done()
	defer s.reader.Close()

	scanner := bufio.NewScanner(s.reader)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		select {
		case s.lineCh <- line:
		case <-s.done:
			return
		}
	}
}

// model is the bubbletea model behind the progress line.
type model struct {
	spinner    spinner.Model
	statusLine string
	width      int
	lineCh     <-chan string
	title      string
	quitting   bool
}

// lineMsg carries one child output line into the model.
type lineMsg string

func newModel(lineCh <-chan string, width int, title string) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return model{
		spinner:    s,
		statusLine: "",
		width:      width,
		lineCh:     lineCh,
		title:      title,
	}
}

// Init implements tea.Model.
//
//nolint:gocritic // hugeParam: tea.Model interface requires value receiver
func (m model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		waitForLine(m.lineCh),
	)
}

// Update implements tea.Model.
//
//nolint:gocritic // hugeParam: tea.Model interface requires value receiver
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case lineMsg:
		m.statusLine = string(msg)
		return m, waitForLine(m.lineCh)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.QuitMsg:
		m.quitting = true
		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
//
//nolint:gocritic // hugeParam: tea.Model interface requires value receiver
func (m model) View() string {
	if m.quitting {
		return "" // clears the progress line on exit
	}

	prefix := m.spinner.View() + " "
	if m.title != "" {
		prefix += m.title + " "
	}

	maxLineWidth := m.width - len(prefix)
	if maxLineWidth < 10 {
		maxLineWidth = 10
	}

	return prefix + truncate(m.statusLine, maxLineWidth)
}

// waitForLine blocks for the next child output line.
func waitForLine(lineCh <-chan string) tea.Cmd {
	return func() tea.Msg {
		line, ok := <-lineCh
		if !ok {
			return tea.Quit()
		}
		return lineMsg(line)
	}
}

// truncate fits s into maxWidth, marking any cut with "...".
func truncate(s string, maxWidth int) string {
	if maxWidth <= 3 {
		return ""
	}
	if len(s) <= maxWidth {
		return s
	}
	return s[:maxWidth-3] + "..."
}
