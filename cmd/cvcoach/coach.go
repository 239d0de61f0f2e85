package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"cvcoach-backend/internal/coach"
	"cvcoach-backend/internal/wizard"
)

var coachCmd = &cobra.Command{
	Use:   "coach",
	Short: "Analyze, then chat with the coach and apply its suggestions",
	Long: `Analyze the CV, then start a coaching session on stdin.

Commands inside the session:
  /apply N     apply suggestion N to the CV
  /reject N    reject suggestion N
  /reanalyze   score the edited CV again and start a new session
  /cv          print the current CV text
  /export      write the improvement log (see --out)
  /quit        leave`,
	RunE: runCoach,
}

var (
	coachCVPath string
	coachJDPath string
	coachForce  bool
	coachOut    string
)

func init() {
	coachCmd.Flags().StringVar(&coachCVPath, "cv", "", "Path to the CV (pdf, docx, html or text)")
	coachCmd.Flags().StringVar(&coachJDPath, "jd", "", "Path to the job description")
	coachCmd.Flags().BoolVar(&coachForce, "force", false, "Skip document validation")
	coachCmd.Flags().StringVarP(&coachOut, "out", "o", "improvement-log.txt", "Where /export writes the improvement log")
	_ = coachCmd.MarkFlagRequired("cv")
	_ = coachCmd.MarkFlagRequired("jd")

	rootCmd.AddCommand(coachCmd)
}

func runCoach(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	app, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close(context.Background())

	ws, err := prepareWorkspace(ctx, app, coachCVPath, coachJDPath, coachForce)
	if err != nil {
		return err
	}
	printAnalysis(cmd.OutOrStdout(), ws)

	s := &session{
		svc:  app.Wizard,
		id:   ws.ID,
		out:  cmd.OutOrStdout(),
		dest: coachOut,
	}
	return s.run(ctx, cmd.InOrStdin())
}

// session drives one workspace's coach from a line-oriented reader.
type session struct {
	svc  *wizard.Service
	id   string
	out  io.Writer
	dest string
}

func (s *session) run(ctx context.Context, in io.Reader) error {
	ws, err := s.svc.Get(owner, s.id)
	if err != nil {
		return err
	}
	if ws.Coach == nil {
		return errors.New("coach is not available for this workspace")
	}
	s.print(ws.Coach.Messages(), 0)

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for {
		fmt.Fprint(s.out, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		done, err := s.handle(ctx, line)
		if err != nil {
			fmt.Fprintf(s.out, "! %v\n", err)
		}
		if done {
			return nil
		}
	}
	return scanner.Err()
}

func (s *session) handle(ctx context.Context, line string) (bool, error) {
	if !strings.HasPrefix(line, "/") {
		before := s.transcriptLen()
		msgs, err := s.svc.SendChat(ctx, owner, s.id, line)
		s.print(msgs, before)
		return false, err
	}

	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true, nil
	case "/apply", "/reject":
		index, err := suggestionIndex(fields)
		if err != nil {
			return false, err
		}
		before := s.transcriptLen()
		var msgs []coach.Message
		if fields[0] == "/apply" {
			msgs, _, err = s.svc.ApplySuggestion(ctx, owner, s.id, index)
		} else {
			msgs, err = s.svc.RejectSuggestion(ctx, owner, s.id, index)
		}
		s.print(msgs, before)
		return false, err
	case "/reanalyze":
		ws, err := s.svc.RunAnalysis(ctx, owner, s.id)
		if err != nil {
			return false, err
		}
		printAnalysis(s.out, ws)
		if ws.Coach != nil {
			s.print(ws.Coach.Messages(), 0)
		}
		return false, nil
	case "/cv":
		ws, err := s.svc.Get(owner, s.id)
		if err != nil {
			return false, err
		}
		fmt.Fprintln(s.out, ws.CV.RawText)
		return false, nil
	case "/export":
		body, err := s.svc.Export(ctx, owner, s.id)
		if err != nil {
			return false, err
		}
		if err := os.WriteFile(s.dest, body, 0o644); err != nil {
			return false, fmt.Errorf("write %s: %w", s.dest, err)
		}
		fmt.Fprintf(s.out, "Improvement log written to %s\n", s.dest)
		return false, nil
	default:
		return false, fmt.Errorf("unknown command %s", fields[0])
	}
}

func (s *session) transcriptLen() int {
	ws, err := s.svc.Get(owner, s.id)
	if err != nil || ws.Coach == nil {
		return 0
	}
	return len(ws.Coach.Messages())
}

// print writes msgs, numbering suggestions by their transcript position so
// /apply and /reject can refer to them.
func (s *session) print(msgs []coach.Message, first int) {
	for i, m := range msgs {
		if m.Role == coach.RoleUser {
			continue
		}
		fmt.Fprintf(s.out, "coach: %s\n", m.Content)
		if m.Suggestion != nil {
			fmt.Fprintf(s.out, "  [%d] replace %q\n      with    %q\n", first+i, m.Suggestion.Original, m.Suggestion.Replacement)
		}
		if r := m.CourseRecommendation; r != nil {
			fmt.Fprintf(s.out, "  courses for %s:\n", r.MissingSkill)
			for _, c := range r.Courses {
				fmt.Fprintf(s.out, "    - %s (%s)\n", c.Title, c.Platform)
			}
		}
		if len(m.QuickReplies) > 0 {
			fmt.Fprintf(s.out, "  try: %s\n", strings.Join(m.QuickReplies, " | "))
		}
	}
}

func suggestionIndex(fields []string) (int, error) {
	if len(fields) != 2 {
		return 0, fmt.Errorf("usage: %s N", fields[0])
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid suggestion number %q", fields[1])
	}
	return n, nil
}
