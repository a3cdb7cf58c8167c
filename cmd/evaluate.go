package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/fit-agent/internal/agent"
	"github.com/spigell/fit-agent/internal/decision"
	"github.com/spigell/fit-agent/internal/headhunter"
	"github.com/spigell/fit-agent/internal/secrets"
	"github.com/spigell/fit-agent/internal/server"
)

const stdinName = "-"

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate resumes against job requirements and print the decisions as JSON",
	Run:   evaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringArrayP("file", "f", nil, "request JSON file, `-` reads stdin (repeatable)")
	evaluateCmd.Flags().Int("concurrency", 4, "how many requests are evaluated at once")
	evaluateCmd.Flags().String("vacancy", "", "hh.ru vacancy id to evaluate instead of request files")
	evaluateCmd.Flags().String("resume", "", "title of the hh.ru resume to use (asked interactively when empty)")
	evaluateCmd.Flags().Bool("apply", false, "respond to the vacancy with the cover letter when the decision is APPLY")
	evaluateCmd.Flags().BoolP("auto-approve", "y", false, "do not ask for confirmation before applying")

	viper.BindPFlag("evaluate.concurrency", evaluateCmd.Flags().Lookup("concurrency"))
}

func evaluate(cmd *cobra.Command, _ []string) {
	log := newLogger()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config, err := getConfig()
	if err != nil {
		log.Fatal("loading config", zap.Error(err))
	}

	svc, err := newServices(ctx, config, log)
	if err != nil {
		log.Fatal("creating agent", zap.Error(err))
	}
	evaluator := svc.agent

	vacancyID, _ := cmd.Flags().GetString("vacancy")
	if vacancyID != "" {
		if err := evaluateVacancy(ctx, cmd, config, evaluator, vacancyID, log); err != nil {
			log.Fatal("evaluating vacancy", zap.Error(err))
		}
		return
	}

	files, _ := cmd.Flags().GetStringArray("file")
	if len(files) == 0 {
		files = []string{stdinName}
	}

	requests, err := readRequests(cmd.InOrStdin(), files)
	if err != nil {
		log.Fatal("reading requests", zap.Error(err))
	}

	responses, err := evaluateAll(ctx, evaluator, requests, viper.GetInt("evaluate.concurrency"))
	if err != nil {
		log.Fatal("evaluating requests", zap.Error(err))
	}

	for _, resp := range responses {
		if err := writeJSON(cmd.OutOrStdout(), resp); err != nil {
			log.Fatal("writing response", zap.Error(err))
		}
	}
}

// readRequests decodes one request per file. The stdin marker may be used once.
func readRequests(stdin io.Reader, files []string) ([]*agent.Request, error) {
	requests := make([]*agent.Request, 0, len(files))
	stdinUsed := false

	for _, name := range files {
		var (
			data []byte
			err  error
		)

		if name == stdinName {
			if stdinUsed {
				return nil, errors.New("stdin can be read only once")
			}
			stdinUsed = true
			data, err = io.ReadAll(stdin)
		} else {
			data, err = os.ReadFile(name)
		}
		if err != nil {
			return nil, fmt.Errorf("reading request %q: %w", name, err)
		}

		var req agent.Request
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, fmt.Errorf("decoding request %q: %w", name, err)
		}
		requests = append(requests, &req)
	}

	return requests, nil
}

// evaluateAll runs the requests with bounded concurrency. Responses keep the order of the
// requests and the first error cancels the rest.
func evaluateAll(ctx context.Context, evaluator server.Evaluator, requests []*agent.Request, concurrency int) ([]*agent.Response, error) {
	if concurrency <= 0 {
		concurrency = 1
	}

	responses := make([]*agent.Response, len(requests))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, req := range requests {
		g.Go(func() error {
			resp, err := evaluator.Evaluate(ctx, req)
			if err != nil {
				return fmt.Errorf("request %d: %w", i+1, err)
			}
			responses[i] = resp
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return responses, nil
}

func evaluateVacancy(ctx context.Context, cmd *cobra.Command, config *Config, evaluator server.Evaluator, vacancyID string, log *zap.Logger) error {
	token, err := secrets.Load(secrets.Source{
		Name: "hh.ru token",
		File: config.Headhunter.TokenFile,
		Env:  hhTokenEnv,
	})
	if err != nil {
		return err
	}

	hh := headhunter.New(log, token, config.Headhunter.UserAgent)

	resumes, err := hh.GetMineResumes(ctx)
	if err != nil {
		return fmt.Errorf("loading resumes: %w", err)
	}

	title, _ := cmd.Flags().GetString("resume")
	resume, err := pickResume(resumes, title)
	if err != nil {
		return err
	}

	details, err := hh.GetResumeDetails(ctx, resume.ID)
	if err != nil {
		return fmt.Errorf("loading resume %q: %w", resume.Title, err)
	}

	vacancy, err := hh.GetVacancy(ctx, vacancyID)
	if err != nil {
		return fmt.Errorf("loading vacancy %s: %w", vacancyID, err)
	}

	resp, err := evaluator.Evaluate(ctx, requestFromHeadhunter(details, vacancy, time.Now()))
	if err != nil {
		return err
	}

	if err := writeJSON(cmd.OutOrStdout(), resp); err != nil {
		return err
	}

	apply, _ := cmd.Flags().GetBool("apply")
	if !apply {
		return nil
	}

	if resp.Decision != decision.Apply || resp.CoverLetter == nil {
		log.Info("not applying, the vacancy is not a fit", zap.String("vacancy", vacancy.Name), zap.String("decision", string(resp.Decision)))
		return nil
	}

	autoApprove, _ := cmd.Flags().GetBool("auto-approve")
	if !autoApprove && !confirm(fmt.Sprintf("Apply to %q at %s", vacancy.Name, vacancy.Employer.Name)) {
		log.Info("user cancelled the response")
		return nil
	}

	err = hh.Apply(ctx, resume.ID, vacancy.ID, *resp.CoverLetter)
	if errors.Is(err, headhunter.ErrAlreadyApplied) {
		log.Info("vacancy already has a response", zap.String("vacancy", vacancy.Name))
		return nil
	}
	if err != nil {
		return fmt.Errorf("applying to vacancy %s: %w", vacancy.ID, err)
	}

	log.Info("response sent", zap.String("vacancy", vacancy.Name), zap.String("url", vacancy.AlternateURL))

	return nil
}

func requestFromHeadhunter(details *headhunter.ResumeDetails, vacancy *headhunter.Vacancy, now time.Time) *agent.Request {
	return &agent.Request{
		ResumeSkills:     details.SkillSet,
		ResumeExperience: details.Bullets(now),
		RequiredSkills:   vacancy.RequiredSkills(),
	}
}

func pickResume(resumes *headhunter.Resumes, title string) (*headhunter.Resume, error) {
	if resumes.Len() == 0 {
		return nil, errors.New("no resumes found")
	}

	if title != "" {
		resume := resumes.FindByTitle(title)
		if resume == nil {
			return nil, fmt.Errorf("resume %q not found", title)
		}
		return resume, nil
	}

	if resumes.Len() == 1 {
		return resumes.Items[0], nil
	}

	prompt := promptui.Select{
		Label: "Select resume",
		Items: resumes.Titles(),
	}

	_, chosen, err := prompt.Run()
	if err != nil {
		return nil, fmt.Errorf("selecting resume: %w", err)
	}

	return resumes.FindByTitle(chosen), nil
}

func confirm(label string) bool {
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
	}

	_, err := prompt.Run()
	return err == nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
