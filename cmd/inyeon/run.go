package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"

	"github.com/suka712/inyeon-upstream/internal/agent"
)

type runFlags struct {
	diffFile string
	staged   bool
	repo     string
	verbose  bool
	asJSON   bool
}

func newRunCmd(opts *cliOptions) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Generate a commit message for a diff",
		Long: "Generate a commit message for a diff read from --diff-file, from stdin when it is a pipe, " +
			"or from `git diff --cached` in --repo.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			diff, err := readDiff(cmd.Context(), f, cmd.InOrStdin(), stdinIsPipe())
			if err != nil {
				return err
			}

			env, err := prepareRuntimeEnv(opts)
			if err != nil {
				return err
			}
			defer env.Close()

			backend, err := env.Backends.Default(cmd.Context())
			if err != nil {
				return err
			}
			a := agent.New(backend, env.Tools, agent.WithLogger(env.Logger), agent.WithHooks(env.Hooks...))
			res, err := a.Run(cmd.Context(), diff, f.repo)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), cmd.ErrOrStderr(), res, f)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&f.diffFile, "diff-file", "", "read the diff from this file")
	flags.BoolVar(&f.staged, "staged", true, "without a diff file or piped stdin, diff the index (false: the working tree)")
	flags.StringVar(&f.repo, "repo", ".", "repository the tools read from")
	flags.BoolVarP(&f.verbose, "verbose", "v", false, "print the reasoning log")
	flags.BoolVar(&f.asJSON, "json", false, "print the result as JSON")
	return cmd
}

func stdinIsPipe() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice == 0
}

// readDiff picks the diff source: file, piped stdin, then git.
func readDiff(ctx context.Context, f *runFlags, stdin io.Reader, piped bool) (string, error) {
	var (
		b   []byte
		err error
	)
	switch {
	case f.diffFile != "":
		b, err = os.ReadFile(f.diffFile)
	case piped:
		b, err = io.ReadAll(stdin)
	default:
		b, err = gitDiff(ctx, f.repo, f.staged)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read diff: %w", err)
	}
	diff := string(b)
	if strings.TrimSpace(diff) == "" {
		return "", errors.New("no changes to describe: the diff is empty")
	}
	return diff, nil
}

func gitDiff(ctx context.Context, repo string, staged bool) ([]byte, error) {
	args := []string{"-C", repo, "diff"}
	if staged {
		args = append(args, "--cached")
	}
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git diff: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

type runOutput struct {
	RunID         string         `json:"run_id"`
	CommitMessage string         `json:"commit_message"`
	Reasoning     []string       `json:"reasoning,omitempty"`
	Analysis      map[string]any `json:"analysis,omitempty"`
}

func printResult(stdout, stderr io.Writer, res agent.Result, f *runFlags) error {
	if f.asJSON {
		out := runOutput{RunID: res.RunID, CommitMessage: res.CommitMessage}
		if f.verbose {
			out.Reasoning = res.Reasoning
			out.Analysis = res.Analysis
		}
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	if f.verbose {
		for i, r := range res.Reasoning {
			fmt.Fprintf(stderr, "%d. %s\n", i+1, r)
		}
		fmt.Fprintln(stderr)
	}
	_, err := fmt.Fprintln(stdout, res.CommitMessage)
	return err
}
