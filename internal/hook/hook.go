// Package hook implements the pre-execution guard boundary.
//
// A hook invocation reads one JSON message from stdin describing a proposed
// tool call, classifies the shell command through the rules engine, and
// signals the verdict through streams and a process exit code:
//
//	exit 0  no objection (pass-through, silent allow, or allow with suggestions)
//	exit 1  input could not be processed
//	exit 2  deny execution
//
// These three codes are load-bearing for the calling agent and must be
// preserved exactly.
package hook

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/Dicklesworthstone/shellguard/internal/rules"
)

// ShellToolName is the only tool whose invocations are classified.
// Anything else passes through unclassified.
const ShellToolName = "run_shell"

// SuggestionMarker prefixes each advisory line written to stderr.
const SuggestionMarker = "💡 Suggestion: "

// Input is the hook message read from stdin.
type Input struct {
	ToolName  string    `json:"tool_name"`
	ToolInput ToolInput `json:"tool_input"`
}

// ToolInput carries the tool arguments. Only the command string matters to
// the guard; absence decodes to the empty string.
type ToolInput struct {
	Command string `json:"command"`
}

// Outcome is the closed set of process-level results of one invocation.
type Outcome int

const (
	// OutcomeSkip means the invocation is out of scope: wrong tool name or
	// missing/empty command. Exit 0, no output.
	OutcomeSkip Outcome = iota
	// OutcomeAllowedSilently means no rule matched. Exit 0, no output.
	OutcomeAllowedSilently
	// OutcomeAllowedWithSuggestions means the command is allowed with
	// advisory output. Exit 0.
	OutcomeAllowedWithSuggestions
	// OutcomeBlocked means a blocking rule matched. Exit 2.
	OutcomeBlocked
	// OutcomeDecodeError means stdin did not parse. Exit 1.
	OutcomeDecodeError
)

// String returns the string representation of an Outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeSkip:
		return "skip"
	case OutcomeAllowedSilently:
		return "allowed"
	case OutcomeAllowedWithSuggestions:
		return "allowed_with_suggestions"
	case OutcomeBlocked:
		return "blocked"
	case OutcomeDecodeError:
		return "decode_error"
	default:
		return "unknown"
	}
}

// ExitCode maps an Outcome to the process exit code contract.
func (o Outcome) ExitCode() int {
	switch o {
	case OutcomeBlocked:
		return 2
	case OutcomeDecodeError:
		return 1
	default:
		return 0
	}
}

// DecisionRecord is the structured message written to stdout when a command
// is allowed with suggestions. The shape is fixed by the calling agent.
type DecisionRecord struct {
	Decision           string             `json:"decision"`
	HookSpecificOutput HookSpecificOutput `json:"hookSpecificOutput"`
}

// HookSpecificOutput is the nested decision payload of DecisionRecord.
type HookSpecificOutput struct {
	HookEventName            string `json:"hookEventName"`
	PermissionDecision       string `json:"permissionDecision"`
	PermissionDecisionReason string `json:"permissionDecisionReason"`
}

func allowDecisionRecord() DecisionRecord {
	return DecisionRecord{
		Decision: "allow",
		HookSpecificOutput: HookSpecificOutput{
			HookEventName:            "PreToolUse",
			PermissionDecision:       "allow",
			PermissionDecisionReason: "Command allowed with suggestions",
		},
	}
}

// Result describes one completed invocation.
type Result struct {
	Outcome Outcome
	Command string
	Verdict rules.Verdict // meaningful only for classified outcomes
}

// Recorder receives completed results for audit purposes. Implementations
// must be best-effort: a Recorder failure never changes the outcome.
type Recorder interface {
	Record(res Result)
}

// Runner evaluates a single hook invocation against a rules engine.
type Runner struct {
	engine   *rules.Engine
	stdin    io.Reader
	stdout   io.Writer
	stderr   io.Writer
	logger   *log.Logger
	recorder Recorder
}

// Option configures the Runner.
type Option func(*Runner)

// WithStdin sets the input stream.
func WithStdin(r io.Reader) Option {
	return func(run *Runner) { run.stdin = r }
}

// WithStdout sets the standard output stream.
func WithStdout(w io.Writer) Option {
	return func(run *Runner) { run.stdout = w }
}

// WithStderr sets the standard error stream.
func WithStderr(w io.Writer) Option {
	return func(run *Runner) { run.stderr = w }
}

// WithLogger sets the diagnostic logger. The default discards everything:
// stderr belongs to the verdict contract, not to diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(run *Runner) { run.logger = l }
}

// WithRecorder sets an audit recorder for completed results.
func WithRecorder(rec Recorder) Option {
	return func(run *Runner) { run.recorder = rec }
}

// New creates a Runner bound to the process streams unless overridden.
func New(engine *rules.Engine, opts ...Option) *Runner {
	run := &Runner{
		engine: engine,
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
		logger: log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(run)
	}
	return run
}

// Run performs exactly one classification and renders the outcome on the
// configured streams. The caller is responsible for turning the returned
// Result into a process exit via Result.Outcome.ExitCode().
func (run *Runner) Run() Result {
	data, err := io.ReadAll(run.stdin)
	if err != nil {
		fmt.Fprintf(run.stderr, "Error reading input: %v\n", err)
		return Result{Outcome: OutcomeDecodeError}
	}

	var input Input
	if err := json.Unmarshal(data, &input); err != nil {
		fmt.Fprintf(run.stderr, "Error parsing JSON input: %v\n", err)
		return Result{Outcome: OutcomeDecodeError}
	}

	if input.ToolName != ShellToolName {
		run.logger.Debug("tool out of scope", "tool", input.ToolName)
		return Result{Outcome: OutcomeSkip}
	}

	command := input.ToolInput.Command
	if command == "" {
		run.logger.Debug("empty command, skipping")
		return Result{Outcome: OutcomeSkip}
	}

	verdict := run.engine.Classify(command)
	res := Result{Command: command, Verdict: verdict}

	switch verdict.Kind {
	case rules.VerdictBlocked:
		res.Outcome = OutcomeBlocked
		fmt.Fprintln(run.stderr, verdict.Reason)
	case rules.VerdictAllowedWithSuggestions:
		res.Outcome = OutcomeAllowedWithSuggestions
		if err := json.NewEncoder(run.stdout).Encode(allowDecisionRecord()); err != nil {
			run.logger.Warn("writing decision record", "error", err)
		}
		for _, s := range verdict.Suggestions {
			fmt.Fprintf(run.stderr, "%s%s\n", SuggestionMarker, s)
		}
	default:
		res.Outcome = OutcomeAllowedSilently
	}

	run.logger.Debug("classified",
		"command", command,
		"outcome", res.Outcome,
		"suggestions", len(verdict.Suggestions))

	if run.recorder != nil {
		run.recorder.Record(res)
	}
	return res
}
