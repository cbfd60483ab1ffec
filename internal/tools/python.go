package tools

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	lctools "github.com/tmc/langchaingo/tools"

	"business-consultant/internal/helper"
)

const (
	pythonDescription = "A Python shell. Use this to execute python commands against the pandas dataframe `df`. " +
		"Input should be valid python code. To see the output of a value, print it out with `print(...)`. " +
		"Variables do not persist between calls; only `df` is reloaded each time, so repeat any setup you need. " +
		"Save any chart to the file name given in the instructions."
	scriptName      = "_analysis.py"
	maxOutputLength = 10000
)

var codeFenceRe = regexp.MustCompile("(?s)^\\s*```(?:python|py)?\\s*\n?(.*?)\\s*```\\s*$")

// inheritedEnv lists the only parent variables passed to the sandbox.
var inheritedEnv = []string{"PATH", "HOME", "LANG", "TMPDIR", "SYSTEMROOT"}

// PythonSandbox runs model written code in a python subprocess whose working
// directory is the dataset directory, with the dataset preloaded as df.
// Every call starts a fresh interpreter.
type PythonSandbox struct {
	python   string
	dataPath string
	workDir  string
	timeout  time.Duration
}

var _ lctools.Tool = (*PythonSandbox)(nil)

func NewPythonSandbox(python, dataPath, workDir string, timeout time.Duration) *PythonSandbox {
	return &PythonSandbox{python: python, dataPath: dataPath, workDir: workDir, timeout: timeout}
}

func (p *PythonSandbox) Name() string        { return string(PythonREPL) }
func (p *PythonSandbox) Description() string { return pythonDescription }

// Call executes code and returns its combined output. A non-zero exit is an
// error carrying the traceback.
func (p *PythonSandbox) Call(ctx context.Context, input string) (string, error) {
	code := StripCodeFence(input)
	if strings.TrimSpace(code) == "" {
		return "", fmt.Errorf("no code to execute")
	}

	script := filepath.Join(p.workDir, scriptName)
	if err := os.WriteFile(script, []byte(p.preamble()+code+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("failed to write script: %w", err)
	}
	defer os.Remove(script)

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, p.python, scriptName)
	cmd.Dir = p.workDir
	cmd.Env = sandboxEnv()
	cmd.Stdout = &out
	cmd.Stderr = &out

	start := time.Now()
	err := cmd.Run()
	log.Debug().Dur("elapsed", time.Since(start)).Err(err).Msg("Python sandbox finished")

	output := helper.Truncate(strings.TrimSpace(out.String()), maxOutputLength)
	if ctx.Err() == context.DeadlineExceeded {
		return "", fmt.Errorf("execution timed out after %s", p.timeout)
	}
	if err != nil {
		return "", fmt.Errorf("%v\n%s", err, output)
	}
	if output == "" {
		output = "Code executed successfully with no output."
	}
	return output, nil
}

func sandboxEnv() []string {
	env := []string{"MPLBACKEND=Agg", "PYTHONDONTWRITEBYTECODE=1"}
	for _, key := range inheritedEnv {
		if v, ok := os.LookupEnv(key); ok {
			env = append(env, key+"="+v)
		}
	}
	return env
}

func (p *PythonSandbox) preamble() string {
	return "import pandas as pd\n" +
		"df = pd.read_csv(" + strconv.Quote(p.dataPath) + ")\n"
}

// StripCodeFence removes a surrounding markdown code fence from input.
func StripCodeFence(input string) string {
	if m := codeFenceRe.FindStringSubmatch(input); m != nil {
		return m[1]
	}
	return strings.TrimSpace(input)
}
