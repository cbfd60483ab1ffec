package tools

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"```python\nprint(df.shape)\n```", "print(df.shape)"},
		{"```\nprint(1)\n```\n", "print(1)"},
		{"  print(2)  ", "print(2)"},
		{"```py\nx = 1\nprint(x)\n```", "x = 1\nprint(x)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StripCodeFence(tt.in), tt.in)
	}
}

func TestPythonSandboxEmptyInput(t *testing.T) {
	_, err := NewPythonSandbox("python3", "data.csv", t.TempDir(), time.Second).Call(context.Background(), "```python\n```")
	assert.ErrorContains(t, err, "no code")
}

func requirePandas(t *testing.T) string {
	t.Helper()
	python, err := exec.LookPath("python3")
	if err != nil {
		t.Skip("python3 not installed")
	}
	if err := exec.Command(python, "-c", "import pandas").Run(); err != nil {
		t.Skip("pandas not installed")
	}
	return python
}

func TestPythonSandboxRunsAgainstDataset(t *testing.T) {
	python := requirePandas(t)
	dir := t.TempDir()
	data := filepath.Join(dir, "sales.csv")
	require.NoError(t, os.WriteFile(data, []byte("Category,Sales\nA,1\nB,2\n"), 0o644))

	sb := NewPythonSandbox(python, data, dir, 30*time.Second)
	out, err := sb.Call(context.Background(), "```python\nprint(df['Sales'].sum())\nopen('plot.png', 'w').write('x')\n```")
	require.NoError(t, err)
	assert.Equal(t, "3", out)
	assert.FileExists(t, filepath.Join(dir, "plot.png"))
	assert.NoFileExists(t, filepath.Join(dir, scriptName))

	_, err = sb.Call(context.Background(), "raise ValueError('bad column')")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "bad column"), err.Error())
}

func TestSandboxEnvDropsSecrets(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-secret")
	t.Setenv("TAVILY_API_KEY", "tvly-secret")
	t.Setenv("HOME", "/home/analyst")

	env := sandboxEnv()
	for _, kv := range env {
		assert.NotContains(t, kv, "secret")
	}
	assert.Contains(t, env, "HOME=/home/analyst")
	assert.Contains(t, env, "MPLBACKEND=Agg")
}

func TestPythonSandboxCannotReadKeys(t *testing.T) {
	python := requirePandas(t)
	t.Setenv("OPENAI_API_KEY", "sk-secret")
	dir := t.TempDir()
	data := filepath.Join(dir, "sales.csv")
	require.NoError(t, os.WriteFile(data, []byte("Category,Sales\nA,1\n"), 0o644))

	out, err := NewPythonSandbox(python, data, dir, 30*time.Second).Call(context.Background(),
		"import os\nprint(os.environ.get('OPENAI_API_KEY'))")
	require.NoError(t, err)
	assert.Equal(t, "None", out)
}

func TestPythonDescriptionWarnsStateIsLost(t *testing.T) {
	desc := NewPythonSandbox("python3", "data.csv", t.TempDir(), time.Second).Description()
	assert.Contains(t, desc, "do not persist")
	assert.Contains(t, desc, "`df`")
}
