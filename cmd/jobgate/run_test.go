package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestRunCmd(t *testing.T) {
	config, err := filepath.Abs("testdata/config.yaml")
	require.NoError(t, err)
	workload, err := filepath.Abs("testdata/workload.yaml")
	require.NoError(t, err)

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"run", "--config", config, "--workload", workload})
	require.NoError(t, cmd.Execute())

	documents := bytes.Split(out.Bytes(), []byte("---\n"))
	var report struct {
		Outcomes []outcome `yaml:"outcomes"`
		Stats    struct {
			Submitted int `yaml:"submitted"`
			Stopped   int `yaml:"stopped"`
		} `yaml:"stats"`
	}
	require.NoError(t, yaml.Unmarshal(documents[len(documents)-1], &report))
	states := map[string]string{}
	for _, item := range report.Outcomes {
		states[item.Name] = item.State
	}
	assert.Equal(t, map[string]string{
		"create":  "finished",
		"count":   "finished",
		"broken":  "failed",
		"endless": "stopped",
	}, states)
	assert.Equal(t, 4, report.Stats.Submitted)
	assert.Equal(t, 1, report.Stats.Stopped)
}

func TestRunCmd_MissingWorkload(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"run"})
	assert.Error(t, cmd.Execute())

	cmd = newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"run", "--workload", filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, cmd.Execute())
}

func TestRunCmd_Interrupted(t *testing.T) {
	workload := filepath.Join(t.TempDir(), "endless.yaml")
	require.NoError(t, os.WriteFile(workload, []byte(`
plans:
  - name: endless
    steps:
      - kind: write
        target: orders
      - kind: sleep
        duration: 1h
`), 0o644))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"run", "--workload", workload})
	started := time.Now()
	require.NoError(t, cmd.ExecuteContext(ctx))
	assert.Less(t, time.Since(started), 5*time.Second)

	var report struct {
		Outcomes []outcome `yaml:"outcomes"`
	}
	require.NoError(t, yaml.Unmarshal(out.Bytes()[bytes.LastIndex(out.Bytes(), []byte("---\n"))+4:], &report))
	require.Len(t, report.Outcomes, 1)
	assert.Equal(t, "abandoned", report.Outcomes[0].State)
}
