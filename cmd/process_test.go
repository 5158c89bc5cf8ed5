package cmd

import (
	"errors"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tagassist/internal/prompt"
)

func operationCommand(t *testing.T, kind prompt.Kind, flags map[string]string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: kind.String()}
	addOperationFlags(cmd, kind)
	for name, value := range flags {
		require.NoError(t, cmd.Flags().Set(name, value))
	}
	return cmd
}

func TestResolveOptions_RejectsNegativeTagsCount(t *testing.T) {
	cmd := operationCommand(t, prompt.KindAltText, map[string]string{
		"input":      "in.pdf",
		"output":     "out.pdf",
		"openai-key": "sk-test",
		"tags-count": "-2",
	})

	_, err := resolveOptions(cmd, prompt.KindAltText)

	require.Error(t, err)
	var aerr *argError
	require.True(t, errors.As(err, &aerr))
	assert.Equal(t, CodeArgGeneral, aerr.ExitCode())
}

func TestResolveOptions_RequiresOpenAIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	cmd := operationCommand(t, prompt.KindAltText, map[string]string{
		"input":  "in.pdf",
		"output": "out.pdf",
	})

	_, err := resolveOptions(cmd, prompt.KindAltText)

	require.Error(t, err)
	var aerr *argError
	require.True(t, errors.As(err, &aerr))
	assert.Equal(t, CodeArgOpenAIKey, aerr.ExitCode())
}

func TestRunOperation_RejectsBadFilePair(t *testing.T) {
	cmd := operationCommand(t, prompt.KindAltText, map[string]string{
		"input":      "in.docx",
		"output":     "out.pdf",
		"openai-key": "sk-test",
	})

	err := runOperation(cmd, prompt.KindAltText)

	require.Error(t, err)
	assert.Equal(t, CodeArgBadFilePair, exitCode(err))
}
