package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalview/traceview/internal/projectconfig"
)

func TestBuildConfig_ValidInput(t *testing.T) {
	cfg, err := buildConfig("acme/evalset", "validation", "8080", "gpt-4o",
		"https://acct.blob.core.windows.net", "tasks")
	require.NoError(t, err)

	assert.Equal(t, "acme/evalset", cfg.Dataset)
	assert.Equal(t, "validation", cfg.Hub.Split)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "gpt-4o", cfg.Judge.Model)
	assert.Equal(t, "https://acct.blob.core.windows.net", cfg.Blob.AccountURL)
	assert.Equal(t, "tasks", cfg.Blob.Container)
}

func TestBuildConfig_DefaultsPreserved(t *testing.T) {
	cfg, err := buildConfig("acme/evalset", "train", "3000", "", "", "")
	require.NoError(t, err)

	assert.Equal(t, projectconfig.DefaultJudgeModel, cfg.Judge.Model)
	assert.Equal(t, projectconfig.DefaultHubBaseURL, cfg.Hub.BaseURL)
	assert.Equal(t, projectconfig.DefaultPageSize, cfg.Fetch.PageSize)
}

func TestBuildConfig_TrimsWhitespace(t *testing.T) {
	cfg, err := buildConfig("  acme/evalset  ", "train", " 3000 ", "", "", "")
	require.NoError(t, err)
	assert.Equal(t, "acme/evalset", cfg.Dataset)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestBuildConfig_EmptyDataset(t *testing.T) {
	_, err := buildConfig("   ", "train", "3000", "", "", "")
	assert.EqualError(t, err, "dataset is required")
}

func TestBuildConfig_BadPort(t *testing.T) {
	for _, port := range []string{"", "abc", "0", "70000", "-1"} {
		_, err := buildConfig("acme/evalset", "train", port, "", "", "")
		assert.Error(t, err, "port %q should be rejected", port)
	}
}

func TestBuildConfig_BlobAccountWithoutContainer(t *testing.T) {
	_, err := buildConfig("acme/evalset", "train", "3000", "",
		"https://acct.blob.core.windows.net", "")
	assert.EqualError(t, err, "container is required when an account URL is set")
}
