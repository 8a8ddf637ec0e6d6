package main

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"catalog-migrator/internal/migrator/domain/model"
	apperrors "catalog-migrator/internal/shared/errors"
	"catalog-migrator/internal/shared/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateCmd_FlagDefaults(t *testing.T) {
	root := newRootCmd()
	cmd, _, err := root.Find([]string{"migrate"})
	require.NoError(t, err)

	skip, err := cmd.Flags().GetBool("skip-existing")
	require.NoError(t, err)
	assert.True(t, skip)

	v, err := root.PersistentFlags().GetInt("verbosity")
	require.NoError(t, err)
	assert.Equal(t, logger.DefaultVerbosity, v)
}

func TestMigrateFlags_RunOptions(t *testing.T) {
	var verbosity int
	f := &migrateFlags{}
	cmd := newMigrateCmd(&verbosity, f)
	require.NoError(t, cmd.Flags().Parse([]string{"--products", "--collections", "--delete-products", "--skip-existing=false", "--dry-run"}))

	assert.True(t, f.moduleOptions().DryRun)
	opts := f.runOptions()
	assert.False(t, opts.SkipExisting)
	assert.True(t, opts.Enabled(model.ResourceProducts))
	assert.True(t, opts.Enabled(model.ResourceSmartCollections))
	assert.True(t, opts.Enabled(model.ResourceCustomCollections))
	assert.False(t, opts.Enabled(model.ResourcePages))
	assert.Equal(t, model.PolicyDeleteThenRecreate, opts.Policy(model.ResourceProducts))
	assert.Equal(t, model.PolicyAlwaysRecreate, opts.Policy(model.ResourceSmartCollections))
}

func TestMigrateCmd_RequiresSelection(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"migrate"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to migrate")
}

func TestMigrateCmd_MissingConfigFails(t *testing.T) {
	t.Setenv("SOURCE_SHOPIFY_STORE", "")
	t.Setenv("SOURCE_SHOPIFY_API_PASSWORD", "")
	t.Setenv("DESTINATION_SHOPIFY_STORE", "")
	t.Setenv("DESTINATION_SHOPIFY_API_PASSWORD", "")

	root := newRootCmd()
	root.SetArgs([]string{"migrate", "--all", "-v", "0"})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required environment variables")
	assert.Contains(t, errorHint(err), "store variables")
}

func TestErrorHint(t *testing.T) {
	precondition := apperrors.NewPreconditionError("Destination store does not have proper access scope: write_content")
	assert.Contains(t, errorHint(precondition), "access scope")
	assert.Contains(t, errorHint(fmt.Errorf("run: %w", apperrors.NewTransportError("GET /admin/api"))), "could not be reached")
	assert.Contains(t, errorHint(apperrors.NewValidationError("bad filter")), "flags")
	assert.Empty(t, errorHint(apperrors.NewRemoteRejectedError("handle is invalid", 422)))
	assert.Empty(t, errorHint(nil))
}

type failingCloser struct{ closed bool }

func (c *failingCloser) Close() error {
	c.closed = true
	return errors.New("snapshot lock: permission denied")
}

func TestCloseLogged(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewLoggerWithConfig(logger.Config{Verbosity: 1, Output: &buf})
	c := &failingCloser{}

	closeLogged(c, log)
	assert.True(t, c.closed)
	assert.Contains(t, buf.String(), "failed to close container: snapshot lock: permission denied")
}
