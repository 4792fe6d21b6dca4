package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contactform/internal/adapters/storage"
	recipientStore "contactform/internal/adapters/storage/recipient"
)

func newTestOpener(t *testing.T) opener {
	t.Helper()
	ctx := context.Background()
	db, err := storage.OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, storage.InitDB(ctx, db))
	store := recipientStore.NewSQLiteStore(db)
	return func(context.Context) (recipientStore.Store, func(), error) {
		return store, func() {}, nil
	}
}

func run(t *testing.T, open opener, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(open)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRecipientsCLI_SetListGetDelete(t *testing.T) {
	open := newTestOpener(t)

	out, err := run(t, open, "set", "volunteering", "a@x.com,b@x.com", "c@x.com")
	require.NoError(t, err)
	assert.Contains(t, out, "volunteering\ta@x.com, b@x.com, c@x.com")

	_, err = run(t, open, "set", "general", "info@x.com")
	require.NoError(t, err)

	out, err = run(t, open, "list")
	require.NoError(t, err)
	assert.Equal(t, "general\tinfo@x.com\nvolunteering\ta@x.com, b@x.com, c@x.com\n", out)

	out, err = run(t, open, "get", "volunteering")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com\nb@x.com\nc@x.com\n", out)

	out, err = run(t, open, "delete", "general")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted general")

	_, err = run(t, open, "delete", "general")
	assert.ErrorContains(t, err, "not in the directory")
}

func TestRecipientsCLI_SetRejectsBlankList(t *testing.T) {
	_, err := run(t, newTestOpener(t), "set", "volunteering", " , ")
	assert.Error(t, err)
}

func TestRecipientsCLI_ArgCounts(t *testing.T) {
	open := newTestOpener(t)
	_, err := run(t, open, "set", "only-topic")
	assert.Error(t, err)
	_, err = run(t, open, "delete")
	assert.Error(t, err)
}

func TestRecipientsCLI_Init(t *testing.T) {
	out, err := run(t, newTestOpener(t), "init")
	require.NoError(t, err)
	assert.Contains(t, out, "directory ready")
}
