package main

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ofeng1/datathon/internal/clinical"
	"github.com/ofeng1/datathon/internal/engine"
	"github.com/ofeng1/datathon/internal/intent"
	"github.com/ofeng1/datathon/internal/session"
)

// ageResponder records AGE from "age N" and greets otherwise.
type ageResponder struct{}

func (ageResponder) Respond(_ context.Context, s *clinical.State, msg string) engine.Turn {
	if rest, ok := strings.CutPrefix(msg, "age "); ok {
		s.Set(clinical.Age, float64(len(rest)*10))
		return engine.Turn{Intent: intent.Update, Outcome: engine.OutcomeAssessed, Reply: "noted " + rest}
	}
	return engine.Turn{Intent: intent.Greeting, Outcome: engine.OutcomeGreeting, Reply: "Hi there"}
}

func TestRunChat(t *testing.T) {
	mgr := session.NewManager(ageResponder{}, nil, nil)
	var out strings.Builder

	err := runChat(context.Background(), mgr, strings.NewReader("\nage 7\nQuit\nage 9\n"), &out)
	require.NoError(t, err)

	got := out.String()
	assert.True(t, strings.HasPrefix(got, "Hi there\n\n> "), got)
	assert.Contains(t, got, "\nnoted 7\n\n")
	assert.True(t, strings.HasSuffix(got, "Goodbye!\n"), got)
	assert.NotContains(t, got, "noted 9")
	assert.Equal(t, 1, mgr.Len())
}

func TestRunChatEOF(t *testing.T) {
	mgr := session.NewManager(ageResponder{}, nil, nil)
	var out strings.Builder
	require.NoError(t, runChat(context.Background(), mgr, strings.NewReader("hello"), &out))
	assert.True(t, strings.HasSuffix(out.String(), "\nGoodbye!\n"))
}

func TestExportFixture(t *testing.T) {
	store, err := session.NewStore(filepath.Join(t.TempDir(), "edrisk.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	mgr := session.NewManager(ageResponder{}, store, nil)
	ctx := context.Background()
	_, err = mgr.Turn(ctx, "p1", "hello", nil)
	require.NoError(t, err)
	_, err = mgr.Turn(ctx, "p1", "age 77", map[string]any{"COPD": true})
	require.NoError(t, err)

	f, err := exportFixture(store, "p1", 100)
	require.NoError(t, err)
	require.Len(t, f.Turns, 2)
	require.Len(t, f.Expected, 2)

	assert.Equal(t, "hello", f.Turns[0].Message)
	assert.Equal(t, "greeting", f.Expected[0].Outcome)
	assert.Empty(t, f.Expected[0].Fields)

	assert.Equal(t, "age 77", f.Turns[1].Message)
	assert.Equal(t, map[string]float64{"COPD": 1}, f.Turns[1].MergeState)
	assert.Equal(t, map[string]float64{"AGE": 20, "COPD": 1}, f.Expected[1].Fields)
	assert.Equal(t, "update", f.Expected[1].Intent)

	_, err = exportFixture(store, "nobody", 100)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "a b", truncate("a\nb", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "-", shortID(""))
	assert.Equal(t, "12345678", shortID("1234567890"))
}
