package memory

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersonalReadContextEmpty(t *testing.T) {
	p := NewPersonal()
	assert.Equal(t, "", p.ReadContext(t.TempDir()))
}

func TestPersonalAppendAndReadContext(t *testing.T) {
	ws := t.TempDir()
	fixedNow := time.Date(2026, 7, 31, 10, 0, 0, 0, time.UTC)
	p := NewPersonal()
	p.nowFunc = func() time.Time { return fixedNow }

	require.NoError(t, os.WriteFile(filepath.Join(ws, "MEMORY.md"), []byte("Long-term note."), 0644))
	require.NoError(t, p.AppendDailyLog(ws, "did some work"))

	ctx := p.ReadContext(ws)
	assert.Contains(t, ctx, "Long-term note.")
	assert.Contains(t, ctx, "did some work")
	assert.Contains(t, ctx, "2026-07-31")
}

func TestPersonalTruncation(t *testing.T) {
	ws := t.TempDir()
	long := strings.Repeat("x", PersonalProfileMaxChars+500)
	require.NoError(t, os.WriteFile(filepath.Join(ws, "MEMORY.md"), []byte(long), 0644))

	p := NewPersonal()
	ctx := p.ReadContext(ws)
	assert.Contains(t, ctx, truncationSuffix)
	assert.True(t, len(ctx) < len(long))
}

func TestPersonalInitWorkspace(t *testing.T) {
	ws := t.TempDir()
	p := NewPersonal()
	require.NoError(t, p.InitWorkspace(ws, "Alice"))

	memoryMD := filepath.Join(ws, "MEMORY.md")
	_, err := os.Stat(memoryMD)
	require.NoError(t, err)

	// Second call must not clobber existing content.
	require.NoError(t, os.WriteFile(memoryMD, []byte("custom"), 0644))
	require.NoError(t, p.InitWorkspace(ws, "Alice"))
	raw, err := os.ReadFile(memoryMD)
	require.NoError(t, err)
	assert.Equal(t, "custom", string(raw))
}
