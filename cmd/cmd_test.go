package cmd

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dhcgn/attachment-archiver/layout"
)

type fixture struct {
	src string
	dst string
}

func newFixture(t *testing.T, present ...int32) fixture {
	t.Helper()
	f := fixture{src: t.TempDir(), dst: t.TempDir()}
	for _, id := range present {
		path := layout.Resolve(f.src, layout.FromID(id))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))
	}
	return f
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	prev := stdinIsTerminal
	stdinIsTerminal = func() bool { return false }
	t.Cleanup(func() { stdinIsTerminal = prev })

	root, err := NewRootCommand()
	require.NoError(t, err)

	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)

	err = root.Execute()
	return out.String(), err
}

func zipFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestRoot_ArchivesPositionalIDs(t *testing.T) {
	f := newFixture(t, 1, 2)

	out, err := execute(t, "", "--attachments", f.src, "--archive-dir", f.dst, "--log-level", "error", "1,", "2")
	require.NoError(t, err)
	require.Contains(t, out, "archive created: ")
	require.Contains(t, out, "(files: 2)")

	names := zipFiles(t, f.dst)
	require.Len(t, names, 1)
	require.Regexp(t, regexp.MustCompile(`^\d+\.zip$`), names[0])
}

func TestRoot_ReadsStdinAndIDsFile(t *testing.T) {
	f := newFixture(t, 1, 2, 3)
	idsFile := filepath.Join(t.TempDir(), "ids.txt")
	require.NoError(t, os.WriteFile(idsFile, []byte("2\r\n3\r\n"), 0o600))

	out, err := execute(t, "", "--attachments", f.src, "--archive-dir", f.dst, "--log-level", "error", "--ids", "1", "--ids-file", idsFile)
	require.NoError(t, err)
	require.Contains(t, out, "(files: 3)")

	f = newFixture(t, 7)
	out, err = execute(t, "7\n", "--attachments", f.src, "--archive-dir", f.dst, "--log-level", "error")
	require.NoError(t, err)
	require.Contains(t, out, "(files: 1)")
}

func TestRoot_MissingFile(t *testing.T) {
	f := newFixture(t, 1, 2)

	_, err := execute(t, "", "--attachments", f.src, "--archive-dir", f.dst, "--log-level", "error", "--ids", "1 2 3")
	require.Error(t, err)
	require.Equal(t, "file not found: "+layout.Resolve(f.src, "00/00/00/00000003.stream"), err.Error())
	require.Empty(t, zipFiles(t, f.dst))
}

func TestRoot_NothingToArchive(t *testing.T) {
	f := newFixture(t)

	_, err := execute(t, " , \n", "--attachments", f.src, "--archive-dir", f.dst, "--log-level", "error")
	require.EqualError(t, err, "no files to archive")
	require.Empty(t, zipFiles(t, f.dst))
}

func TestRoot_InvalidIdentifier(t *testing.T) {
	f := newFixture(t, 1)

	_, err := execute(t, "", "--attachments", f.src, "--archive-dir", f.dst, "--log-level", "error", "--ids", "1,5000000000")
	require.Error(t, err)
	require.True(t, strings.HasPrefix(err.Error(), "error occurred: "), err.Error())
	require.Empty(t, zipFiles(t, f.dst))
}

func TestRoot_InvalidConfig(t *testing.T) {
	_, err := execute(t, "", "--log-level", "loud", "1")
	require.Error(t, err)
}

func TestRoot_WritesLogFile(t *testing.T) {
	f := newFixture(t, 1)
	logDir := filepath.Join(t.TempDir(), "logs")

	_, err := execute(t, "", "--attachments", f.src, "--archive-dir", f.dst, "--log-level", "debug", "--log-format", "json", "--log-dir", logDir, "1")
	require.NoError(t, err)

	entries, err := os.ReadDir(logDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	data, err := os.ReadFile(filepath.Join(logDir, entries[0].Name()))
	require.NoError(t, err)
	require.Contains(t, string(data), `"msg":"archive written"`)
	require.Contains(t, string(data), `"run":`)
}

func TestPathCommand(t *testing.T) {
	out, err := execute(t, "", "path", "1, 255", "305419896")
	require.NoError(t, err)
	require.Equal(t, "1\t00/00/00/00000001.stream\n255\t00/00/00/000000FF.stream\n305419896\t12/34/56/12345678.stream\n", out)

	_, err = execute(t, "", "path", ",,")
	require.Error(t, err)
}

func TestResolveCommand(t *testing.T) {
	f := newFixture(t, 1)
	csvPath := filepath.Join(t.TempDir(), "report", "resolve.csv")

	_, err := execute(t, "", "resolve", "--attachments", f.src, "--csv", csvPath, "1 2 99999999999")
	require.EqualError(t, err, "2 of 3 attachments missing or invalid")

	file, err := os.Open(csvPath)
	require.NoError(t, err)
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Equal(t, []string{"ID", "Path", "Status", "Size"}, records[0])
	require.Equal(t, []string{"1", layout.Resolve(f.src, "00/00/00/00000001.stream"), statusFound, "4"}, records[1])
	require.Equal(t, []string{"2", layout.Resolve(f.src, "00/00/00/00000002.stream"), statusMissing, "0"}, records[2])
	require.Equal(t, []string{"99999999999", "", statusInvalid, "0"}, records[3])
}

func TestResolveCommand_AllFound(t *testing.T) {
	f := newFixture(t, 1, 2)
	_, err := execute(t, "", "resolve", "-a", f.src, "1", "2")
	require.NoError(t, err)
}

func TestPromptIDs(t *testing.T) {
	var prompt bytes.Buffer
	reader := bufio.NewReader(strings.NewReader("1, x2\nabc3\n\n4\n"))

	text, err := promptIDs(reader, &prompt)
	require.NoError(t, err)
	require.Equal(t, "1, 2\n3", text)
	require.Contains(t, prompt.String(), "Enter attachment ids")
}

func TestPromptIDs_EOFWithoutNewline(t *testing.T) {
	text, err := promptIDs(bufio.NewReader(strings.NewReader("5 6")), &bytes.Buffer{})
	require.NoError(t, err)
	require.Equal(t, "5 6", text)
}
