package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"

	"github.com/kolkov/paramxfer/internal/config"
	"github.com/kolkov/paramxfer/internal/plugin"
	"github.com/kolkov/paramxfer/transfer"
)

// executeCommand runs a fresh command tree with args and returns captured output.
// Logs go to a temporary directory so they do not mix with test output.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	root := newRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(append(args, "--log-dir", t.TempDir()))
	err := root.Execute()
	return buf.String(), err
}

func TestRootCommand_Subcommands(t *testing.T) {
	root := newRootCmd()
	if root.Use != "paramxfer" {
		t.Errorf("Use = %q, want paramxfer", root.Use)
	}

	want := []string{"render", "stress", "monitor", "version"}
	have := map[string]bool{}
	for _, c := range root.Commands() {
		have[c.Name()] = true
	}
	for _, name := range want {
		if !have[name] {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := executeCommand(t, "version")
	if err != nil {
		t.Fatalf("version error: %v", err)
	}
	if !strings.Contains(out, "paramxfer version "+transfer.Version) {
		t.Errorf("version output = %q", out)
	}
	info := transfer.GetInfo()
	if !strings.Contains(out, fmt.Sprintf("bitmap word: %d bits", info.WordBits)) {
		t.Errorf("version output missing word width %d: %q", info.WordBits, out)
	}
}

func TestConfig_InvalidFlagRejected(t *testing.T) {
	_, err := executeCommand(t, "stress", "--parameters=-1")
	var verrs config.ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("error = %v, want config.ValidationErrors", err)
	}
	if verrs[0].Field != "parameters.count" {
		t.Errorf("Field = %q, want parameters.count", verrs[0].Field)
	}
}

func TestConfig_ExplicitFileMustExist(t *testing.T) {
	_, err := executeCommand(t, "version", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Error("missing --config file was accepted")
	}
}

// TestConfig_FileAndEnv verifies the config file is read and env overrides it.
func TestConfig_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "stress:\n  writers: 2\n  per_writer: 4\n  rounds: 50\n"
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PARAMXFER_STRESS_ROUNDS", "60")

	out, err := executeCommand(t, "stress", "--config", path)
	if err != nil {
		t.Fatalf("stress error: %v\n%s", err, out)
	}
	if !strings.Contains(out, "2 x 4 parameters, 60 rounds") {
		t.Errorf("stress did not pick up file and env settings:\n%s", out)
	}
}

func TestStressCommand_Passes(t *testing.T) {
	out, err := executeCommand(t, "stress", "--writers", "4", "--per-writer", "16", "--rounds", "200")
	if err != nil {
		t.Fatalf("stress error: %v\n%s", err, out)
	}
	if !strings.Contains(out, "stress: PASS") {
		t.Errorf("stress output:\n%s", out)
	}
}

func TestRenderCommand_WritesPCM(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "out.raw")

	_, err := executeCommand(t, "render",
		"--blocks", "3",
		"--block-size", "64",
		"--set", "1=0.5",
		"--out", outPath,
	)
	if err != nil {
		t.Fatalf("render error: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	// 3 blocks * 64 frames * 2 channels * 4 bytes
	if len(data) != 3*64*2*4 {
		t.Errorf("output is %d bytes, want %d", len(data), 3*64*2*4)
	}
	if bytes.Count(data, []byte{0}) == len(data) {
		t.Error("output is silent with parameter 1 set")
	}
}

func TestRenderCommand_RejectsBadIndex(t *testing.T) {
	_, err := executeCommand(t, "render",
		"--blocks", "1",
		"--set", "100=1",
		"--out", filepath.Join(t.TempDir(), "out.raw"),
	)
	if !errors.Is(err, plugin.ErrIndexOutOfRange) {
		t.Errorf("error = %v, want ErrIndexOutOfRange", err)
	}
}

// TestRenderCommand_PresetRoundTrip applies a preset and saves the result.
func TestRenderCommand_PresetRoundTrip(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.yaml")
	saved := filepath.Join(dir, "saved.yaml")
	body := "version: v1.2.0\nname: test\nparameters:\n  - {index: 2, value: 0.25}\n  - {index: 9, value: 0.75}\n"
	if err := os.WriteFile(in, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := executeCommand(t, "render",
		"--blocks", "1",
		"--preset", in,
		"--set", "9=0.5",
		"--save-preset", saved,
		"--out", filepath.Join(dir, "out.raw"),
	)
	if err != nil {
		t.Fatalf("render error: %v", err)
	}

	data, err := os.ReadFile(saved)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	for _, want := range []string{"index: 2", "value: 0.25", "index: 9", "value: 0.5"} {
		if !strings.Contains(text, want) {
			t.Errorf("saved preset missing %q:\n%s", want, text)
		}
	}
}

// TestRenderCommand_PresetWithWatch applies a preset with watching enabled.
// The monitor command registers the same --preset and --watch flags; only the
// running command's flags may reach the config.
func TestRenderCommand_PresetWithWatch(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.yaml")
	saved := filepath.Join(dir, "saved.yaml")
	body := "version: v1.0.0\nname: watched\nparameters:\n  - {index: 4, value: 0.5}\n"
	if err := os.WriteFile(in, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := executeCommand(t, "render",
		"--blocks", "2",
		"--preset", in,
		"--watch",
		"--save-preset", saved,
		"--out", filepath.Join(dir, "out.raw"),
	)
	if err != nil {
		t.Fatalf("render error: %v", err)
	}

	if got := viper.GetString("preset.path"); got != in {
		t.Errorf("preset.path = %q, want %q", got, in)
	}
	if !viper.GetBool("preset.watch") {
		t.Error("preset.watch = false, want true")
	}

	data, err := os.ReadFile(saved)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "index: 4") || !strings.Contains(string(data), "value: 0.5") {
		t.Errorf("saved preset does not hold the applied entry:\n%s", data)
	}
}

// TestStressCommand_FlagsOverrideConfig verifies subcommand flags bind at run time.
func TestStressCommand_FlagsOverrideConfig(t *testing.T) {
	out, err := executeCommand(t, "stress", "--writers", "3", "--per-writer", "5", "--rounds", "7")
	if err != nil {
		t.Fatalf("stress error: %v\n%s", err, out)
	}
	if !strings.Contains(out, "3 x 5 parameters, 7 rounds") {
		t.Errorf("stress ignored its flags:\n%s", out)
	}
}

// TestMonitorCommand_HelpListsKeys checks the help names every monitor key.
func TestMonitorCommand_HelpListsKeys(t *testing.T) {
	long := newMonitorCmd().Long
	for _, key := range []string{"s prompts for an index=value", "r sets", "c sets", "q quits"} {
		if !strings.Contains(long, key) {
			t.Errorf("monitor help missing %q:\n%s", key, long)
		}
	}
}

// TestPCMWriter_Interleaves checks channel order and little-endian encoding.
func TestPCMWriter_Interleaves(t *testing.T) {
	var buf bytes.Buffer
	w := newPCMWriter(&buf, 2, 2)
	w.block[0][0], w.block[0][1] = 1, 2
	w.block[1][0], w.block[1][1] = -1, -2

	if err := w.WriteBlock(); err != nil {
		t.Fatal(err)
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}

	want := []byte{
		0x00, 0x00, 0x80, 0x3f, // L0 = 1
		0x00, 0x00, 0x80, 0xbf, // R0 = -1
		0x00, 0x00, 0x00, 0x40, // L1 = 2
		0x00, 0x00, 0x00, 0xc0, // R1 = -2
	}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("encoded = % x\nwant      % x", buf.Bytes(), want)
	}
}
