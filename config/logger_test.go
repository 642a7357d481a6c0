package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// detailedError prints stack-like details with %+v, which zap reports as
// errorVerbose.
type detailedError struct{}

func (detailedError) Error() string { return "short message" }

func (e detailedError) Format(s fmt.State, verb rune) {
	if verb == 'v' && s.Flag('+') {
		fmt.Fprint(s, "short message\nfull details")
		return
	}
	fmt.Fprint(s, e.Error())
}

func TestPlainErrors_DropsVerboseDetails(t *testing.T) {
	ec := zap.NewDevelopmentEncoderConfig()
	enc := plainErrors{zapcore.NewConsoleEncoder(ec)}
	fields := []zapcore.Field{zap.Error(detailedError{}), zap.String("file", "a.json")}

	buf, err := enc.Clone().EncodeEntry(zapcore.Entry{Level: zapcore.ErrorLevel, Time: time.Now(), Message: "failed"}, fields)
	if err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if strings.Contains(out, "full details") || strings.Contains(out, "errorVerbose") {
		t.Errorf("console output has verbose error: %s", out)
	}
	if !strings.Contains(out, "short message") || !strings.Contains(out, "a.json") {
		t.Errorf("console output = %s", out)
	}
	if fields[0].Type != zapcore.ErrorType {
		t.Error("caller fields modified")
	}

	full, _ := zapcore.NewConsoleEncoder(ec).EncodeEntry(zapcore.Entry{Message: "failed"}, fields)
	if !strings.Contains(full.String(), "full details") {
		t.Errorf("file encoder lost details: %s", full.String())
	}
}

func TestLoggingPrepare_ReportForcesDebugFileLog(t *testing.T) {
	t.Cleanup(func() { debug.SetCrashOutput(nil, debug.CrashOptions{}) })
	dir := t.TempDir()
	logName := filepath.Join(dir, "app.log")
	if err := os.WriteFile(logName, []byte("previous run\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	rc := ReporterConfig{Destination: filepath.Join(dir, "report.zip")}
	rpt, err := rc.Prepare()
	if err != nil {
		t.Fatal(err)
	}
	conf := LoggingConfig{
		FileLogger:    LoggerConfig{Level: "none", Destination: logName, Mode: "append"},
		ConsoleLogger: LoggerConfig{Level: "none"},
	}
	log, err := conf.Prepare(rpt)
	if err != nil {
		t.Fatal(err)
	}
	log.Debug("document loaded", zap.Error(errors.New("boom")))
	_ = log.Sync()

	data, err := os.ReadFile(logName)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "previous run") {
		t.Error("report must overwrite file log")
	}
	if !strings.Contains(string(data), "document loaded") {
		t.Errorf("debug entry missing from file log: %q", data)
	}
	if err := rpt.Close(); err != nil {
		t.Fatal(err)
	}
	files := readArchive(t, rc.Destination)
	if !strings.Contains(files["final.log"], "document loaded") {
		t.Errorf("report log = %q", files["final.log"])
	}
	if _, ok := files["panic.log"]; !ok {
		t.Error("panic log not reported")
	}
}

func TestLoggingPrepare_NoFileLog(t *testing.T) {
	dir := t.TempDir()
	conf := LoggingConfig{
		FileLogger:    LoggerConfig{Level: "none", Destination: filepath.Join(dir, "app.log")},
		ConsoleLogger: LoggerConfig{Level: "none"},
	}
	log, err := conf.Prepare(nil)
	if err != nil {
		t.Fatal(err)
	}
	log.Info("nobody listens")
	if _, err := os.Stat(filepath.Join(dir, "app.log")); !os.IsNotExist(err) {
		t.Errorf("file log created: %v", err)
	}
}

func TestOpenLog_Modes(t *testing.T) {
	name := filepath.Join(t.TempDir(), "x.log")
	for _, step := range []struct{ mode, text, want string }{
		{"overwrite", "one", "one"},
		{"append", "two", "onetwo"},
		{"", "three", "three"},
	} {
		f, err := openLog(name, step.mode)
		if err != nil {
			t.Fatal(err)
		}
		f.WriteString(step.text)
		f.Close()
		if data, _ := os.ReadFile(name); string(data) != step.want {
			t.Errorf("mode %q: content = %q, want %q", step.mode, data, step.want)
		}
	}
}

func TestColorAllowed(t *testing.T) {
	t.Setenv("NO_COLOR", "")
	if !colorAllowed() {
		t.Error("empty NO_COLOR disables color")
	}
	t.Setenv("NO_COLOR", "1")
	if colorAllowed() {
		t.Error("NO_COLOR ignored")
	}
}
