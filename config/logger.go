package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"slices"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"

	"blockdoc/misc"
)

type LoggerConfig struct {
	Level       string `yaml:"level" validate:"required,oneof=none debug normal"`
	Destination string `yaml:"destination,omitempty" sanitize:"path_clean,assure_dir_exists_for_file" validate:"omitempty,filepath"`
	Mode        string `yaml:"mode,omitempty" validate:"omitempty,oneof=append overwrite"`
}

type LoggingConfig struct {
	FileLogger    LoggerConfig `yaml:"file"`
	ConsoleLogger LoggerConfig `yaml:"console"`
}

// Prepare builds program logger. Console output is split by severity:
// errors go to stderr, everything else to stdout. Debug report forces file
// log at debug level, so report always has complete log.
func (conf *LoggingConfig) Prepare(rpt *Report) (*zap.Logger, error) {
	cores := conf.consoleCores()

	fileCore, redirected, err := conf.fileCore(rpt)
	if err != nil {
		return nil, err
	}
	cores = append(cores, fileCore)

	log := zap.New(zapcore.NewTee(cores...), zap.AddCaller()).Named(misc.GetAppName())
	if redirected != "" {
		log.Warn("Log file was redirected to new location", zap.String("location", redirected))
	}
	return log, nil
}

func levelOf(name string) (zapcore.Level, bool) {
	switch name {
	case "debug":
		return zapcore.DebugLevel, true
	case "normal":
		return zapcore.InfoLevel, true
	}
	return zapcore.InvalidLevel, false
}

func (conf *LoggingConfig) consoleCores() []zapcore.Core {
	lowest, ok := levelOf(conf.ConsoleLogger.Level)
	if !ok {
		return nil
	}
	return []zapcore.Core{
		zapcore.NewCore(consoleEncoder(os.Stdout, false), zapcore.Lock(os.Stdout),
			zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
				return lowest <= lvl && lvl < zapcore.ErrorLevel
			})),
		zapcore.NewCore(consoleEncoder(os.Stderr, true), zapcore.Lock(os.Stderr),
			zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
				return lvl >= zapcore.ErrorLevel
			})),
	}
}

// fileCore returns nop core when file log is off. When destination cannot be
// opened log goes to temporary file which name is returned as redirected.
func (conf *LoggingConfig) fileCore(rpt *Report) (core zapcore.Core, redirected string, err error) {
	level, mode := conf.FileLogger.Level, conf.FileLogger.Mode
	if rpt != nil {
		level, mode = "debug", "overwrite"
	}
	lowest, ok := levelOf(level)
	if !ok {
		return zapcore.NewNopCore(), "", nil
	}

	capturePanics(filepath.Dir(conf.FileLogger.Destination), mode, rpt)

	f, err := openLog(conf.FileLogger.Destination, mode)
	if err != nil {
		var terr error
		if f, terr = os.CreateTemp("", misc.GetAppName()+".*.log"); terr != nil {
			return nil, "", fmt.Errorf("unable to access file log destination (%s): %w", conf.FileLogger.Destination, err)
		}
		redirected = f.Name()
	}
	rpt.Store("final.log", f.Name())

	enc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	return zapcore.NewCore(enc, zapcore.Lock(f), zap.NewAtomicLevelAt(lowest)), redirected, nil
}

// capturePanics sends runtime crash output to panic log in dir or, failing
// that, to temporary file. Errors are ignored, program runs without it.
func capturePanics(dir, mode string, rpt *Report) {
	f, err := openLog(filepath.Join(dir, misc.GetAppName()+"-panic.log"), mode)
	if err != nil {
		if f, err = os.CreateTemp("", misc.GetAppName()+"-panic.*.log"); err != nil {
			return
		}
	}
	defer f.Close()
	if debug.SetCrashOutput(f, debug.CrashOptions{}) == nil {
		rpt.Store("panic.log", f.Name())
	}
}

func openLog(name, mode string) (*os.File, error) {
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if mode == "append" {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	return os.OpenFile(name, flags, 0o644)
}

// colorAllowed honors NO_COLOR convention (https://no-color.org).
func colorAllowed() bool {
	return os.Getenv("NO_COLOR") == ""
}

func consoleEncoder(stream *os.File, plain bool) zapcore.Encoder {
	ec := zap.NewDevelopmentEncoderConfig()
	ec.EncodeCaller = nil
	ec.EncodeLevel = zapcore.CapitalLevelEncoder
	if colorAllowed() && EnableColorOutput(stream) {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		ec.TimeKey = zapcore.OmitKey
	}
	enc := zapcore.NewConsoleEncoder(ec)
	if plain {
		return plainErrors{enc}
	}
	return enc
}

// plainErrors prints error messages only, verbose details stay in file log.
type plainErrors struct {
	zapcore.Encoder
}

func (p plainErrors) Clone() zapcore.Encoder {
	return plainErrors{p.Encoder.Clone()}
}

func (p plainErrors) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	var out []zapcore.Field
	for i, f := range fields {
		err, ok := f.Interface.(error)
		if f.Type != zapcore.ErrorType || !ok {
			continue
		}
		if out == nil {
			out = slices.Clone(fields)
		}
		out[i] = zap.String(f.Key, err.Error())
	}
	if out == nil {
		out = fields
	}
	return p.Encoder.EncodeEntry(ent, out)
}
