package state

import (
	"context"
	"log"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type otherKey struct{}

func TestEnvFromContext_SharesEnv(t *testing.T) {
	ctx := ContextWithEnv(context.Background())
	env := EnvFromContext(ctx)
	if env.start.IsZero() {
		t.Error("start time not set")
	}
	if env.Overwrite || env.DefaultTheme != nil {
		t.Errorf("fresh env has Overwrite=%v DefaultTheme=%q", env.Overwrite, env.DefaultTheme)
	}

	// export command sets these once, project processing reads them later
	env.Overwrite = true
	env.DefaultTheme = []byte("body{color:red}")

	again := EnvFromContext(context.WithValue(ctx, otherKey{}, "nested"))
	if !again.Overwrite || string(again.DefaultTheme) != "body{color:red}" {
		t.Errorf("derived context sees Overwrite=%v DefaultTheme=%q", again.Overwrite, again.DefaultTheme)
	}

	other := EnvFromContext(ContextWithEnv(context.Background()))
	if other.Overwrite || other.DefaultTheme != nil {
		t.Error("new env inherits settings of another one")
	}
}

func TestEnvFromContext_PanicsWithoutEnv(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for context without env")
		}
	}()
	EnvFromContext(context.Background())
}

func TestLocalEnv_Named(t *testing.T) {
	var env LocalEnv
	if env.Named("preview") == nil {
		t.Fatal("Named() without logger returned nil")
	}
	env.Named("preview").Info("dropped")

	core, logs := observer.New(zapcore.DebugLevel)
	env.Log = zap.New(core).Named("blockdoc")
	env.Named("preview").Info("started")

	entries := logs.All()
	if len(entries) != 1 || entries[0].LoggerName != "blockdoc.preview" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestLocalEnv_StdLogGoesToLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	env := &LocalEnv{Log: zap.New(core)}

	env.RedirectStdLog()
	log.Print("from library")
	env.RestoreStdLog()
	log.Print("after restore")

	if logs.FilterMessage("from library").Len() != 1 {
		t.Errorf("redirected entries = %+v", logs.All())
	}
	if logs.FilterMessage("after restore").Len() != 0 {
		t.Error("std log still redirected after restore")
	}

	// no logger, nothing to redirect
	var empty LocalEnv
	empty.RedirectStdLog()
	empty.RestoreStdLog()
}
