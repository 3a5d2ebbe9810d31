package dispatch

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/keshon/discord-bot-shared/pkg/cmd"
	"github.com/rs/zerolog"
)

func TestWithCommandLog(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	h := WithCommandLog(logger)(func(context.Context, *cmd.Invocation) error {
		return errors.New("nope")
	})

	inv := cmd.NewInvocation(slash("ping"), cmd.ReplyFresh, nil)
	if err := h(context.Background(), inv); err == nil || err.Error() != "nope" {
		t.Fatalf("err = %v, want the handler error unchanged", err)
	}

	line := buf.String()
	for _, want := range []string{`"level":"warn"`, `"command":"ping"`, `"guild":"g1"`, `"user":"u1"`, `"error":"nope"`} {
		if !strings.Contains(line, want) {
			t.Errorf("log line %s missing %s", line, want)
		}
	}
}
