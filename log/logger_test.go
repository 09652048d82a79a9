package log

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func capture(t *testing.T, min Level) *bytes.Buffer {
	buf := &bytes.Buffer{}
	SetOutput(buf)
	SetMinLevel(min)
	t.Cleanup(func() {
		SetMinLevel(LProgress)
		SetOutput(os.Stderr)
	})
	return buf
}

func TestLevelFilter(t *testing.T) {
	buf := capture(t, LInfo)

	Printf("[debug] hidden %d", 1)
	Printf("[step] hidden too")
	Printf("[info] shown %d", 2)
	Printf("[error] shown %d", 3)
	Println("no level is always shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[info] shown 2")
	assert.Contains(t, out, "[error] shown 3")
	assert.Contains(t, out, "no level is always shown")
	assert.Equal(t, 3, strings.Count(out, "\n"))
}

func TestStep(t *testing.T) {
	buf := capture(t, LStep)

	done := Step("Importing")
	done()

	out := buf.String()
	assert.Contains(t, out, "[step] Starting: Importing")
	assert.Contains(t, out, "[step] Finished: Importing in ")
}

func TestLevel(t *testing.T) {
	assert.Equal(t, LWarn, level([]byte("[warn] foo")))
	assert.Equal(t, Level(""), level([]byte("foo")))
	assert.Equal(t, Level(""), level([]byte("[foo")))
}
