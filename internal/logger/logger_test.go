package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetLevel_FiltersBelowThreshold(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetLevel("info")
		SetOutput(nil)
	})

	SetLevel("warn")
	Infof("escondido %d", 1)
	Warnf("visivel %d", 2)

	out := buf.String()
	assert.NotContains(t, out, "escondido")
	assert.Contains(t, out, "visivel 2")
}

func TestSetLevel_UnknownFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(nil) })

	SetLevel("verbose")
	Debugf("debug")
	Infof("info")

	assert.NotContains(t, buf.String(), "msg=debug")
	assert.Contains(t, buf.String(), "msg=info")
}

func TestBanner_WritesOneEntryPerLine(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(nil) })
	SetLevel("info")

	Banner("linha um\nlinha dois\n")

	assert.Equal(t, 2, bytes.Count(buf.Bytes(), []byte("level=INFO")))
}
