package logging

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestFormatter(t *testing.T) {
	f := &Formatter{}
	entry := &logrus.Entry{
		Time:    time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC),
		Level:   logrus.WarnLevel,
		Message: "slow workload",
		Data: logrus.Fields{
			"workload": "OLTP",
			"err":      errors.New("took too long"),
			"ops":      1000,
		},
	}
	out, err := f.Format(entry)
	assert.NoError(t, err)
	assert.Equal(t,
		"[09:30:00 UTC 2024/03/01] [WARN] slow workload err=\"took too long\" ops=1000 workload=OLTP\n",
		string(out))
}

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New("warn", &buf)
	l.Info("hidden")
	l.WithField("k", "v").Error("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "[ERRO] shown k=v\n")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, logrus.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, logrus.InfoLevel, ParseLevel("nonsense"))
}
