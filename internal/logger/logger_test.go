package logger

import (
	"bytes"
	"log/slog"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

const (
	textTraceString   = `^time="[a-zA-Z0-9/:. ]{26}" severity=TRACE message="www.traceExample.com"`
	textDebugString   = `^time="[a-zA-Z0-9/:. ]{26}" severity=DEBUG message="www.debugExample.com"`
	textInfoString    = `^time="[a-zA-Z0-9/:. ]{26}" severity=INFO message="www.infoExample.com"`
	textWarningString = `^time="[a-zA-Z0-9/:. ]{26}" severity=WARNING message="www.warningExample.com"`
	textErrorString   = `^time="[a-zA-Z0-9/:. ]{26}" severity=ERROR message="www.errorExample.com"`

	jsonTraceString   = `^{"timestamp":{"seconds":\d{10},"nanos":\d{0,9}},"severity":"TRACE","message":"www.traceExample.com"}`
	jsonErrorString   = `^{"timestamp":{"seconds":\d{10},"nanos":\d{0,9}},"severity":"ERROR","message":"www.errorExample.com"}`
)

type LoggerTest struct {
	suite.Suite
}

func TestLoggerSuite(t *testing.T) {
	suite.Run(t, new(LoggerTest))
}

func redirectLogsToGivenBuffer(buf *bytes.Buffer, format string, level string) {
	v := new(slog.LevelVar)
	_ = setLoggingLevel(level, v)
	defaultLoggerFactory = &handlerFactory{format: format}
	defaultLevel = v
	defaultLogger = slog.New(defaultLoggerFactory.createJsonOrTextHandler(buf, v, ""))
}

func getTestLoggingFunctions() []func() {
	return []func(){
		func() { Tracef("www.traceExample.com") },
		func() { Debugf("www.debugExample.com") },
		func() { Infof("www.infoExample.com") },
		func() { Warnf("www.warningExample.com") },
		func() { Errorf("www.errorExample.com") },
	}
}

func fetchLogOutput(format, level string) []string {
	var buf bytes.Buffer
	redirectLogsToGivenBuffer(&buf, format, level)

	var output []string
	for _, f := range getTestLoggingFunctions() {
		f()
		output = append(output, buf.String())
		buf.Reset()
	}
	return output
}

func validateOutput(t *testing.T, expected []string, output []string) {
	for i := range output {
		if expected[i] == "" {
			assert.Equal(t, expected[i], output[i])
			continue
		}
		assert.Regexp(t, regexp.MustCompile(expected[i]), output[i])
	}
}

func (t *LoggerTest) TestTextFormatLogLevelOFF() {
	validateOutput(t.T(), []string{"", "", "", "", ""}, fetchLogOutput("text", "OFF"))
}

func (t *LoggerTest) TestTextFormatLogLevelERROR() {
	validateOutput(t.T(), []string{"", "", "", "", textErrorString}, fetchLogOutput("text", "ERROR"))
}

func (t *LoggerTest) TestTextFormatLogLevelTRACE() {
	validateOutput(t.T(),
		[]string{textTraceString, textDebugString, textInfoString, textWarningString, textErrorString},
		fetchLogOutput("text", "TRACE"))
}

func (t *LoggerTest) TestJSONFormatLogLevelTRACE() {
	output := fetchLogOutput("json", "TRACE")
	assert.Regexp(t.T(), regexp.MustCompile(jsonTraceString), output[0])
	assert.Regexp(t.T(), regexp.MustCompile(jsonErrorString), output[4])
}

func (t *LoggerTest) TestSetLoggingLevelRejectsUnknown() {
	v := new(slog.LevelVar)
	assert.Error(t.T(), setLoggingLevel("NOT-A-LEVEL", v))
}
