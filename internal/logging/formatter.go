package logging

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

// ActionsFormatter renders entries as GitHub Actions workflow commands.
// Info entries are printed as plain lines.
type ActionsFormatter struct{}

// Format implements logrus.Formatter.
func (f *ActionsFormatter) Format(e *logrus.Entry) ([]byte, error) {
	msg := e.Message + formatFields(e.Data)

	var b bytes.Buffer
	switch e.Level {
	case logrus.DebugLevel, logrus.TraceLevel:
		b.WriteString("::debug::" + EscapeData(msg))
	case logrus.WarnLevel:
		b.WriteString("::warning::" + EscapeData(msg))
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		b.WriteString("::error::" + EscapeData(msg))
	default:
		b.WriteString(msg)
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

// ConsoleFormatter renders entries with colored level prefixes for local
// terminal use.
type ConsoleFormatter struct{}

// Format implements logrus.Formatter.
func (f *ConsoleFormatter) Format(e *logrus.Entry) ([]byte, error) {
	var prefix string
	switch e.Level {
	case logrus.DebugLevel, logrus.TraceLevel:
		prefix = color.CyanString("[debug] ")
	case logrus.WarnLevel:
		prefix = color.YellowString("[warn] ")
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		prefix = color.RedString("[error] ")
	default:
		prefix = color.GreenString("[info] ")
	}
	return []byte(prefix + e.Message + formatFields(e.Data) + "\n"), nil
}

// formatFields renders fields as " key=value" pairs in key order.
func formatFields(data logrus.Fields) string {
	if len(data) == 0 {
		return ""
	}

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&sb, " %s=%v", k, data[k])
	}
	return sb.String()
}

// EscapeData escapes a workflow command message.
func EscapeData(s string) string {
	s = strings.ReplaceAll(s, "%", "%25")
	s = strings.ReplaceAll(s, "\r", "%0D")
	s = strings.ReplaceAll(s, "\n", "%0A")
	return s
}

// EscapeProperty escapes a workflow command property value.
func EscapeProperty(s string) string {
	s = EscapeData(s)
	s = strings.ReplaceAll(s, ":", "%3A")
	s = strings.ReplaceAll(s, ",", "%2C")
	return s
}
