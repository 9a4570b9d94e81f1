package config

import (
	"encoding/json"
	"fmt"
	"runtime"
	"slices"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

const (
	colorRed         = 31
	colorGreen       = 32
	colorYellow      = 33
	colorBlue        = 36
	colorGray        = 37
	colorLightGreen  = 92
	colorLightYellow = 93
	colorCyan        = 96
)

// NbFormatter renders entries as coloured key=value pairs with fields sorted by name.
type NbFormatter struct {
	// SkipCaller hides the source location, used by tests and non-tty outputs.
	SkipCaller bool
}

func (f *NbFormatter) Format(entry *log.Entry) ([]byte, error) {
	var b strings.Builder

	level := strings.ToUpper(entry.Level.String())
	if len(level) > 4 {
		level = level[:4]
	}
	writePair(&b, "level", colorize(levelColor(entry.Level), level))
	writePair(&b, "ts", colorize(colorLightYellow, entry.Time.Format("2006-01-02 15:04:05.000")))

	if !f.SkipCaller {
		if _, file, line, ok := runtime.Caller(6); ok {
			writePair(&b, "source", colorize(colorLightYellow, fmt.Sprintf("%s:%d", file, line)))
		}
	}

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		raw, err := json.Marshal(entry.Data[k])
		if err != nil || len(raw) == 0 {
			continue
		}
		s := string(raw)
		writePair(&b, k, colorize(valueColor(s), s))
	}
	writePair(&b, "msg", colorize(colorLightGreen, strconv.Quote(entry.Message)))

	out := strings.NewReplacer("\r", `\r`, "\n", `\n`).Replace(b.String())
	return []byte(out + "\n"), nil
}

func levelColor(level log.Level) int {
	switch level {
	case log.DebugLevel, log.TraceLevel:
		return colorGray
	case log.WarnLevel:
		return colorYellow
	case log.ErrorLevel, log.FatalLevel, log.PanicLevel:
		return colorRed
	default:
		return colorBlue
	}
}

func valueColor(s string) int {
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return colorGreen
	}
	if strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		return colorLightYellow
	}
	return colorCyan
}

func colorize(color int, s string) string {
	return fmt.Sprintf("\x1b[%dm%s\x1b[0m", color, s)
}

func writePair(b *strings.Builder, key, value string) {
	if b.Len() > 0 {
		b.WriteByte(' ')
	}
	b.WriteString(colorize(colorCyan, key))
	b.WriteByte('=')
	b.WriteString(value)
}
