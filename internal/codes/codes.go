// Package codes generates access codes and encodes the deep links and callback
// payloads that carry them.
package codes

import (
	"encoding/hex"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/pborman/uuid"
)

// MaxLength leaves room for the retry prefix inside Telegram's 64 byte
// callback_data limit.
const MaxLength = 64 - len(retryPrefix)

const (
	minRandom  = 8
	maxRandom  = 30
	defaultLen = 12
)

var codePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Valid reports whether code can travel in a /start deep link payload and back
// in a retry button.
func Valid(code string) bool {
	return len(code) <= MaxLength && codePattern.MatchString(code)
}

type Generator struct {
	prefix string
	length int
}

// NewGenerator returns a generator producing prefix followed by length random hex digits.
func NewGenerator(prefix string, length int) (*Generator, error) {
	if length == 0 {
		length = defaultLen
	}
	if length < minRandom || length > maxRandom {
		return nil, fmt.Errorf("code length must be within %d..%d", minRandom, maxRandom)
	}
	if prefix != "" && !Valid(prefix) {
		return nil, fmt.Errorf("code prefix %q has characters outside [A-Za-z0-9_-]", prefix)
	}
	if len(prefix)+length > MaxLength {
		return nil, fmt.Errorf("code prefix too long: prefix and random part exceed %d characters", MaxLength)
	}
	return &Generator{prefix: prefix, length: length}, nil
}

// Next returns a fresh code. A v4 UUID carries 122 random bits; the version and
// variant nibbles are dropped so every remaining hex digit is random.
func (g *Generator) Next() string {
	raw := hex.EncodeToString(uuid.NewRandom())
	random := raw[:12] + raw[13:16] + raw[17:]
	return g.prefix + random[:g.length]
}

// DeepLink builds the t.me link that starts the bot with code as payload.
func DeepLink(botUsername, code string) string {
	return "https://t.me/" + strings.TrimPrefix(botUsername, "@") + "?start=" + url.QueryEscape(code)
}

// Callback payload prefixes.
const (
	retryPrefix   = "retry:"
	settingPrefix = "set:"
	approvePrefix = "sub:ok:"
	rejectPrefix  = "sub:no:"
)

func RetryData(code string) string { return retryPrefix + code }

func ParseRetry(data string) (string, bool) {
	code, ok := strings.CutPrefix(data, retryPrefix)
	if !ok || !Valid(code) {
		return "", false
	}
	return code, true
}

func SettingData(key string) string { return settingPrefix + key }

func ParseSetting(data string) (string, bool) {
	key, ok := strings.CutPrefix(data, settingPrefix)
	return key, ok && key != ""
}

func DecisionData(id int64, approve bool) string {
	if approve {
		return approvePrefix + strconv.FormatInt(id, 10)
	}
	return rejectPrefix + strconv.FormatInt(id, 10)
}

// ParseDecision reads a submission approve/reject payload.
func ParseDecision(data string) (id int64, approve bool, ok bool) {
	var rest string
	switch {
	case strings.HasPrefix(data, approvePrefix):
		rest, approve = data[len(approvePrefix):], true
	case strings.HasPrefix(data, rejectPrefix):
		rest = data[len(rejectPrefix):]
	default:
		return 0, false, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || id <= 0 {
		return 0, false, false
	}
	return id, approve, true
}
