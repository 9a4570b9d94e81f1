package settings

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	apperrors "github.com/iamwavecut/gatebot/internal/errors"
)

const (
	KeyStartText      = "start_text"
	KeyTargets        = "fsub_targets"
	KeyJoinLink       = "fsub_join_link"
	KeyForbiddenWords = "forbidden_words"
	KeyProtectContent = "protect_content"
	KeyBackupChat     = "backup_chat"
	KeyPublishChat    = "publish_chat"
	KeyLogChat        = "log_chat"
	KeyDeniedText     = "denied_text"
	KeyNotFoundText   = "not_found_text"
)

// ClearValue typed by an operator empties list, link and chat settings.
const ClearValue = "-"

type kind int

const (
	kindText kind = iota
	kindTargets
	kindURL
	kindWords
	kindBool
	kindChatID
)

var keyKinds = map[string]kind{
	KeyStartText:      kindText,
	KeyTargets:        kindTargets,
	KeyJoinLink:       kindURL,
	KeyForbiddenWords: kindWords,
	KeyProtectContent: kindBool,
	KeyBackupChat:     kindChatID,
	KeyPublishChat:    kindChatID,
	KeyLogChat:        kindChatID,
	KeyDeniedText:     kindText,
	KeyNotFoundText:   kindText,
}

// Keys lists the editable settings in panel order.
func Keys() []string {
	return []string{
		KeyStartText,
		KeyTargets,
		KeyJoinLink,
		KeyProtectContent,
		KeyBackupChat,
		KeyPublishChat,
		KeyLogChat,
		KeyForbiddenWords,
		KeyDeniedText,
		KeyNotFoundText,
	}
}

// Clearable reports whether ClearValue is accepted for key.
func Clearable(key string) bool {
	k, ok := keyKinds[key]
	return ok && k != kindText && k != kindBool
}

func IsKnown(key string) bool {
	_, ok := keyKinds[key]
	return ok
}

var (
	ErrUnknownKey   = fmt.Errorf("unknown setting: %w", apperrors.ErrInvalidInput)
	ErrInvalidValue = fmt.Errorf("invalid setting value: %w", apperrors.ErrInvalidInput)

	usernamePattern = regexp.MustCompile(`^@[A-Za-z][A-Za-z0-9_]{3,31}$`)
)

// Normalize validates value for key and returns the form that gets persisted.
func Normalize(key, value string) (string, error) {
	k, ok := keyKinds[key]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	value = strings.TrimSpace(value)

	switch k {
	case kindText:
		if value == "" || value == ClearValue {
			return "", fmt.Errorf("%w: %s must not be empty", ErrInvalidValue, key)
		}
		return value, nil
	case kindTargets:
		if value == ClearValue || value == "" {
			return "", nil
		}
		targets, err := ParseTargets(value)
		if err != nil {
			return "", err
		}
		return FormatTargets(targets), nil
	case kindURL:
		if value == ClearValue || value == "" {
			return "", nil
		}
		if err := validateURL(value); err != nil {
			return "", err
		}
		return value, nil
	case kindWords:
		if value == ClearValue || value == "" {
			return "", nil
		}
		return strings.Join(ParseWords(value), ","), nil
	case kindBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return "", fmt.Errorf("%w: %s expects true or false", ErrInvalidValue, key)
		}
		return strconv.FormatBool(b), nil
	case kindChatID:
		if value == ClearValue || value == "" || value == "0" {
			return "", nil
		}
		if _, err := strconv.ParseInt(value, 10, 64); err != nil {
			return "", fmt.Errorf("%w: %s expects a numeric chat id", ErrInvalidValue, key)
		}
		return value, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKey, key)
}

// Target is one chat a user must belong to.
type Target struct {
	Ref     string
	JoinURL string
}

// ChatID returns the numeric id for targets configured by id.
func (t Target) ChatID() (int64, bool) {
	id, err := strconv.ParseInt(t.Ref, 10, 64)
	return id, err == nil
}

// Username returns the public @name for targets configured by username.
func (t Target) Username() (string, bool) {
	if strings.HasPrefix(t.Ref, "@") {
		return t.Ref, true
	}
	return "", false
}

func (t Target) String() string {
	if t.JoinURL == "" {
		return t.Ref
	}
	return t.Ref + "=" + t.JoinURL
}

// ParseTargets reads entries of the form "ref" or "ref=url" separated by '|', ',' or
// new lines. A ref is either "@username" or a numeric chat id. Order is kept and
// duplicates are dropped.
func ParseTargets(raw string) ([]Target, error) {
	var (
		targets []Target
		seen    = map[string]struct{}{}
	)
	for _, entry := range splitList(raw) {
		ref, link, _ := strings.Cut(entry, "=")
		ref, link = strings.TrimSpace(ref), strings.TrimSpace(link)
		if _, err := strconv.ParseInt(ref, 10, 64); err != nil && !usernamePattern.MatchString(ref) {
			return nil, fmt.Errorf("%w: target %q is neither @username nor a chat id", ErrInvalidValue, ref)
		}
		if link != "" {
			if err := validateURL(link); err != nil {
				return nil, err
			}
		}
		if _, dup := seen[ref]; dup {
			continue
		}
		seen[ref] = struct{}{}
		targets = append(targets, Target{Ref: ref, JoinURL: link})
	}
	return targets, nil
}

func FormatTargets(targets []Target) string {
	parts := make([]string, 0, len(targets))
	for _, t := range targets {
		parts = append(parts, t.String())
	}
	return strings.Join(parts, "|")
}

// ParseWords splits a comma separated word list, lower-cased and without blanks.
func ParseWords(raw string) []string {
	var words []string
	for _, w := range splitList(raw) {
		words = append(words, strings.ToLower(w))
	}
	return words
}

func splitList(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == '|' || r == ',' || r == '\n'
	})
	res := fields[:0]
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			res = append(res, f)
		}
	}
	return res
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return fmt.Errorf("%w: %q is not a http(s) link", ErrInvalidValue, raw)
	}
	return nil
}
