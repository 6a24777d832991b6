// Package validator содержит чистые функции проверки пользовательского ввода
// перед тем, как он попадёт в хранилище.
package validator

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// Имена полей в карте ошибок
const (
	FieldOriginalURL     = "originalUrl"
	FieldCustomShortcode = "customShortcode"
	FieldValidityMinutes = "validityMinutes"
)

// Тексты ошибок, которые показываются пользователю
const (
	MsgURLRequired      = "URL is required"
	MsgInvalidURL       = "Please enter a valid URL (http:// or https://)"
	MsgInvalidShortcode = "Shortcode must be alphanumeric (letters and numbers only, max 20 characters)"
	MsgInvalidValidity  = "Validity must be a positive number"
	MsgValidityTooLarge = "Validity period is too large"
)

// MaxValidityMinutes верхняя граница срока жизни: 8.64e15 мс, предел даты в браузере.
// Срок в миллисекундах с запасом помещается в int64.
const MaxValidityMinutes int64 = 144_000_000_000

const (
	shortcodeRule = "alphanum,max=20"
	maxPort       = 65535
)

var (
	validate     = validator.New()
	schemePrefix = regexp.MustCompile(`(?i)^https?://`)
)

// ValidationResult результат проверки одной строки формы
type ValidationResult struct {
	IsValid bool              `json:"isValid"`
	Errors  map[string]string `json:"errors"`
}

// IsValidURL true, если s разбирается как абсолютный http(s) URL с хостом
func IsValidURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	// "http:example.com" без "//" разбирается как opaque и хоста не имеет
	if u.Host == "" {
		return false
	}
	if p := u.Port(); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n > maxPort {
			return false
		}
	}
	return true
}

// IsValidShortcode проверяет формат кастомного кода (1-20 латинских букв и цифр).
// Пустой код допустим: поле необязательное.
func IsValidShortcode(s string) bool {
	if s == "" {
		return true
	}
	return validate.Var(s, shortcodeRule) == nil
}

// IsValidPositiveInteger разбирает ведущее целое число (как это делает форма:
// пробелы, знак, цифры, хвост игнорируется) и проверяет, что оно больше нуля.
func IsValidPositiveInteger(v string) bool {
	digits, negative := leadingInteger(v)
	return digits != "" && !negative && digits != "0"
}

// IsValidityInRange false, если ведущее число больше MaxValidityMinutes
func IsValidityInRange(v string) bool {
	digits, _ := leadingInteger(v)
	if digits == "" {
		return true
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	return err == nil && n <= MaxValidityMinutes
}

// leadingInteger цифры ведущего числа без лидирующих нулей ("0" для нуля)
func leadingInteger(v string) (digits string, negative bool) {
	s := strings.TrimLeftFunc(v, unicode.IsSpace)
	if s != "" && (s[0] == '+' || s[0] == '-') {
		negative = s[0] == '-'
		s = s[1:]
	}

	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return "", negative
	}

	digits = strings.TrimLeft(s[:end], "0")
	if digits == "" {
		digits = "0"
	}
	return digits, negative
}

// ValidateURLEntry собирает ошибки по полям одной строки формы.
// validityMinutes проверяется только если оно задано и не равно нулю.
func ValidateURLEntry(originalURL, customShortcode, validityMinutes string) ValidationResult {
	errs := make(map[string]string)

	if originalURL == "" {
		errs[FieldOriginalURL] = MsgURLRequired
	} else if !IsValidURL(originalURL) {
		errs[FieldOriginalURL] = MsgInvalidURL
	}

	if customShortcode != "" && !IsValidShortcode(customShortcode) {
		errs[FieldCustomShortcode] = MsgInvalidShortcode
	}

	if !isZeroValue(validityMinutes) {
		switch {
		case !IsValidPositiveInteger(validityMinutes):
			errs[FieldValidityMinutes] = MsgInvalidValidity
		case !IsValidityInRange(validityMinutes):
			errs[FieldValidityMinutes] = MsgValidityTooLarge
		}
	}

	return ValidationResult{
		IsValid: len(errs) == 0,
		Errors:  errs,
	}
}

// FormatURL добавляет https:// к адресу без схемы
func FormatURL(s string) string {
	if s == "" {
		return ""
	}
	if !schemePrefix.MatchString(s) {
		return "https://" + s
	}
	return s
}

// isZeroValue пустая строка или число, равное нулю
func isZeroValue(v string) bool {
	t := strings.TrimSpace(v)
	if t == "" {
		return true
	}
	f, err := strconv.ParseFloat(t, 64)
	return err == nil && f == 0
}
