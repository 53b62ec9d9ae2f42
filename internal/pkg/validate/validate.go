package validate

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// User-facing messages for the custom rules. Signup surfaces exactly one of these.
const (
	MsgEmail    = "Invalid email format"
	MsgUsername = "Username must be 3–20 chars, letters/numbers/underscore only."
	MsgPassword = "Password must be at least 8 chars, include uppercase, lowercase, a number, and a special character."

	MsgPasswordLength = "Password must be at most 72 bytes."
)

// MaxPasswordBytes is the longest input bcrypt hashes.
const MaxPasswordBytes = 72

const passwordSpecials = "@$!%*#?&"

var (
	emailRe    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	usernameRe = regexp.MustCompile(`^[A-Za-z0-9_]{3,20}$`)
)

// v is the package-level singleton validator. It is initialised once at
// package load time together with the custom rules below.
var v = newValidator()

var messages = map[string]string{
	"email_shape":     MsgEmail,
	"username":        MsgUsername,
	"strong_password": MsgPassword,
	"password_len":    MsgPasswordLength,
}

func newValidator() *validator.Validate {
	val := validator.New()
	val.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	mustRegister(val, "email_shape", func(fl validator.FieldLevel) bool {
		return Email(fl.Field().String())
	})
	mustRegister(val, "username", func(fl validator.FieldLevel) bool {
		return Username(fl.Field().String())
	})
	mustRegister(val, "strong_password", func(fl validator.FieldLevel) bool {
		return Password(fl.Field().String())
	})
	mustRegister(val, "password_len", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= MaxPasswordBytes
	})
	return val
}

func mustRegister(val *validator.Validate, tag string, fn validator.Func) {
	if err := val.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s: %v", tag, err))
	}
}

// Struct validates the given struct using its validate tags and reports the
// first violated rule only, in field declaration order.
func Struct(s interface{}) error {
	if err := v.Struct(s); err != nil {
		ve, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		return fmt.Errorf("%s", message(ve[0]))
	}
	return nil
}

func message(fe validator.FieldError) string {
	if msg, ok := messages[fe.Tag()]; ok {
		return msg
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	}
	return fmt.Sprintf("field '%s' failed '%s'", fe.Field(), fe.Tag())
}

func Email(s string) bool { return emailRe.MatchString(s) }

func Username(s string) bool { return usernameRe.MatchString(s) }

// Password requires ≥8 characters with at least one upper, lower, digit and special.
func Password(s string) bool {
	if len([]rune(s)) < 8 {
		return false
	}
	var upper, lower, digit, special bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}
	return upper && lower && digit && special
}
