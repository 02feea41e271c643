// Package forms validates submitted form fields into typed values.
// Parsers never fail on malformed input; problems are reported per field.
package forms

import (
	"net/mail"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/aryan0dhankhar/grievanceportal/internal/domain"
	"github.com/aryan0dhankhar/grievanceportal/internal/imagestore"
	"github.com/aryan0dhankhar/grievanceportal/internal/security/auth"
)

const (
	usernameMin = 2
	usernameMax = 20
	emailMax    = 120 // users.email column width
	passwordMin = 6
	titleMax    = 100
	contentMax  = 5000
)

// Errors maps a field name to its validation messages
type Errors map[string][]string

// Add records a message for field
func (e Errors) Add(field, message string) {
	e[field] = append(e[field], message)
}

// Get returns the first message for field, or ""
func (e Errors) Get(field string) string {
	if msgs := e[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// Any reports whether at least one field failed
func (e Errors) Any() bool {
	return len(e) > 0
}

type Registration struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
}

type Login struct {
	Email    string
	Password string
	Remember bool
}

// Account is an account update. Picture is the client filename of an
// uploaded picture, empty when none was sent.
type Account struct {
	Username string
	Email    string
	Picture  string
}

type Grievance struct {
	Category string
	Title    string
	Content  string
	Picture  string
}

// ParseRegistration validates a sign-up form. Uniqueness is checked by the
// caller against the user store.
func ParseRegistration(v url.Values) (Registration, Errors) {
	form := Registration{
		Username:        strings.TrimSpace(v.Get("username")),
		Email:           normalizeEmail(v.Get("email")),
		Password:        v.Get("password"),
		ConfirmPassword: v.Get("confirm_password"),
	}
	errs := Errors{}
	checkUsername(errs, form.Username)
	checkEmail(errs, form.Email)

	switch n := len(form.Password); {
	case n == 0:
		errs.Add("password", "This field is required.")
	case n < passwordMin || n > auth.MaxPasswordBytes:
		errs.Add("password", "Password must be between 6 and 72 characters long.")
	}
	if form.ConfirmPassword == "" {
		errs.Add("confirm_password", "This field is required.")
	} else if form.ConfirmPassword != form.Password {
		errs.Add("confirm_password", "Field must be equal to password.")
	}
	return form, errs
}

func ParseLogin(v url.Values) (Login, Errors) {
	form := Login{
		Email:    normalizeEmail(v.Get("email")),
		Password: v.Get("password"),
		Remember: truthy(v.Get("remember")),
	}
	errs := Errors{}
	checkEmail(errs, form.Email)
	if form.Password == "" {
		errs.Add("password", "This field is required.")
	} else if len(form.Password) > auth.MaxPasswordBytes {
		errs.Add("password", "Password is too long.")
	}
	return form, errs
}

// ParseAccount validates an account update. picture is the uploaded
// filename or "".
func ParseAccount(v url.Values, picture string) (Account, Errors) {
	form := Account{
		Username: strings.TrimSpace(v.Get("username")),
		Email:    normalizeEmail(v.Get("email")),
		Picture:  picture,
	}
	errs := Errors{}
	checkUsername(errs, form.Username)
	checkEmail(errs, form.Email)
	checkPicture(errs, form.Picture, ".jpg", ".jpeg", ".png")
	return form, errs
}

// ParseGrievance validates the create and update grievance form
func ParseGrievance(v url.Values, picture string) (Grievance, Errors) {
	form := Grievance{
		Category: strings.TrimSpace(v.Get("category")),
		Title:    strings.TrimSpace(v.Get("title")),
		Content:  strings.TrimSpace(v.Get("content")),
		Picture:  picture,
	}
	errs := Errors{}

	if form.Category == "" {
		errs.Add("category", "This field is required.")
	} else if !domain.IsCategory(form.Category) {
		errs.Add("category", "Not a valid choice.")
	}
	checkLength(errs, "title", form.Title, 1, titleMax)
	checkLength(errs, "content", form.Content, 1, contentMax)
	checkPicture(errs, form.Picture, ".jpg", ".jpeg", ".png", ".gif")
	return form, errs
}

// DuplicateUser records a uniqueness conflict against its field
func (e Errors) DuplicateUser(field string) {
	e.Add(field, "That "+field+" is taken. Please choose a different one.")
}

func checkUsername(errs Errors, username string) {
	checkLength(errs, "username", username, usernameMin, usernameMax)
}

func checkEmail(errs Errors, email string) {
	if email == "" {
		errs.Add("email", "This field is required.")
		return
	}
	if utf8.RuneCountInString(email) > emailMax {
		errs.Add("email", lengthMessage(1, emailMax))
		return
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
		errs.Add("email", "Invalid email address.")
	}
}

func checkLength(errs Errors, field, value string, lo, hi int) {
	n := utf8.RuneCountInString(value)
	switch {
	case n == 0:
		errs.Add(field, "This field is required.")
	case n < lo || n > hi:
		errs.Add(field, lengthMessage(lo, hi))
	}
}

func checkPicture(errs Errors, filename string, allowed ...string) {
	if filename == "" {
		return
	}
	ext := imagestore.Extension(filename)
	for _, a := range allowed {
		if ext == a {
			return
		}
	}
	errs.Add("picture", "File type not allowed. Use "+strings.Join(trimDots(allowed), ", ")+".")
}

func lengthMessage(lo, hi int) string {
	if lo <= 1 {
		return "Field cannot be longer than " + strconv.Itoa(hi) + " characters."
	}
	return "Field must be between " + strconv.Itoa(lo) + " and " + strconv.Itoa(hi) + " characters long."
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "true", "1", "y", "yes":
		return true
	}
	return false
}

func trimDots(exts []string) []string {
	out := make([]string, len(exts))
	for i, e := range exts {
		out[i] = strings.TrimPrefix(e, ".")
	}
	return out
}
