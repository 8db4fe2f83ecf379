package signup

import (
	"encoding/json"
	"fmt"
)

// Status is the outcome of one sign-up rule. The numeric values are stable
// and part of the wire contract.
type Status int

const (
	OK Status = 0

	LoginContainsNotAllowedChars Status = 1
	LoginExists                  Status = 3
	LoginIsEmpty                 Status = 4
	LoginIsLong                  Status = 5

	PasswordContainsNotAllowedChars Status = 6
	PasswordDoesNotMatch            Status = 7
	PasswordIsEmpty                 Status = 8
	PasswordIsShort                 Status = 9
	PasswordIsLong                  Status = 10
	PasswordIsCommon                Status = 11

	EmailIsInvalid    Status = 12
	EmailIsEmpty      Status = 13
	EmailAlreadyInUse Status = 14

	NicknameContainsNotAllowedChars Status = 15
	NicknameExists                  Status = 16
	NicknameIsEmpty                 Status = 17
	NicknameIsLong                  Status = 18
	NicknameIsRestricted            Status = 19

	InviteCodeIsEmpty       Status = 20
	InviteCodeDoesNotExists Status = 21

	DBConnectionLost Status = 22
)

var statusNames = map[Status]string{
	OK:                              "OK",
	LoginContainsNotAllowedChars:    "LoginContainsNotAllowedChars",
	LoginExists:                     "LoginExists",
	LoginIsEmpty:                    "LoginIsEmpty",
	LoginIsLong:                     "LoginIsLong",
	PasswordContainsNotAllowedChars: "PasswordContainsNotAllowedChars",
	PasswordDoesNotMatch:            "PasswordDoesNotMatch",
	PasswordIsEmpty:                 "PasswordIsEmpty",
	PasswordIsShort:                 "PasswordIsShort",
	PasswordIsLong:                  "PasswordIsLong",
	PasswordIsCommon:                "PasswordIsCommon",
	EmailIsInvalid:                  "EmailIsInvalid",
	EmailIsEmpty:                    "EmailIsEmpty",
	EmailAlreadyInUse:               "EmailAlreadyInUse",
	NicknameContainsNotAllowedChars: "NicknameContainsNotAllowedChars",
	NicknameExists:                  "NicknameExists",
	NicknameIsEmpty:                 "NicknameIsEmpty",
	NicknameIsLong:                  "NicknameIsLong",
	NicknameIsRestricted:            "NicknameIsRestricted",
	InviteCodeIsEmpty:               "InviteCodeIsEmpty",
	InviteCodeDoesNotExists:         "InviteCodeDoesNotExists",
	DBConnectionLost:                "DBConnectionLost",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Request is the sign-up form.
type Request struct {
	Login           string `json:"login"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	Nickname        string `json:"nickname"`
	Email           string `json:"email"`
	InviteCode      string `json:"invite_code"`
}

// Result holds one status per rule in evaluation order. A password mismatch,
// when present, comes first.
type Result []Status

// OK reports whether every rule passed.
func (r Result) OK() bool {
	for _, s := range r {
		if s != OK {
			return false
		}
	}
	return true
}

// Violations returns the failed statuses in order.
func (r Result) Violations() []Status {
	out := make([]Status, 0, len(r))
	for _, s := range r {
		if s != OK {
			out = append(out, s)
		}
	}
	return out
}

// Has reports whether status is among the results.
func (r Result) Has(status Status) bool {
	for _, s := range r {
		if s == status {
			return true
		}
	}
	return false
}
