package signup

import (
	"context"
	"strings"

	"github.com/Abraxas-365/keygate/pkg/logx"
)

// Validator runs every sign-up rule and collects all violations.
type Validator struct {
	lookup     Lookup
	restricted map[string]struct{}
}

type ValidatorOption func(*Validator)

// WithRestrictedNicknames replaces the reserved nickname list.
func WithRestrictedNicknames(names ...string) ValidatorOption {
	return func(v *Validator) {
		v.restricted = make(map[string]struct{}, len(names))
		for _, n := range names {
			v.restricted[strings.ToLower(n)] = struct{}{}
		}
	}
}

func NewValidator(lookup Lookup, opts ...ValidatorOption) *Validator {
	v := &Validator{lookup: lookup}
	WithRestrictedNicknames(DefaultRestrictedNicknames...)(v)
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate evaluates login, password, nickname, email and invite code, in
// that order, after an optional password-mismatch entry. It never stops at
// the first failure.
func (v *Validator) Validate(ctx context.Context, req Request) Result {
	result := make(Result, 0, 6)
	if req.Password != req.ConfirmPassword {
		result = append(result, PasswordDoesNotMatch)
	}

	result = append(result,
		v.login(ctx, req.Login),
		v.password(req.Password),
		v.nickname(ctx, req.Nickname),
		v.email(ctx, req.Email),
		v.invite(ctx, req.InviteCode),
	)
	return result
}

func (v *Validator) login(ctx context.Context, login string) Status {
	if login == "" {
		return LoginIsEmpty
	}
	if len(login) > LoginMaxLength {
		return LoginIsLong
	}
	if !allChars(login, isIdentifierChar) {
		return LoginContainsNotAllowedChars
	}
	return v.exists(ctx, "login", login, v.lookup.LoginExists, LoginExists)
}

func (v *Validator) password(password string) Status {
	if password == "" {
		return PasswordIsEmpty
	}
	if len(password) < PasswordMinLength {
		return PasswordIsShort
	}
	if len(password) > PasswordMaxLength {
		return PasswordIsLong
	}
	if !allChars(password, isPasswordChar) {
		return PasswordContainsNotAllowedChars
	}
	if IsCommonPassword(password) {
		return PasswordIsCommon
	}
	return OK
}

func (v *Validator) nickname(ctx context.Context, nickname string) Status {
	if nickname == "" {
		return NicknameIsEmpty
	}
	if len(nickname) > NicknameMaxLength {
		return NicknameIsLong
	}
	if !allChars(nickname, isIdentifierChar) {
		return NicknameContainsNotAllowedChars
	}
	if _, reserved := v.restricted[strings.ToLower(nickname)]; reserved {
		return NicknameIsRestricted
	}
	return v.exists(ctx, "nickname", nickname, v.lookup.NicknameExists, NicknameExists)
}

func (v *Validator) email(ctx context.Context, email string) Status {
	if email == "" {
		return EmailIsEmpty
	}
	if !ValidEmail(email) {
		return EmailIsInvalid
	}
	return v.exists(ctx, "email", email, v.lookup.EmailExists, EmailAlreadyInUse)
}

func (v *Validator) invite(ctx context.Context, code string) Status {
	if code == "" {
		return InviteCodeIsEmpty
	}

	found, err := v.lookup.InviteExists(ctx, code)
	if err != nil {
		logLookupFailure("invite_code", err)
		return DBConnectionLost
	}
	if !found {
		return InviteCodeDoesNotExists
	}
	return OK
}

// exists maps a uniqueness lookup onto taken / OK / DBConnectionLost.
func (v *Validator) exists(ctx context.Context, field, value string, lookup func(context.Context, string) (bool, error), taken Status) Status {
	found, err := lookup(ctx, value)
	if err != nil {
		logLookupFailure(field, err)
		return DBConnectionLost
	}
	if found {
		return taken
	}
	return OK
}

func logLookupFailure(field string, err error) {
	logx.WithError(err).WithField("field", field).Warn("Sign-up lookup failed")
}
