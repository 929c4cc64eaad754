package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sakif/fieldfinder/internal/apperror"
	"github.com/sakif/fieldfinder/internal/auth"
	"github.com/sakif/fieldfinder/internal/model"
)

// =========================================================================
// SIGNUP TESTS
// =========================================================================

func TestSignup_Success(t *testing.T) {
	fx := newFixture()

	res, err := fx.auth.Signup(context.Background(), SignupInput{
		Email:    " Kim@Example.com",
		Password: "password1",
		Name:     "Kim",
	})
	if err != nil {
		t.Fatalf("Signup() error = %v", err)
	}

	if res.User.ID == "" || res.Token == "" {
		t.Fatalf("Signup() = %+v, want a stored user and a token", res)
	}
	if res.User.Email != "kim@example.com" {
		t.Errorf("Email = %q, want normalized", res.User.Email)
	}
	if res.User.Role != model.RoleUser {
		t.Errorf("Role = %q, want USER", res.User.Role)
	}
	if res.User.PasswordHash == "password1" {
		t.Error("password stored in plain text")
	}

	id, err := fx.tokens.Validate(res.Token)
	if err != nil {
		t.Fatalf("issued token does not validate: %v", err)
	}
	if id.UserID != res.User.ID {
		t.Errorf("token subject = %q, want %q", id.UserID, res.User.ID)
	}
}

func TestSignup_AdminBootstrap(t *testing.T) {
	fx := newFixture("Boss@Example.com")

	res, err := fx.auth.Signup(context.Background(), SignupInput{
		Email: "boss@example.com", Password: "password1", Name: "Boss",
	})
	if err != nil {
		t.Fatalf("Signup() error = %v", err)
	}
	if res.User.Role != model.RoleAdmin {
		t.Errorf("Role = %q, want ADMIN for a listed email", res.User.Role)
	}
}

func TestSignup_Validation(t *testing.T) {
	tests := []struct {
		name      string
		input     SignupInput
		wantField string
	}{
		{"bad email", SignupInput{Email: "not-an-email", Password: "password1", Name: "A"}, "email"},
		{"short password", SignupInput{Email: "a@b.io", Password: "short", Name: "A"}, "password"},
		{"long password", SignupInput{Email: "a@b.io", Password: strings.Repeat("p", 73), Name: "A"}, "password"},
		{"blank name", SignupInput{Email: "a@b.io", Password: "password1", Name: "   "}, "name"},
		{"name too long", SignupInput{Email: "a@b.io", Password: "password1", Name: strings.Repeat("n", 51)}, "name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture()
			_, err := fx.auth.Signup(context.Background(), tt.input)

			var appErr *apperror.AppError
			if !errors.As(err, &appErr) || !errors.Is(err, apperror.ErrValidation) {
				t.Fatalf("Signup() error = %v, want a validation error", err)
			}
			if appErr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", appErr.Field, tt.wantField)
			}
		})
	}
}

func TestSignup_EmailTaken(t *testing.T) {
	fx := newFixture()
	in := SignupInput{Email: "dup@example.com", Password: "password1", Name: "A"}

	if _, err := fx.auth.Signup(context.Background(), in); err != nil {
		t.Fatalf("first Signup() error = %v", err)
	}

	_, err := fx.auth.Signup(context.Background(), in)
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.Code != apperror.CodeEmailAlreadyExists {
		t.Fatalf("second Signup() error = %v, want EMAIL_ALREADY_EXISTS", err)
	}
}

// =========================================================================
// LOGIN / LOGOUT TESTS
// =========================================================================

func TestLogin(t *testing.T) {
	fx := newFixture()
	_, err := fx.auth.Signup(context.Background(), SignupInput{
		Email: "lee@example.com", Password: "password1", Name: "Lee",
	})
	if err != nil {
		t.Fatalf("Signup() error = %v", err)
	}

	t.Run("correct credentials", func(t *testing.T) {
		res, err := fx.auth.Login(context.Background(), "LEE@example.com", "password1")
		if err != nil {
			t.Fatalf("Login() error = %v", err)
		}
		if res.Token == "" || res.User.Name != "Lee" {
			t.Errorf("Login() = %+v", res)
		}
	})

	t.Run("wrong password and unknown email look the same", func(t *testing.T) {
		_, errWrong := fx.auth.Login(context.Background(), "lee@example.com", "password2")
		_, errUnknown := fx.auth.Login(context.Background(), "ghost@example.com", "password1")

		for _, err := range []error{errWrong, errUnknown} {
			if !errors.Is(err, apperror.ErrUnauthorized) {
				t.Fatalf("Login() error = %v, want ErrUnauthorized", err)
			}
		}
		if errWrong.Error() != errUnknown.Error() {
			t.Errorf("messages differ: %q vs %q", errWrong, errUnknown)
		}
	})
}

func TestLogout_RevokesToken(t *testing.T) {
	fx := newFixture()
	res, err := fx.auth.Signup(context.Background(), SignupInput{
		Email: "out@example.com", Password: "password1", Name: "Out",
	})
	if err != nil {
		t.Fatalf("Signup() error = %v", err)
	}

	id, err := fx.tokens.Validate(res.Token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if err := fx.auth.Logout(context.Background(), id); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}

	revoked, _ := fx.revocations.IsRevoked(context.Background(), id.TokenID)
	if !revoked {
		t.Error("Logout() did not revoke the token ID")
	}

	if err := fx.auth.Logout(context.Background(), nil); !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("Logout(nil) error = %v, want ErrUnauthorized", err)
	}
}

func TestMe(t *testing.T) {
	fx := newFixture()
	res, _ := fx.auth.Signup(context.Background(), SignupInput{
		Email: "me@example.com", Password: "password1", Name: "Me",
	})

	u, err := fx.auth.Me(context.Background(), &auth.Identity{UserID: res.User.ID, Role: model.RoleUser})
	if err != nil {
		t.Fatalf("Me() error = %v", err)
	}
	if u.Email != "me@example.com" {
		t.Errorf("Me() email = %q", u.Email)
	}
}
